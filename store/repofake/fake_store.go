package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/zimbra-connector/store"
)

var _ store.Repo = (*FakeStore)(nil)

type FakeStore struct {
	users map[string]map[string]string // userID -> key -> value
	app   map[string]string
	lock  sync.RWMutex

	writes    int
	failUsers map[string]error // key -> error returned by SetUserValue
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		users:     make(map[string]map[string]string),
		app:       make(map[string]string),
		failUsers: make(map[string]error),
	}
}

func (fs *FakeStore) GetUserValue(_ context.Context, userID, key, defaultValue string) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if v, ok := fs.users[userID][key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func (fs *FakeStore) SetUserValue(_ context.Context, userID, key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err := fs.failUsers[key]; err != nil {
		return err
	}
	if _, ok := fs.users[userID]; !ok {
		fs.users[userID] = make(map[string]string)
	}
	fs.users[userID][key] = value
	fs.writes++
	return nil
}

func (fs *FakeStore) DeleteUserValue(_ context.Context, userID, key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.users[userID], key)
	fs.writes++
	return nil
}

func (fs *FakeStore) GetAppValue(_ context.Context, key, defaultValue string) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if v, ok := fs.app[key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func (fs *FakeStore) SetAppValue(_ context.Context, key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.app[key] = value
	fs.writes++
	return nil
}

// UserValues returns a copy of everything stored for userID.
func (fs *FakeStore) UserValues(userID string) map[string]string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	values := make(map[string]string, len(fs.users[userID]))
	for k, v := range fs.users[userID] {
		values[k] = v
	}
	return values
}

// Writes counts the mutating calls made so far.
func (fs *FakeStore) Writes() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.writes
}

// FailUserWrites makes every SetUserValue of key return err.
func (fs *FakeStore) FailUserWrites(key string, err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failUsers[key] = err
}
