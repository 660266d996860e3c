package store

import "context"

// Repo is the host's key/value configuration storage. Values are scoped
// either to a host user or to the whole installation. A missing key reads
// back as the supplied default.
type Repo interface {
	GetUserValue(ctx context.Context, userID, key, defaultValue string) (string, error)
	SetUserValue(ctx context.Context, userID, key, value string) error
	DeleteUserValue(ctx context.Context, userID, key string) error

	GetAppValue(ctx context.Context, key, defaultValue string) (string, error)
	SetAppValue(ctx context.Context, key, value string) error
}
