// Package addressbook presents the remote contacts as a read-only, system
// address book for the host's contact search.
package addressbook

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/zimbra-connector/cache"
	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/sessions"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const (
	Key         = "zimbraAddressBook"
	DisplayName = "Zimbra Address Book"

	defaultLimit = 25
)

// ContactSearcher finds remote contacts matching a pattern.
type ContactSearcher interface {
	SearchContacts(ctx context.Context, userID, query string) ([]zimbra.Contact, error)
}

// Options narrows a search. Limit 0 means the default page size.
type Options struct {
	Types  bool `json:"types"`
	Offset int  `json:"offset"`
	Limit  int  `json:"limit"`
}

type AddressBook struct {
	contacts ContactSearcher
	sessions *sessions.Store
	cache    cache.ResultCache
}

func New(contacts ContactSearcher, store *sessions.Store, resultCache cache.ResultCache) *AddressBook {
	return &AddressBook{contacts: contacts, sessions: store, cache: resultCache}
}

// URI is the remote server the contacts come from.
func (a *AddressBook) URI(ctx context.Context, userID string) (string, error) {
	return a.sessions.RemoteURL(ctx, userID)
}

// Available reports whether the address book should be offered to userID.
func (a *AddressBook) Available(ctx context.Context, userID string) bool {
	return a.sessions.IsConnected(ctx, userID)
}

// Search returns formatted contacts matching pattern. Results are cached per
// user and arguments; any failure yields an empty list.
func (a *AddressBook) Search(ctx context.Context, userID, pattern string, properties []string, opts Options) []Card {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	logger := log.With().Str("user", userID).Logger()

	key, err := cacheKey(userID, pattern, properties, opts)
	if err != nil {
		logger.Error().Err(err).Msg("could not build contacts cache key")
		return []Card{}
	}
	if data, ok, err := a.cache.Get(ctx, key); err != nil {
		logger.Warn().Err(err).Msg("contacts cache read failed")
	} else if ok {
		var cards []Card
		if err := json.Unmarshal(data, &cards); err == nil {
			return cards
		}
	}

	contacts, err := a.contacts.SearchContacts(ctx, userID, pattern)
	if err != nil {
		logger.Debug().Err(err).Msg("contact search failed")
		return []Card{}
	}

	cards := make([]Card, 0, opts.Limit)
	for _, c := range page(contacts, opts.Offset, opts.Limit) {
		cards = append(cards, toCard(c, opts.Types))
	}

	a.store(ctx, key, cards)
	return cards
}

func (a *AddressBook) store(ctx context.Context, key string, cards []Card) {
	inst, err := a.sessions.LoadInstallation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not read contacts cache ttl")
		return
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, inst.ContactsCacheTTL); err != nil {
		log.Warn().Err(err).Msg("contacts cache write failed")
	}
}

func (a *AddressBook) CreateOrUpdate(context.Context, map[string]any) error {
	return errors.Wrap(apperrors.ErrForbidden, "[AddressBook.CreateOrUpdate]")
}

func (a *AddressBook) Delete(context.Context, string) error {
	return errors.Wrap(apperrors.ErrForbidden, "[AddressBook.Delete]")
}

func (a *AddressBook) Permissions() (int, error) {
	return 0, errors.Wrap(apperrors.ErrForbidden, "[AddressBook.Permissions]")
}

func (a *AddressBook) IsShared() bool {
	return false
}

func (a *AddressBook) IsSystemAddressBook() bool {
	return true
}

func cacheKey(userID, pattern string, properties []string, opts Options) (string, error) {
	if properties == nil {
		properties = []string{}
	}
	data, err := json.Marshal([]any{userID, pattern, properties, opts})
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
