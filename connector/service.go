// Package connector exposes the operations host controllers call: account
// configuration and the contacts, mail, calendar and avatar reads.
package connector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/zimbra-connector/auth"
	"github.com/jrsteele09/zimbra-connector/dispatch"
	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/internal/utils"
	"github.com/jrsteele09/zimbra-connector/sessions"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const defaultEventWindow = 30 * 24 * time.Hour

// Service runs the domain operations for host users.
type Service struct {
	engine      *auth.Engine
	dispatcher  *dispatch.Dispatcher
	sessions    *sessions.Store
	eventWindow time.Duration
	nowTime     func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithEventWindow sets how far ahead upcoming events are looked for.
func WithEventWindow(window time.Duration) ServiceOption {
	return func(s *Service) {
		s.eventWindow = window
	}
}

// NewService builds the connector operations on top of the auth engine and dispatcher.
func NewService(engine *auth.Engine, dispatcher *dispatch.Dispatcher, store *sessions.Store, options ...ServiceOption) *Service {
	s := &Service{
		engine:      engine,
		dispatcher:  dispatcher,
		sessions:    store,
		eventWindow: defaultEventWindow,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Sessions gives collaborators (search provider, address book) read access to user settings.
func (s *Service) Sessions() *sessions.Store {
	return s.sessions
}

// RemoteUserName returns the connected remote account of userID, or
// ErrNotConnected when there is none.
func (s *Service) RemoteUserName(ctx context.Context, userID string) (string, error) {
	name, err := s.sessions.GetUserValue(ctx, userID, sessions.KeyUserName)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", apperrors.ErrNotConnected
	}
	return name, nil
}

// RefreshUserInfo reads the remote identity and stores it. Missing fields
// fall back to fallback (the login) so a connected user always has a name.
func (s *Service) RefreshUserInfo(ctx context.Context, userID, fallback string) (*sessions.UserInfo, error) {
	var resp zimbra.GetInfoResponse
	err := s.dispatcher.ProtocolJSON(ctx, userID, zimbra.OpGetInfo, zimbra.NamespaceAccount, nil, "GetInfoResponse", &resp)
	if err != nil && fallback == "" {
		return nil, errors.Wrap(err, "[Service.RefreshUserInfo]")
	}
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("could not read remote user info, using login")
	}

	info := sessions.UserInfo{
		ID:          utils.FirstNonEmpty(resp.ID, fallback),
		Name:        utils.FirstNonEmpty(resp.Name, fallback),
		DisplayName: utils.FirstNonEmpty(resp.DisplayName(), fallback),
		Version:     resp.Version,
	}
	if err := s.sessions.SaveUserInfo(ctx, userID, info); err != nil {
		return nil, err
	}
	return &info, nil
}

// page returns the [offset, offset+limit) window of items.
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
