// Package auth decides whether a user's remote session is usable and renews
// it when it is not, through OAuth refresh, password login or pre-auth.
package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/zimbra-connector/dispatch"
	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/sessions"
)

const (
	defaultSafetyMargin    = time.Minute
	defaultTwoFactorWindow = 30 * 24 * time.Hour
)

// Grant is a successfully obtained access token.
type Grant struct {
	Token        string
	RefreshToken string
	ExpiresAt    *time.Time // nil when the remote gave no lifetime
}

// Engine implements the authentication protocols against the remote server.
// It holds no per-user state; every call reads the session store.
type Engine struct {
	caller          *dispatch.Caller
	sessions        *sessions.Store
	safetyMargin    time.Duration
	twoFactorWindow time.Duration
	nowTime         func() time.Time // injectable for testing
}

var _ dispatch.SessionValidator = (*Engine)(nil)

// EngineOption defines a function type to modify the Engine instance.
type EngineOption func(*Engine)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowTime = nowFunc
	}
}

// WithSafetyMargin sets how long before expiry a token is renewed.
func WithSafetyMargin(margin time.Duration) EngineOption {
	return func(e *Engine) {
		e.safetyMargin = margin
	}
}

// WithTwoFactorWindow sets how long after a successful second factor pre-auth may replace it.
func WithTwoFactorWindow(window time.Duration) EngineOption {
	return func(e *Engine) {
		e.twoFactorWindow = window
	}
}

// NewEngine builds the session engine over caller and store. Both are required.
func NewEngine(caller *dispatch.Caller, store *sessions.Store, options ...EngineOption) (*Engine, error) {
	if caller == nil {
		return nil, errors.New("[NewEngine] caller is required")
	}
	if store == nil {
		return nil, errors.New("[NewEngine] session store is required")
	}
	e := &Engine{
		caller:          caller,
		sessions:        store,
		safetyMargin:    defaultSafetyMargin,
		twoFactorWindow: defaultTwoFactorWindow,
		nowTime:         time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// EnsureValidSession returns true when the stored token can be used,
// renewing it first if it expires within the safety margin. No expiry on
// record means the token does not expire. Renewal is attempted once, inline.
func (e *Engine) EnsureValidSession(ctx context.Context, userID string) bool {
	sess, err := e.sessions.Load(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("could not read session")
		return false
	}
	if sess.TokenExpiresAt == nil {
		return true
	}
	now := e.nowTime()
	if !now.After(sess.TokenExpiresAt.Add(-e.safetyMargin)) {
		return true
	}
	return e.renew(ctx, sess, now)
}

func (e *Engine) renew(ctx context.Context, sess *sessions.Session, now time.Time) bool {
	logger := log.With().Str("user", sess.UserID).Logger()

	if sess.RefreshToken != "" {
		inst, err := e.sessions.LoadInstallation(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("could not read installation config")
			return false
		}
		grant, err := e.RefreshOAuthToken(ctx, inst, sess)
		if err != nil {
			logger.Error().Err(err).Msg("token is not valid anymore, impossible to refresh it")
			return false
		}
		logger.Info().Msg("access token refreshed")
		return e.store(ctx, sess.UserID, grant)
	}

	if sess.Login == "" || sess.Password == "" {
		logger.Warn().Msg("token expired and no way to renew it")
		return false
	}

	grant, err := e.Login(ctx, sess.URL, sess.Login, sess.Password, "")
	switch {
	case err == nil:
		logger.Info().Msg("session renewed with stored credentials")
		return e.store(ctx, sess.UserID, grant)
	case !errors.Is(err, apperrors.ErrTwoFactorRequired):
		logger.Warn().Err(err).Msg("login with stored credentials failed")
		return false
	}

	if sess.TwoFactorExpiresAt == nil || !now.Before(*sess.TwoFactorExpiresAt) {
		logger.Warn().Msg("second factor required and the pre-auth window is closed")
		return false
	}
	inst, err := e.sessions.LoadInstallation(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("could not read installation config")
		return false
	}
	if inst.PreAuthKey == "" {
		logger.Warn().Msg("second factor required and no pre-auth key is configured")
		return false
	}
	grant, err = e.PreAuth(ctx, sess.URL, inst.PreAuthKey, sess.Login)
	if err != nil {
		logger.Warn().Err(err).Msg("pre-auth failed")
		return false
	}
	logger.Info().Msg("session renewed with pre-auth")
	return e.store(ctx, sess.UserID, grant)
}

func (e *Engine) store(ctx context.Context, userID string, grant *Grant) bool {
	if err := e.sessions.SaveToken(ctx, userID, grant.Token, grant.RefreshToken, grant.ExpiresAt); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("could not store renewed token")
		return false
	}
	return true
}
