package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/oauthmodel"
	"github.com/jrsteele09/zimbra-connector/sessions"
)

const (
	authorizePath = "/oauth/authorize"
	tokenPath     = "/oauth/access_token"
)

// RefreshOAuthToken exchanges the session's refresh token for a new access
// token. If the remote does not rotate the refresh token the current one is kept.
func (e *Engine) RefreshOAuthToken(ctx context.Context, inst *sessions.Installation, sess *sessions.Session) (*Grant, error) {
	req := &oauthmodel.TokenRequest{
		GrantType:    oauthmodel.RefreshTokenGrant,
		ClientID:     inst.ClientID,
		ClientSecret: inst.ClientSecret,
		RedirectURI:  sess.RedirectURI,
		RefreshToken: sess.RefreshToken,
	}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(apperrors.ErrOAuthRefused, err.Error())
	}
	token, err := e.caller.OAuthToken(ctx, sess.URL, http.MethodPost, req)
	if err != nil {
		return nil, errors.Wrap(err, "[Engine.RefreshOAuthToken]")
	}
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = sess.RefreshToken
	}
	return &Grant{
		Token:        token.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    token.ExpiresAt(e.nowTime()),
	}, nil
}

// AuthorizationURL starts an OAuth connection for userID: it records a fresh
// state, the redirect URI and the origin page, and returns the remote URL
// the browser should be sent to.
func (e *Engine) AuthorizationURL(ctx context.Context, userID, redirectURI, origin string) (string, error) {
	inst, err := e.sessions.LoadInstallation(ctx)
	if err != nil {
		return "", err
	}
	remote, err := e.sessions.RemoteURL(ctx, userID)
	if err != nil {
		return "", err
	}

	params := oauthmodel.AuthorizationParameters{
		ClientID:     inst.ClientID,
		RedirectURI:  redirectURI,
		ResponseType: oauthmodel.CodeResponseType,
		State:        uuid.NewString(),
	}
	if err := params.Validate(); err != nil {
		return "", errors.Wrap(err, "[Engine.AuthorizationURL]")
	}

	for key, value := range map[string]string{
		sessions.KeyOAuthState:  params.State,
		sessions.KeyRedirectURI: params.RedirectURI,
		sessions.KeyOAuthOrigin: origin,
	} {
		if err := e.sessions.SetUserValue(ctx, userID, key, value); err != nil {
			return "", err
		}
	}

	cfg := oauth2Config(remote, inst.ClientID, "", redirectURI)
	return cfg.AuthCodeURL(params.State), nil
}

// ExchangeAuthorizationCode completes an OAuth connection. The stored state is
// cleared whatever the outcome and must equal state.
func (e *Engine) ExchangeAuthorizationCode(ctx context.Context, userID, code, state string) error {
	stored, err := e.sessions.GetUserValue(ctx, userID, sessions.KeyOAuthState)
	if err != nil {
		return err
	}
	if err := e.sessions.SetUserValue(ctx, userID, sessions.KeyOAuthState, ""); err != nil {
		return err
	}
	if state == "" || stored != state {
		log.Warn().Str("user", userID).Msg("OAuth state mismatch")
		return errors.Wrap(apperrors.ErrInvalidState, "[Engine.ExchangeAuthorizationCode] state mismatch")
	}

	inst, err := e.sessions.LoadInstallation(ctx)
	if err != nil {
		return err
	}
	sess, err := e.sessions.Load(ctx, userID)
	if err != nil {
		return err
	}
	req := &oauthmodel.TokenRequest{
		GrantType:    oauthmodel.AuthorizationCodeGrant,
		ClientID:     inst.ClientID,
		ClientSecret: inst.ClientSecret,
		RedirectURI:  sess.RedirectURI,
		Code:         code,
	}
	if err := req.Validate(); err != nil {
		return errors.Wrap(apperrors.ErrInvalidState, err.Error())
	}

	token, err := e.caller.OAuthToken(ctx, sess.URL, http.MethodPost, req)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("OAuth code exchange failed")
		return errors.Wrap(err, "[Engine.ExchangeAuthorizationCode]")
	}
	return e.sessions.SaveToken(ctx, userID, token.AccessToken, token.RefreshToken, token.ExpiresAt(e.nowTime()))
}

func oauth2Config(remote, clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   remote + authorizePath,
			TokenURL:  remote + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
