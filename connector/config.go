package connector

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
	"github.com/jrsteele09/zimbra-connector/sessions"
)

// Keys accepted in SetConfig besides the credential triple.
const (
	ConfigKeyLogin         = "login"
	ConfigKeyPassword      = "password"
	ConfigKeyTwoFactorCode = "two_factor_code"
	ConfigKeyToken         = "token"
)

var plainUserKeys = map[string]bool{
	sessions.KeyURL:                true,
	sessions.KeySearchMailsEnabled: true,
	sessions.KeyNavigationEnabled:  true,
	sessions.KeyOAuthState:         true,
	sessions.KeyRedirectURI:        true,
	sessions.KeyOAuthOrigin:        true,
}

var adminKeys = map[string]bool{
	sessions.AppKeyAdminInstanceURL: true,
	sessions.AppKeyOAuthInstanceURL: true,
	sessions.AppKeyClientID:         true,
	sessions.AppKeyClientSecret:     true,
	sessions.AppKeyPreAuthKey:       true,
	sessions.AppKeyUsePopup:         true,
	sessions.AppKeyContactsCacheTTL: true,
}

// ConfigResult is what the personal settings page gets back.
type ConfigResult struct {
	UserID            string `json:"user_id"`
	UserName          string `json:"user_name"`
	UserDisplayName   string `json:"user_displayname"`
	Version           string `json:"zimbra_version,omitempty"`
	TwoFactorRequired bool   `json:"two_factor_required,omitempty"`
}

func resultFrom(info *sessions.UserInfo) *ConfigResult {
	return &ConfigResult{
		UserID:          info.ID,
		UserName:        info.Name,
		UserDisplayName: info.DisplayName,
		Version:         info.Version,
	}
}

// SetConfig applies personal settings. With url, login and password it
// connects; an empty token disconnects; other known keys are stored as-is.
func (s *Service) SetConfig(ctx context.Context, userID string, values map[string]string) (*ConfigResult, error) {
	url, login, password := values[sessions.KeyURL], values[ConfigKeyLogin], values[ConfigKeyPassword]
	if url != "" && login != "" && password != "" {
		return s.connect(ctx, userID, url, login, password, values[ConfigKeyTwoFactorCode])
	}

	for key, value := range values {
		if !plainUserKeys[key] {
			continue
		}
		if err := s.sessions.SetUserValue(ctx, userID, key, value); err != nil {
			return nil, errors.Wrap(err, "[Service.SetConfig]")
		}
	}

	if token, ok := values[ConfigKeyToken]; ok && token == "" {
		if err := s.engine.Disconnect(ctx, userID); err != nil {
			return nil, err
		}
		return &ConfigResult{}, nil
	}
	return nil, nil
}

func (s *Service) connect(ctx context.Context, userID, url, login, password, code string) (*ConfigResult, error) {
	err := s.engine.ConnectWithPassword(ctx, userID, url, login, password, code)
	if errors.Is(err, apperrors.ErrTwoFactorRequired) {
		return &ConfigResult{TwoFactorRequired: true}, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("password connection failed")
		return &ConfigResult{}, err
	}

	info, err := s.RefreshUserInfo(ctx, userID, login)
	if err != nil {
		return &ConfigResult{}, err
	}
	return resultFrom(info), nil
}

// SetAdminConfig stores installation values. Unknown keys are ignored.
func (s *Service) SetAdminConfig(ctx context.Context, values map[string]string) error {
	known := make(map[string]string, len(values))
	for k, v := range values {
		if adminKeys[k] {
			known[k] = v
		}
	}
	return errors.Wrap(s.sessions.SaveInstallationValues(ctx, known), "[Service.SetAdminConfig]")
}

// IsUserConnected reports whether userID has usable credentials stored.
func (s *Service) IsUserConnected(ctx context.Context, userID string) bool {
	return s.sessions.IsConnected(ctx, userID)
}

// AuthorizationURL starts an OAuth connection from origin ("settings" or "dashboard").
func (s *Service) AuthorizationURL(ctx context.Context, userID, redirectURI, origin string) (string, error) {
	return s.engine.AuthorizationURL(ctx, userID, redirectURI, origin)
}

// OAuthOutcome tells the host where to send the browser after the OAuth redirect.
type OAuthOutcome struct {
	Popup           bool   `json:"popup"`
	Origin          string `json:"origin,omitempty"`
	UserName        string `json:"user_name,omitempty"`
	UserDisplayName string `json:"user_displayname,omitempty"`
}

// OAuthRedirect completes an OAuth connection and reads the remote identity.
func (s *Service) OAuthRedirect(ctx context.Context, userID, code, state string) (*OAuthOutcome, error) {
	if err := s.engine.ExchangeAuthorizationCode(ctx, userID, code, state); err != nil {
		return nil, err
	}
	info, err := s.RefreshUserInfo(ctx, userID, "")
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("connected but could not read user info")
		info = &sessions.UserInfo{}
		if err := s.sessions.SaveUserInfo(ctx, userID, *info); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("could not clear user info")
		}
	}

	inst, err := s.sessions.LoadInstallation(ctx)
	if err != nil {
		return nil, err
	}
	outcome := &OAuthOutcome{Popup: inst.UsePopup, UserName: info.Name, UserDisplayName: info.DisplayName}
	if !inst.UsePopup {
		if outcome.Origin, err = s.sessions.GetUserValue(ctx, userID, sessions.KeyOAuthOrigin); err != nil {
			return nil, err
		}
		if err := s.sessions.DeleteUserValue(ctx, userID, sessions.KeyOAuthOrigin); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}
