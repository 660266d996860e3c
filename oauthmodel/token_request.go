package oauthmodel

import (
	"net/url"
	"strings"
)

// TokenRequest holds the form parameters sent to the remote /oauth/access_token endpoint.
// Both supported grant types post the client credentials and the redirect URI.
type TokenRequest struct {
	GrantType GrantType

	// ClientID identifies the installation.
	// Required: Yes (for all grant types)
	ClientID string

	// ClientSecret is the installation's confidential credential.
	// Required: Yes
	// Security: Never log or expose this value
	ClientSecret string

	// RedirectURI must match the one used when the code was issued.
	RedirectURI string

	// Code is the authorization code received on the redirect URI.
	// Required: Yes (only for authorization_code grant)
	Code string

	// RefreshToken is the stored refresh token.
	// Required: Yes (only for refresh_token grant)
	RefreshToken string
}

// Validate checks the fields required by the grant type are present.
func (r *TokenRequest) Validate() error {
	if strings.TrimSpace(r.ClientID) == "" || strings.TrimSpace(r.ClientSecret) == "" {
		return ErrMissingClient
	}
	switch r.GrantType {
	case AuthorizationCodeGrant:
		if r.Code == "" {
			return ErrMissingCode
		}
	case RefreshTokenGrant:
		if r.RefreshToken == "" {
			return ErrMissingRefreshToken
		}
	default:
		return ErrUnsupportedGrantType
	}
	return nil
}

// Values encodes the request as form values.
func (r *TokenRequest) Values() url.Values {
	v := url.Values{}
	v.Set("client_id", r.ClientID)
	v.Set("client_secret", r.ClientSecret)
	v.Set("grant_type", string(r.GrantType))
	v.Set("redirect_uri", r.RedirectURI)
	switch r.GrantType {
	case AuthorizationCodeGrant:
		v.Set("code", r.Code)
	case RefreshTokenGrant:
		v.Set("refresh_token", r.RefreshToken)
	}
	return v
}
