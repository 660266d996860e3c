package oauthmodel

import (
	"net/url"
	"strings"
)

// AuthorizationParameters holds the query parameters sent to the remote
// /oauth/authorize endpoint when a user starts the OAuth connection.
type AuthorizationParameters struct {
	// ClientID identifies this installation to the remote server.
	// Required: Yes
	// Source: installation value client_id
	ClientID string

	// RedirectURI is where the remote sends the browser back with the code.
	// Required: Yes
	// Example: "https://cloud.example.com/oauth-redirect"
	// Stored per user so the refresh grant can echo it back.
	RedirectURI string

	// ResponseType is always "code".
	ResponseType ResponseType

	// State is an opaque random value checked on the redirect.
	// Security: prevents a forged redirect from binding someone else's account
	State string
}

// Validate checks the parameters are complete before building the URL.
func (p *AuthorizationParameters) Validate() error {
	if strings.TrimSpace(p.ClientID) == "" {
		return ErrMissingClient
	}
	if !redirectValid(p.RedirectURI) {
		return ErrInvalidRedirectUri
	}
	if p.ResponseType != "" && p.ResponseType != CodeResponseType {
		return ErrInvalidResponseType
	}
	if strings.TrimSpace(p.State) == "" {
		return ErrMissingState
	}
	return nil
}

func redirectValid(redirectURI string) bool {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
