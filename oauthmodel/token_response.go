package oauthmodel

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// TokenResponse is the body returned by the remote token endpoint.
// Successful responses carry the standard RFC 6749 fields (access_token,
// refresh_token, expires_in); refusals carry error and error_description.
type TokenResponse struct {
	oauth2.Token

	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ParseTokenResponse decodes a token endpoint body.
func ParseTokenResponse(body []byte) (*TokenResponse, error) {
	var r TokenResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Granted reports whether the response carries an access token.
func (r *TokenResponse) Granted() bool {
	return r.AccessToken != ""
}

// ExpiresAt is now + expires_in, or nil when the remote returned no lifetime.
func (r *TokenResponse) ExpiresAt(now time.Time) *time.Time {
	if r.ExpiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(r.ExpiresIn) * time.Second)
	return &t
}

// Reason is a loggable description of a refusal.
func (r *TokenResponse) Reason() string {
	switch {
	case r.Error != "" && r.ErrorDescription != "":
		return r.Error + " " + r.ErrorDescription
	case r.Error != "":
		return r.Error + " [no error description]"
	default:
		return "[no error description]"
	}
}
