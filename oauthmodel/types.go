package oauthmodel

// ResponseType represents the OAuth 2.0 response type requested from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType asks the remote server for an authorization code that is
	// later exchanged at the token endpoint. It is the only flow the remote supports.
	CodeResponseType ResponseType = "code"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges the code received on the redirect URI for tokens.
	// Token request includes: client_id, client_secret, code, redirect_uri
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a stored refresh token for a new access token.
	// Token request includes: client_id, client_secret, refresh_token, redirect_uri
	// The remote may or may not rotate the refresh token.
	RefreshTokenGrant GrantType = "refresh_token"
)
