package sessions

import "time"

// User value keys.
const (
	KeyURL                = "url"
	KeyLogin              = "login"
	KeyPassword           = "password" // encrypted
	KeyToken              = "token"    // encrypted
	KeyRefreshToken       = "refresh_token"
	KeyTokenExpiresAt     = "token_expires_at"      // epoch seconds
	KeyTwoFactorExpiresAt = "two_factor_expires_at" // epoch seconds
	KeyUserID             = "user_id"
	KeyUserName           = "user_name"
	KeyUserDisplayName    = "user_displayname"
	KeyRemoteVersion      = "zimbra_version"
	KeyRedirectURI        = "redirect_uri"
	KeyOAuthState         = "oauth_state"
	KeyOAuthOrigin        = "oauth_origin"
	KeySearchMailsEnabled = "search_mails_enabled"
	KeyNavigationEnabled  = "navigation_enabled"
)

// Installation value keys.
const (
	AppKeyAdminInstanceURL = "admin_instance_url"
	AppKeyOAuthInstanceURL = "oauth_instance_url"
	AppKeyClientID         = "client_id"
	AppKeyClientSecret     = "client_secret" // encrypted
	AppKeyPreAuthKey       = "pre_auth_key"  // encrypted
	AppKeyUsePopup         = "use_popup"
	AppKeyContactsCacheTTL = "cache-ttl-contacts"
)

// Session is the per-user authenticated state, decrypted for the duration of a call.
type Session struct {
	UserID             string
	URL                string
	Login              string
	Password           string
	Token              string
	RefreshToken       string
	TokenExpiresAt     *time.Time // nil for non-expiring tokens
	TwoFactorExpiresAt *time.Time // nil when 2FA never succeeded
	RemoteUserID       string
	UserName           string
	DisplayName        string
	RemoteVersion      string
	RedirectURI        string
}

// Connected reports whether every credential needed for a call is present.
func (s *Session) Connected() bool {
	return s.URL != "" && s.UserName != "" && s.Token != "" && s.Login != "" && s.Password != ""
}

// AccountName is the remote account the session acts as.
func (s *Session) AccountName() string {
	if s.UserName != "" {
		return s.UserName
	}
	return s.Login
}

// Installation is the administrator configured, installation wide state.
type Installation struct {
	AdminInstanceURL string
	OAuthInstanceURL string
	ClientID         string
	ClientSecret     string
	PreAuthKey       string
	UsePopup         bool
	ContactsCacheTTL time.Duration
}

// DefaultURL is the remote URL used when a user has not picked one.
func (i *Installation) DefaultURL() string {
	if i.OAuthInstanceURL != "" {
		return i.OAuthInstanceURL
	}
	return i.AdminInstanceURL
}

// UserInfo is the remote identity stored after a successful connection.
type UserInfo struct {
	ID          string `json:"user_id"`
	Name        string `json:"user_name"`
	DisplayName string `json:"user_displayname"`
	Version     string `json:"zimbra_version,omitempty"`
}
