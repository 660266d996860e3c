package server

// Route path constants
const (
	// Settings
	RouteIsConnected   = "/is-connected"
	RouteConfig        = "/config"
	RouteAdminConfig   = "/admin-config"
	RouteAuthorizeURL  = "/oauth/authorize-url"
	RouteOAuthRedirect = "/oauth-redirect"
	RoutePopupSuccess  = "/popup-success"

	// Widgets
	RouteContacts       = "/contacts"
	RouteUnreadEmails   = "/unread-emails"
	RouteUpcomingEvents = "/upcoming-events"
	RouteAvatar         = "/avatar/{zimbraUserId}"

	// Host integrations
	RouteSearchEmails      = "/search/emails"
	RouteAddressBookSearch = "/address-book/search"
	RouteAddressBook       = "/address-book"
	RouteAddressBookCard   = "/address-book/{id}"
)

// Host application pages the OAuth redirect lands on.
const (
	hostSettingsPath  = "/settings/user/connected-accounts"
	hostDashboardPath = "/apps/dashboard/"
)
