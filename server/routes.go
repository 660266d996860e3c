package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

func (s *Server) initRoutes() {
	// CORS preflight never carries the host identity.
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))

	// Settings
	s.RegisterRouteFunc("GET "+RouteIsConnected, ChainMiddleware(s.IsConnectedHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("PUT "+RouteConfig, ChainMiddleware(s.SetConfigHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("PUT "+RouteAdminConfig, ChainMiddleware(s.SetAdminConfigHandler(), s.UserMiddleware(s.RequireAdmin())...))
	s.RegisterRouteFunc("GET "+RouteAuthorizeURL, ChainMiddleware(s.AuthorizeURLHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteOAuthRedirect, ChainMiddleware(s.OAuthRedirectHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("GET "+RoutePopupSuccess, ChainMiddleware(s.PopupSuccessHandler(), s.APIMiddleware()...))

	// Widgets
	s.RegisterRouteFunc("GET "+RouteContacts, ChainMiddleware(s.ContactsHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUnreadEmails, ChainMiddleware(s.UnreadEmailsHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUpcomingEvents, ChainMiddleware(s.UpcomingEventsHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAvatar, ChainMiddleware(s.AvatarHandler(), s.UserMiddleware()...))

	// Host integrations
	s.RegisterRouteFunc("GET "+RouteSearchEmails, ChainMiddleware(s.SearchEmailsHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAddressBook, ChainMiddleware(s.AddressBookInfoHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAddressBookSearch, ChainMiddleware(s.AddressBookSearchHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("PUT "+RouteAddressBookCard, ChainMiddleware(s.AddressBookWriteHandler(), s.UserMiddleware()...))
	s.RegisterRouteFunc("DELETE "+RouteAddressBookCard, ChainMiddleware(s.AddressBookDeleteHandler(), s.UserMiddleware()...))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeError renders err as {error: msg}: 403 for forbidden operations,
// 400 for everything else.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if apperrors.Is(err, apperrors.ErrForbidden) {
		status = http.StatusForbidden
	}
	log.Debug().Err(err).Str("path", r.URL.Path).Str("user", userIDFrom(r)).Msg("request failed")
	writeJSONError(w, apperrors.Message(err), status)
}

// intParam reads a non-negative integer query parameter.
func intParam(r *http.Request, name string, defaultValue int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}

func boolParam(r *http.Request, name string) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && value
}
