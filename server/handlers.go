package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
)

const (
	defaultEmailLimit  = 10
	defaultSearchLimit = 5
)

// valuesRequest is the body of the settings endpoints.
type valuesRequest struct {
	Values map[string]string `json:"values"`
}

func decodeValues(r *http.Request) (map[string]string, bool) {
	var req valuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Values == nil {
		return nil, false
	}
	return req.Values, true
}

// connectedUser returns the host user id when it has a remote identity,
// otherwise it answers "not connected" itself.
func (s *Server) connectedUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := userIDFrom(r)
	if _, err := s.service.RemoteUserName(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return "", false
	}
	return userID, true
}

func (s *Server) IsConnectedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r)
		name, _ := s.service.RemoteUserName(r.Context(), userID)
		writeJSON(w, http.StatusOK, map[string]any{
			"connected": s.service.IsUserConnected(r.Context(), userID),
			"user_name": name,
		})
	}
}

func (s *Server) SetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, ok := decodeValues(r)
		if !ok {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		result, err := s.service.SetConfig(r.Context(), userIDFrom(r), values)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if result == nil {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) SetAdminConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, ok := decodeValues(r)
		if !ok {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.service.SetAdminConfig(r.Context(), values); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	}
}

func (s *Server) AuthorizeURLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectURI := s.config.GetBaseURL() + RouteOAuthRedirect
		authURL, err := s.service.AuthorizationURL(r.Context(), userIDFrom(r), redirectURI, r.URL.Query().Get("origin"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": authURL})
	}
}

// OAuthRedirectHandler completes the authorization code flow and sends the
// browser back to the page the flow started from.
func (s *Server) OAuthRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostURL := s.config.GetHostURL()
		query := r.URL.Query()

		outcome, err := s.service.OAuthRedirect(r.Context(), userIDFrom(r), query.Get("code"), query.Get("state"))
		if err != nil {
			target := hostURL + hostSettingsPath + "?zimbraToken=error&message=" + url.QueryEscape(apperrors.Message(err))
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		var target string
		switch {
		case outcome.Popup:
			params := url.Values{}
			params.Set("user_name", outcome.UserName)
			params.Set("user_displayname", outcome.UserDisplayName)
			target = s.config.GetBaseURL() + RoutePopupSuccess + "?" + params.Encode()
		case outcome.Origin == "dashboard":
			target = hostURL + hostDashboardPath
		default:
			target = hostURL + hostSettingsPath + "?zimbraToken=success"
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func (s *Server) PopupSuccessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = popupSuccessTemplate.Execute(w, map[string]string{
			"UserName":        r.URL.Query().Get("user_name"),
			"UserDisplayName": r.URL.Query().Get("user_displayname"),
		})
	}
}

func (s *Server) ContactsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.connectedUser(w, r)
		if !ok {
			return
		}
		contacts, err := s.service.GetContacts(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func (s *Server) UnreadEmailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.connectedUser(w, r)
		if !ok {
			return
		}
		offset := intParam(r, "offset", 0)
		limit := intParam(r, "limit", defaultEmailLimit)
		emails, err := s.service.GetUnreadEmails(r.Context(), userID, offset, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, emails)
	}
}

// UpcomingEventsHandler takes an optional since parameter in epoch seconds.
func (s *Server) UpcomingEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.connectedUser(w, r)
		if !ok {
			return
		}
		var since *time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			seconds, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeJSONError(w, "Invalid since parameter", http.StatusBadRequest)
				return
			}
			t := time.Unix(seconds, 0)
			since = &t
		}
		events, err := s.service.GetUpcomingEvents(r.Context(), userID, since)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// AvatarHandler serves the remote user's image, or their user info as JSON
// when the remote has no image.
func (s *Server) AvatarHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.connectedUser(w, r)
		if !ok {
			return
		}
		avatar, err := s.service.GetUserAvatar(r.Context(), userID, r.PathValue("zimbraUserId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if avatar.Content == nil {
			w.Header().Set("Content-Type", contentTypeJSON)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(avatar.UserInfo)
			return
		}
		w.Header().Set("Content-Type", avatar.ContentType)
		w.Header().Set("Cache-Control", "private, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(avatar.Content)
	}
}

func (s *Server) SearchEmailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		limit := intParam(r, "limit", defaultSearchLimit)
		writeJSON(w, http.StatusOK, s.search.Search(r.Context(), userIDFrom(r), query.Get("term"), query.Get("cursor"), limit))
	}
}
