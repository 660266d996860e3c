package server

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/zimbra-connector/addressbook"
	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
)

var popupSuccessTemplate = template.Must(template.New("popup-success").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Connected</title></head>
<body>
<p>Connected as {{.UserDisplayName}} ({{.UserName}}).</p>
<script>
if (window.opener) {
	window.opener.postMessage({userName: {{.UserName}}, userDisplayName: {{.UserDisplayName}}}, "*");
	window.close();
}
</script>
</body>
</html>
`))

// AddressBookInfoHandler describes the address book the host registers for
// connected users.
func (s *Server) AddressBookInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r)
		if !s.addressBook.Available(r.Context(), userID) {
			writeError(w, r, apperrors.ErrNotConnected)
			return
		}
		uri, err := s.addressBook.URI(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"key":                 addressbook.Key,
			"display_name":        addressbook.DisplayName,
			"uri":                 uri,
			"shared":              s.addressBook.IsShared(),
			"system_address_book": s.addressBook.IsSystemAddressBook(),
		})
	}
}

func (s *Server) AddressBookSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r)
		if !s.addressBook.Available(r.Context(), userID) {
			writeError(w, r, apperrors.ErrNotConnected)
			return
		}
		query := r.URL.Query()
		cards := s.addressBook.Search(r.Context(), userID, query.Get("pattern"), query["properties"], addressbook.Options{
			Types:  boolParam(r, "types"),
			Offset: intParam(r, "offset", 0),
			Limit:  intParam(r, "limit", 0),
		})
		writeJSON(w, http.StatusOK, cards)
	}
}

func (s *Server) AddressBookWriteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, s.addressBook.CreateOrUpdate(r.Context(), map[string]any{"id": r.PathValue("id")}))
	}
}

func (s *Server) AddressBookDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, s.addressBook.Delete(r.Context(), r.PathValue("id")))
	}
}
