package connector

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jrsteele09/zimbra-connector/dispatch"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

// GetContacts returns the user's whole contacts collection.
func (s *Service) GetContacts(ctx context.Context, userID string) ([]zimbra.Contact, error) {
	contacts, err := s.contacts(ctx, userID, nil)
	return contacts, errors.Wrap(err, "[Service.GetContacts]")
}

// SearchContacts lets the remote server filter the contacts collection by query.
func (s *Service) SearchContacts(ctx context.Context, userID, query string) ([]zimbra.Contact, error) {
	contacts, err := s.contacts(ctx, userID, dispatch.Params{"query": query})
	return contacts, errors.Wrap(err, "[Service.SearchContacts]")
}

func (s *Service) contacts(ctx context.Context, userID string, params dispatch.Params) ([]zimbra.Contact, error) {
	user, err := s.RemoteUserName(ctx, userID)
	if err != nil {
		return nil, err
	}
	var list zimbra.ContactList
	if err := s.dispatcher.RestJSON(ctx, userID, "home/"+user+"/contacts", params, http.MethodGet, &list); err != nil {
		return nil, err
	}
	if list.Contacts == nil {
		return []zimbra.Contact{}, nil
	}
	return list.Contacts, nil
}
