package connector

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jrsteele09/zimbra-connector/dispatch"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const unreadQuery = "is:unread"

// GetUnreadEmails returns unread inbox messages, newest first.
func (s *Service) GetUnreadEmails(ctx context.Context, userID string, offset, limit int) ([]zimbra.Message, error) {
	msgs, err := s.inbox(ctx, userID, unreadQuery)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetUnreadEmails]")
	}
	return page(msgs, offset, limit), nil
}

// SearchEmails returns inbox messages matching query, newest first.
func (s *Service) SearchEmails(ctx context.Context, userID, query string, offset, limit int) ([]zimbra.Message, error) {
	msgs, err := s.inbox(ctx, userID, query)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.SearchEmails]")
	}
	return page(msgs, offset, limit), nil
}

// inbox fetches and sorts client side; the remote order is not relied upon.
func (s *Service) inbox(ctx context.Context, userID, query string) ([]zimbra.Message, error) {
	user, err := s.RemoteUserName(ctx, userID)
	if err != nil {
		return nil, err
	}
	var list zimbra.MessageList
	if err := s.dispatcher.RestJSON(ctx, userID, "home/"+user+"/inbox", dispatch.Params{"query": query}, http.MethodGet, &list); err != nil {
		return nil, err
	}
	zimbra.SortByDateDesc(list.Messages)
	return list.Messages, nil
}
