// Package search offers the user's inbox to the host's unified search.
package search

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/zimbra-connector/sessions"
	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const (
	ProviderID   = "zimbra-search-messages"
	ProviderName = "Zimbra emails"

	fallbackIcon = "icon-zimbra-search-fallback"
	dateLayout   = "January 2, 2006 15:04"
)

// MailSearcher finds inbox messages, newest first.
type MailSearcher interface {
	SearchEmails(ctx context.Context, userID, query string, offset, limit int) ([]zimbra.Message, error)
}

// Entry is one search hit as the host renders it.
type Entry struct {
	ThumbnailURL string `json:"thumbnailUrl"`
	Title        string `json:"title"`
	Subline      string `json:"subline"`
	ResourceURL  string `json:"resourceUrl"`
	Icon         string `json:"icon"`
	Rounded      bool   `json:"rounded"`
}

// Result is a page of hits. Cursor is where the next page starts.
type Result struct {
	Name        string  `json:"name"`
	IsPaginated bool    `json:"isPaginated"`
	Entries     []Entry `json:"entries"`
	Cursor      int     `json:"cursor"`
}

type Provider struct {
	mail     MailSearcher
	sessions *sessions.Store
	location *time.Location
}

func NewProvider(mail MailSearcher, store *sessions.Store, location *time.Location) *Provider {
	if location == nil {
		location = time.UTC
	}
	return &Provider{mail: mail, sessions: store, location: location}
}

// Search returns the page of inbox messages matching term starting at cursor.
// Users without a token or with mail search disabled get an empty page.
func (p *Provider) Search(ctx context.Context, userID, term, cursor string, limit int) *Result {
	empty := &Result{Name: ProviderName, IsPaginated: true, Entries: []Entry{}}

	offset, _ := strconv.Atoi(cursor)
	if offset < 0 {
		offset = 0
	}

	token, err := p.sessions.GetUserValue(ctx, userID, sessions.KeyToken)
	if err != nil || token == "" {
		return empty
	}
	enabled, err := p.sessions.GetUserValue(ctx, userID, sessions.KeySearchMailsEnabled)
	if err != nil || enabled != "1" {
		return empty
	}
	url, err := p.sessions.RemoteURL(ctx, userID)
	if err != nil {
		return empty
	}

	msgs, err := p.mail.SearchEmails(ctx, userID, term, offset, limit)
	if err != nil {
		log.Debug().Err(err).Str("user", userID).Msg("mail search failed")
		return empty
	}

	entries := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, Entry{
			Title:       m.Subject,
			Subline:     p.subline(m),
			ResourceURL: url + "/modern/email/Inbox/conversation/" + m.ConversationID,
			Icon:        fallbackIcon,
			Rounded:     true,
		})
	}
	return &Result{Name: ProviderName, IsPaginated: true, Entries: entries, Cursor: offset + limit}
}

func (p *Provider) subline(m zimbra.Message) string {
	from := m.From()
	if from == "" {
		from = "??"
	}
	return from + " " + time.UnixMilli(int64(m.Date)).In(p.location).Format(dateLayout)
}
