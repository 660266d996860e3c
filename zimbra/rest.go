package zimbra

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Contact is an entry of the contacts collection. Attributes are free-form
// (firstName, lastName, fullName, email, email2, homeEmail, workEmail...).
type Contact struct {
	ID    string            `json:"id"`
	Attrs map[string]string `json:"_attrs"`
}

func (c *Contact) Attr(name string) string {
	return c.Attrs[name]
}

// ContactList is the REST response of home/{user}/contacts.
type ContactList struct {
	Contacts []Contact `json:"cn"`
}

// EmailAddress is one participant of a message.
type EmailAddress struct {
	Address     string `json:"a"`
	DisplayName string `json:"p,omitempty"`
	Type        string `json:"t,omitempty"`
}

// Message is an inbox item of the REST search.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"cid"`
	Date           Millis         `json:"d"`
	Subject        string         `json:"su"`
	Fragment       string         `json:"fr,omitempty"`
	Addresses      []EmailAddress `json:"e,omitempty"`
}

// From returns the first address of the message, "" when there is none.
func (m *Message) From() string {
	if len(m.Addresses) == 0 {
		return ""
	}
	return m.Addresses[0].Address
}

// MessageList is the REST response of home/{user}/inbox.
type MessageList struct {
	Messages []Message `json:"m"`
}

// SortByDateDesc sorts newest first. Messages with equal dates keep their order.
func SortByDateDesc(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Date > msgs[j].Date
	})
}

// Millis is an epoch milliseconds value the server sends as number or string.
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n = json.Number(s)
	}
	if n == "" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return err
	}
	*m = Millis(v)
	return nil
}
