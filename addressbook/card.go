package addressbook

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jrsteele09/zimbra-connector/zimbra"
)

// Email is a contact address. Untyped addresses marshal as a bare string.
type Email struct {
	Type  string
	Value string
}

func (e Email) MarshalJSON() ([]byte, error) {
	if e.Type == "" {
		return json.Marshal(e.Value)
	}
	return json.Marshal(struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{e.Type, e.Value})
}

func (e *Email) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err == nil {
		*e = Email{Value: value}
		return nil
	}
	var typed struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	*e = Email{Type: typed.Type, Value: typed.Value}
	return nil
}

// Card is a contact in vCard property names.
type Card struct {
	FN    string  `json:"FN"`
	N     string  `json:"N,omitempty"`
	Email []Email `json:"EMAIL"`
}

var emailKinds = []struct {
	attr  string
	vtype string
}{
	{"email", "OTHER"},
	{"homeEmail", "HOME"},
	{"workEmail", "WORK"},
}

// toCard formats a remote contact. Each address attribute may have numbered
// variants (email2, email3...), read until the first gap.
func toCard(c zimbra.Contact, typed bool) Card {
	first, last := c.Attr("firstName"), c.Attr("lastName")
	card := Card{
		FN:    c.Attr("fullName"),
		Email: []Email{},
	}
	if card.FN == "" {
		card.FN = strings.TrimSpace(first + " " + last)
	}
	_, hasFirst := c.Attrs["firstName"]
	_, hasLast := c.Attrs["lastName"]
	if hasFirst || hasLast {
		card.N = last + ";" + first + ";;;"
	}

	for _, kind := range emailKinds {
		value, ok := c.Attrs[kind.attr]
		for i := 2; ok; i++ {
			e := Email{Value: value}
			if typed {
				e.Type = kind.vtype
			}
			card.Email = append(card.Email, e)
			value, ok = c.Attrs[kind.attr+strconv.Itoa(i)]
		}
	}
	return card
}
