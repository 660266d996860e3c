package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/zimbra-connector/zimbra"
)

const eventSearchLimit = 500

// Event is an upcoming appointment reduced to what widgets display.
// Start and End are epoch milliseconds of the first instance in the window.
type Event struct {
	ID       string `json:"id"`
	InviteID string `json:"invId,omitempty"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	FolderID string `json:"folderId"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	AllDay   bool   `json:"allDay"`
}

// GetUpcomingEvents returns appointments with an instance in
// [since, since+window], earliest first. A nil since means now.
func (s *Service) GetUpcomingEvents(ctx context.Context, userID string, since *time.Time) ([]Event, error) {
	start := s.nowTime()
	if since != nil {
		start = *since
	}
	end := start.Add(s.eventWindow)

	var folders zimbra.GetFolderResponse
	err := s.dispatcher.ProtocolJSON(ctx, userID, zimbra.OpGetFolder, zimbra.NamespaceMail,
		map[string]any{"view": zimbra.ViewAppointment}, "GetFolderResponse", &folders)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetUpcomingEvents] folders")
	}
	ids := folders.AppointmentFolderIDs()
	if len(ids) == 0 {
		return []Event{}, nil
	}

	var result zimbra.SearchResponse
	err = s.dispatcher.ProtocolJSON(ctx, userID, zimbra.OpSearch, zimbra.NamespaceMail, map[string]any{
		"types":              "appointment",
		"calExpandInstStart": start.UnixMilli(),
		"calExpandInstEnd":   end.UnixMilli(),
		"limit":              eventSearchLimit,
		"offset":             0,
		"query":              zimbra.Content{Content: folderQuery(ids)},
	}, "SearchResponse", &result)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetUpcomingEvents] search")
	}

	return upcoming(result.Appointments, start.UnixMilli(), end.UnixMilli()), nil
}

// folderQuery is `inid:"a" OR inid:"b"`.
func folderQuery(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("inid:%q", id)
	}
	return strings.Join(parts, " OR ")
}

// upcoming keeps the first instance of each appointment inside [from, to]
// and sorts by it. Equal starts keep the remote order.
func upcoming(appts []zimbra.Appointment, from, to int64) []Event {
	events := make([]Event, 0, len(appts))
	for _, a := range appts {
		for _, inst := range a.Instances {
			if inst.Start < from || inst.Start > to {
				continue
			}
			events = append(events, Event{
				ID:       a.ID,
				InviteID: a.InviteID,
				Name:     a.Name,
				Location: a.Location,
				FolderID: a.FolderID,
				Start:    inst.Start,
				End:      inst.Start + a.Duration,
				AllDay:   bool(a.AllDay),
			})
			break
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})
	return events
}
