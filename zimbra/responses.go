package zimbra

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Content is the {"_content": ...} wrapper the server uses for scalar values.
type Content struct {
	Content string `json:"_content"`
}

// Flag is a boolean that the server sends either as a JSON bool or as a string.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = false
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*f = Flag(b)
	return nil
}

// FlagContent is {"_content": true}.
type FlagContent struct {
	Content Flag `json:"_content"`
}

// AuthResponse is returned by AuthRequest.
type AuthResponse struct {
	AuthToken             []Content    `json:"authToken"`
	Lifetime              int64        `json:"lifetime"` // milliseconds
	TwoFactorAuthRequired *FlagContent `json:"twoFactorAuthRequired,omitempty"`
}

// Token returns the first auth token, or "" when none was issued.
func (r *AuthResponse) Token() string {
	if len(r.AuthToken) == 0 {
		return ""
	}
	return r.AuthToken[0].Content
}

func (r *AuthResponse) TwoFactorRequired() bool {
	return r.TwoFactorAuthRequired != nil && bool(r.TwoFactorAuthRequired.Content)
}

// GetInfoResponse is the subset of account info the connector stores.
type GetInfoResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Attrs   struct {
		Attrs map[string]json.RawMessage `json:"_attrs"`
	} `json:"attrs"`
}

// DisplayName falls back to the account name when the attribute is missing.
func (r *GetInfoResponse) DisplayName() string {
	if raw, ok := r.Attrs.Attrs["displayName"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return r.Name
}

// Folder is a node of the folder tree.
type Folder struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	View    string   `json:"view"`
	Folders []Folder `json:"folder"`
}

const ViewAppointment = "appointment"

// GetFolderResponse is the folder tree.
type GetFolderResponse struct {
	Folders []Folder `json:"folder"`
}

// AppointmentFolderIDs collects calendar folders from the top level of the
// tree and one level of subfolders below it. The root itself is skipped.
func (r *GetFolderResponse) AppointmentFolderIDs() []string {
	var ids []string
	for _, root := range r.Folders {
		for _, top := range root.Folders {
			if top.View == ViewAppointment {
				ids = append(ids, top.ID)
			}
			for _, sub := range top.Folders {
				if sub.View == ViewAppointment {
					ids = append(ids, sub.ID)
				}
			}
		}
	}
	return ids
}

// Instance is one occurrence of an appointment. Times are epoch milliseconds.
type Instance struct {
	Start int64 `json:"s"`
}

// Appointment is an appointment hit of a calendar search.
type Appointment struct {
	ID        string     `json:"id"`
	InviteID  string     `json:"invId"`
	Name      string     `json:"name"`
	Location  string     `json:"loc"`
	FolderID  string     `json:"l"`
	AllDay    Flag       `json:"allDay"`
	Duration  int64      `json:"dur"` // milliseconds
	Instances []Instance `json:"inst"`
}

// FirstStart is the start of the first instance, ok=false when there is none.
func (a *Appointment) FirstStart() (int64, bool) {
	if len(a.Instances) == 0 {
		return 0, false
	}
	return a.Instances[0].Start, true
}

// SearchResponse is a calendar search result.
type SearchResponse struct {
	Appointments []Appointment `json:"appt"`
	More         bool          `json:"more"`
}
