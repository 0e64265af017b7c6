package models

import (
	"reflect"
	"strings"

	"github.com/goccy/go-json"
)

// Status is the lifecycle status of a Resource.
type Status string

const (
	StatusActive    Status = "active"
	StatusStopped   Status = "stopped"
	StatusSuspended Status = "suspended"
	StatusTrial     Status = "trial"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusStopped, StatusSuspended, StatusTrial:
		return true
	}
	return false
}

// TrialWindow is the lifetime of a trial resource, in seconds.
const TrialWindow int64 = 72 * 60 * 60

// Snapshot is a point-in-time copy marker attached to a resource.
type Snapshot struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Type      string `json:"type,omitempty"`
}

// Note is a free-text annotation attached to a resource.
type Note struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Note   string `json:"note"`
	TS     int64  `json:"ts"`
}

// ResourceMetadata holds the feature-specific fields of a Resource. None of
// them are read by the lifecycle routines.
type ResourceMetadata struct {
	Name         string     `json:"name,omitempty"`
	Snapshots    []Snapshot `json:"snapshots,omitempty"`
	RestoredFrom string     `json:"restored_from,omitempty"`
	Notes        []Note     `json:"notes,omitempty"`
	IPs          []string   `json:"ips,omitempty"`
	StopReason   string     `json:"stop_reason,omitempty"`
	Provisioned  *bool      `json:"provisioned,omitempty"`
	DockerName   string     `json:"docker_name,omitempty"`
	DockerError  string     `json:"docker_error,omitempty"`
}

// Resource is a simulated VPS.
type Resource struct {
	ID           string   `json:"id"`
	Owner        string   `json:"owner"`
	CPU          int      `json:"cpu"`
	RAM          int      `json:"ram"`
	Storage      int      `json:"storage"`
	Status       Status   `json:"status"`
	SharedWith   []string `json:"shared_with"`
	CreatedAt    string   `json:"created_at"`
	TrialExpires *int64   `json:"trial_expires,omitempty"`
	ResourceMetadata

	// Extra keeps keys this version does not know about so a rewrite does
	// not drop them.
	Extra map[string]json.RawMessage `json:"-"`
}

// resourceFields has the same layout as Resource without its JSON methods.
type resourceFields Resource

var knownResourceKeys = jsonKeys(reflect.TypeOf(resourceFields{}))

func jsonKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			for k := range jsonKeys(f.Type) {
				keys[k] = true
			}
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		keys[name] = true
	}
	return keys
}

// MarshalJSON writes the typed fields followed by any preserved unknown keys.
func (r Resource) MarshalJSON() ([]byte, error) {
	if r.SharedWith == nil {
		r.SharedWith = []string{}
	}
	base, err := json.Marshal(resourceFields(r))
	if err != nil || len(r.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(r.Extra)+16)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if knownResourceKeys[k] {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the typed fields and keeps everything else in Extra.
func (r *Resource) UnmarshalJSON(b []byte) error {
	var f resourceFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownResourceKeys[k] {
			delete(raw, k)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}

	*r = Resource(f)
	r.Extra = raw
	if r.SharedWith == nil {
		r.SharedWith = []string{}
	}
	return nil
}

// TrialDeadline returns the trial expiry, if the resource has one.
func (r *Resource) TrialDeadline() (int64, bool) {
	if r.TrialExpires == nil {
		return 0, false
	}
	return *r.TrialExpires, true
}

// IsSharedWith reports whether account appears in SharedWith.
func (r *Resource) IsSharedWith(account string) bool {
	for _, id := range r.SharedWith {
		if id == account {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of the registry lock.
func (r *Resource) Clone() *Resource {
	c := *r
	c.SharedWith = append([]string{}, r.SharedWith...)
	if r.TrialExpires != nil {
		v := *r.TrialExpires
		c.TrialExpires = &v
	}
	if r.Provisioned != nil {
		v := *r.Provisioned
		c.Provisioned = &v
	}
	c.Snapshots = append([]Snapshot(nil), r.Snapshots...)
	c.Notes = append([]Note(nil), r.Notes...)
	c.IPs = append([]string(nil), r.IPs...)
	if r.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// IPAssignment records which resource holds an address.
type IPAssignment struct {
	VPS        string `json:"vps"`
	AssignedAt int64  `json:"assigned_at"`
}

// PurgeWindow is the process-wide purge event state.
type PurgeWindow struct {
	Active         bool      `json:"active"`
	ProtectedVPS   []string  `json:"protected_vps"`
	ProtectedUsers []string  `json:"protected_users"`
	MessageID      Snowflake `json:"message_id,omitempty"`
	ChannelID      Snowflake `json:"channel_id,omitempty"`
	StartTS        int64     `json:"start_ts,omitempty"`
	EndTS          int64     `json:"end_ts,omitempty"`
	// SweepPending is set while the end-of-window sweep is still owed.
	SweepPending bool `json:"sweep_pending,omitempty"`
}

// ResourcesDocument is the persisted shape of vps_data.json.
type ResourcesDocument struct {
	VPS         map[string]*Resource    `json:"vps"`
	Purge       PurgeWindow             `json:"purge"`
	Maintenance bool                    `json:"maintenance"`
	IPs         map[string]IPAssignment `json:"ips,omitempty"`
}

// NewResourcesDocument returns the empty-but-valid default document.
func NewResourcesDocument() *ResourcesDocument {
	return &ResourcesDocument{
		VPS: make(map[string]*Resource),
		Purge: PurgeWindow{
			ProtectedVPS:   []string{},
			ProtectedUsers: []string{},
		},
	}
}
