package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultBucket is the storage bucket used for file-upload fields when a
// field descriptor does not name one.
const DefaultBucket = "registrations"

// Known field types. The Type field accepts arbitrary strings beyond these.
const (
	FieldText        = "text"
	FieldEmail       = "email"
	FieldNumber      = "number"
	FieldSelect      = "select"
	FieldMultiselect = "multiselect"
	FieldTextarea    = "textarea"
	FieldFileUpload  = "file_upload"
	FieldFile        = "file"
	FieldTeamMembers = "team_members"
	FieldDate        = "date"
	FieldURL         = "url"
)

// FieldConfig describes a single field inside an event's typeform_config
// JSON column. The config drives how registration details are displayed in
// the admin view: labels, visibility, file handling, team detection.
type FieldConfig struct {
	ID            string   `json:"id" validate:"required"`
	Label         string   `json:"label" validate:"required"`
	Type          string   `json:"type,omitempty"`
	Hidden        bool     `json:"hidden,omitempty"`
	IsTeamName    bool     `json:"isTeamName,omitempty"`
	IsTeamMembers bool     `json:"isTeamMembers,omitempty"`
	Required      bool     `json:"required,omitempty"`
	Options       []string `json:"options,omitempty"`
	BucketName    string   `json:"bucketName,omitempty"`
}

// Bucket returns the storage bucket for file fields, falling back to
// DefaultBucket when the descriptor omits one.
func (f FieldConfig) Bucket() string {
	if f.BucketName == "" {
		return DefaultBucket
	}
	return f.BucketName
}

// IsFile reports whether the field holds an uploaded file reference.
func (f FieldConfig) IsFile() bool {
	return f.Type == FieldFile || f.Type == FieldFileUpload
}

// FieldConfigList is an ordered typeform_config array, stored as JSONB.
type FieldConfigList []FieldConfig

func (l FieldConfigList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *FieldConfigList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into FieldConfigList", src)
	}
}

// DuplicateID returns the first field id that appears more than once. The
// admin display assumes ids are unique, so the config push rejects arrays
// where this finds one.
func (l FieldConfigList) DuplicateID() (string, bool) {
	seen := make(map[string]struct{}, len(l))
	for _, f := range l {
		if _, ok := seen[f.ID]; ok {
			return f.ID, true
		}
		seen[f.ID] = struct{}{}
	}
	return "", false
}

// JSONMap is a free-form details mapping (field id -> value), stored as JSONB.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
}

// Event dates travel as RFC 3339 strings end to end; Postgres casts them
// into timestamptz columns on write.
type Event struct {
	ID                       string          `db:"id" json:"id"`
	Title                    string          `db:"title" json:"title"`
	Description              string          `db:"description" json:"description,omitempty"`
	StartDate                string          `db:"start_date" json:"start_date,omitempty"`
	EndDate                  string          `db:"end_date" json:"end_date,omitempty"`
	PublishDate              string          `db:"publish_date" json:"publish_date,omitempty"`
	Venue                    string          `db:"venue" json:"venue,omitempty"`
	BannerImage              string          `db:"banner_image" json:"banner_image,omitempty"`
	Tags                     []string        `db:"tags" json:"tags,omitempty"`
	EventType                string          `db:"event_type" json:"event_type,omitempty"`
	IsFeatured               bool            `db:"is_featured" json:"is_featured"`
	IsGated                  bool            `db:"is_gated" json:"is_gated"`
	AlwaysApprove            bool            `db:"always_approve" json:"always_approve"`
	MoreInfo                 string          `db:"more_info" json:"more_info,omitempty"`
	MoreInfoText             *string         `db:"more_info_text" json:"more_info_text,omitempty"`
	ExternalRegistrationLink *string         `db:"external_registration_link" json:"external_registration_link,omitempty"`
	Rules                    string          `db:"rules" json:"rules,omitempty"`
	Slug                     string          `db:"slug" json:"slug"`
	TypeformConfig           FieldConfigList `db:"typeform_config" json:"typeform_config,omitempty"`
	CreatedAt                time.Time       `db:"created_at" json:"created_at"`
}

type Registration struct {
	ID                string    `db:"id" json:"id"`
	EventID           string    `db:"event_id" json:"event_id"`
	ApplicationID     string    `db:"application_id" json:"application_id,omitempty"`
	RegistrationEmail string    `db:"registration_email" json:"registration_email,omitempty"`
	Attendance        bool      `db:"attendance" json:"attendance"`
	IsApproved        bool      `db:"is_approved" json:"is_approved"`
	IsTeamEntry       bool      `db:"is_team_entry" json:"is_team_entry"`
	Details           JSONMap   `db:"details" json:"details,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	TicketID          string    `db:"ticket_id" json:"ticket_id,omitempty"`
	EventTitle        string    `db:"event_title" json:"event_title,omitempty"`
}
