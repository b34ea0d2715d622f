package dto

import (
	"eventadmin/internal/model"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound        = "EVENT_NOT_FOUND"
	ConfigInvalid        = "CONFIG_INVALID"
	RegistrationConflict = "REGISTRATION_CONFLICT"
	EventDataInvalid     = "EVENT_DATA_INVALID"
	NothingToUpdate      = "NOTHING_TO_UPDATE"
)

type CreateEventRequest struct {
	Title                    string                `json:"title" validate:"required"`
	Description              string                `json:"description"`
	StartDate                string                `json:"start_date" validate:"omitempty,rfc3339"`
	EndDate                  string                `json:"end_date" validate:"omitempty,rfc3339"`
	PublishDate              string                `json:"publish_date" validate:"omitempty,rfc3339"`
	Venue                    string                `json:"venue"`
	BannerImage              string                `json:"banner_image"`
	Tags                     []string              `json:"tags"`
	EventType                string                `json:"event_type"`
	IsFeatured               bool                  `json:"is_featured"`
	IsGated                  *bool                 `json:"is_gated"`
	AlwaysApprove            *bool                 `json:"always_approve"`
	MoreInfo                 string                `json:"more_info"`
	MoreInfoText             *string               `json:"more_info_text"`
	ExternalRegistrationLink *string               `json:"external_registration_link"`
	Rules                    string                `json:"rules"`
	Slug                     string                `json:"slug" validate:"required,slug"`
	TypeformConfig           model.FieldConfigList `json:"typeform_config" validate:"omitempty,dive"`
}

// UpdateEventRequest carries the partial update payload. Plain string and
// slice fields count as provided only when non-zero; pointer fields count as
// provided whenever the key was present, so false and null can be written.
type UpdateEventRequest struct {
	Title                    string                `json:"title"`
	Description              string                `json:"description"`
	StartDate                string                `json:"start_date" validate:"omitempty,rfc3339"`
	EndDate                  string                `json:"end_date" validate:"omitempty,rfc3339"`
	PublishDate              string                `json:"publish_date" validate:"omitempty,rfc3339"`
	Venue                    string                `json:"venue"`
	BannerImage              string                `json:"banner_image"`
	Tags                     []string              `json:"tags"`
	EventType                string                `json:"event_type"`
	IsFeatured               *bool                 `json:"is_featured"`
	IsGated                  *bool                 `json:"is_gated"`
	AlwaysApprove            *bool                 `json:"always_approve"`
	MoreInfo                 string                `json:"more_info"`
	MoreInfoText             *string               `json:"more_info_text"`
	ExternalRegistrationLink *string               `json:"external_registration_link"`
	Rules                    string                `json:"rules"`
	Slug                     string                `json:"slug" validate:"omitempty,slug"`
	TypeformConfig           model.FieldConfigList `json:"typeform_config" validate:"omitempty,dive"`
}

type RegisterRequest struct {
	ID                string        `json:"id"`
	EventID           string        `json:"event_id" validate:"required"`
	ApplicationID     string        `json:"application_id"`
	RegistrationEmail string        `json:"registration_email" validate:"omitempty,email"`
	Attendance        bool          `json:"attendance"`
	IsApproved        bool          `json:"is_approved"`
	IsTeamEntry       bool          `json:"is_team_entry"`
	Details           model.JSONMap `json:"details"`
	CreatedAt         string        `json:"created_at" validate:"omitempty,rfc3339"`
	TicketID          string        `json:"ticket_id"`
	EventTitle        string        `json:"event_title"`
}

// RegistrationNotifyMessage is published to RabbitMQ for each newly created
// registration; the consumer worker turns it into an email.
type RegistrationNotifyMessage struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	EventTitle     string `json:"event_title"`
	Email          string `json:"email"`
	Approved       bool   `json:"approved"`
}

// RegistrationDetail is one rendered entry of a registration's details
// mapping, labeled through the event's field config.
type RegistrationDetail struct {
	FieldID     string `json:"field_id"`
	Label       string `json:"label"`
	Type        string `json:"type,omitempty"`
	Value       any    `json:"value,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

type RegistrationAdminView struct {
	Registration model.Registration   `json:"registration"`
	DisplayTitle string               `json:"display_title,omitempty"`
	Details      []RegistrationDetail `json:"details,omitempty"`
}

type EventInfoResponse struct {
	Event         model.Event             `json:"event"`
	Registrations []RegistrationAdminView `json:"registrations,omitempty"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func EventNotFoundError(c *ginext.Context) {
	BadResponseError(c, EventNotFound, "Event not found")
}

func RegistrationConflictError(c *ginext.Context, desc string) {
	c.JSON(409, Response{
		Status: "error",
		Error: &Error{
			Code: RegistrationConflict,
			Desc: desc,
		},
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
