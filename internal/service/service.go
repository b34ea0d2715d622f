package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"eventadmin/internal/apperr"
	"eventadmin/internal/dto"
	"eventadmin/internal/model"
	"eventadmin/internal/rabbit"
	"eventadmin/internal/repo"
	"eventadmin/pkg/validator"
)

type Service interface {
	CreateEvent(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	UpdateTypeformConfig(ctx *ginext.Context)
	Register(ctx *ginext.Context)
	GetInfo(ctx *ginext.Context)
	GetAllEvents(ctx *ginext.Context)
}

type service struct {
	repo        repo.Repository
	log         *zerolog.Logger
	rbt         *rabbit.Client
	storageBase string
}

func NewService(repo repo.Repository, logger *zerolog.Logger, rbt *rabbit.Client, storageBase string) Service {
	return &service{
		repo:        repo,
		log:         logger,
		rbt:         rbt,
		storageBase: storageBase,
	}
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("event validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.EventDataInvalid, "Invalid event data")
		return
	}

	event := &model.Event{
		Title:                    req.Title,
		Description:              req.Description,
		StartDate:                req.StartDate,
		EndDate:                  req.EndDate,
		PublishDate:              req.PublishDate,
		Venue:                    req.Venue,
		BannerImage:              req.BannerImage,
		Tags:                     req.Tags,
		EventType:                req.EventType,
		IsFeatured:               req.IsFeatured,
		IsGated:                  req.IsGated != nil && *req.IsGated,
		AlwaysApprove:            req.AlwaysApprove != nil && *req.AlwaysApprove,
		MoreInfo:                 req.MoreInfo,
		MoreInfoText:             req.MoreInfoText,
		ExternalRegistrationLink: req.ExternalRegistrationLink,
		Rules:                    req.Rules,
		Slug:                     req.Slug,
		TypeformConfig:           req.TypeformConfig,
	}

	created, err := s.repo.CreateEvent(ctx, event)
	if err != nil {
		s.log.Error().Err(err).Str("slug", req.Slug).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("event_id", created.ID).Str("slug", created.Slug).Msg("event created successfully")
	dto.SuccessCreatedResponse(ctx, created)
}

// buildUpdateChanges turns the partial payload into an ordered change set.
// Most fields count as provided only when non-zero; boolean and nullable
// fields count as provided whenever the key appeared in the request body.
// The asymmetry is deliberate and matches the admin tooling: an empty string
// cannot be written through this path, but false and null can.
func buildUpdateChanges(req *dto.UpdateEventRequest, present map[string]json.RawMessage) []repo.Change {
	has := func(key string) bool {
		_, ok := present[key]
		return ok
	}

	var changes []repo.Change
	add := func(column string, value any) {
		changes = append(changes, repo.Change{Column: column, Value: value})
	}

	if req.Title != "" {
		add("title", req.Title)
	}
	if req.Description != "" {
		add("description", req.Description)
	}
	if req.StartDate != "" {
		add("start_date", req.StartDate)
	}
	if req.EndDate != "" {
		add("end_date", req.EndDate)
	}
	if req.PublishDate != "" {
		add("publish_date", req.PublishDate)
	}
	if req.Venue != "" {
		add("venue", req.Venue)
	}
	if req.BannerImage != "" {
		add("banner_image", req.BannerImage)
	}
	if req.Tags != nil {
		add("tags", req.Tags)
	}
	if req.EventType != "" {
		add("event_type", req.EventType)
	}
	if has("is_featured") {
		add("is_featured", req.IsFeatured)
	}
	if has("is_gated") {
		add("is_gated", req.IsGated)
	}
	if has("always_approve") {
		add("always_approve", req.AlwaysApprove)
	}
	if req.MoreInfo != "" {
		add("more_info", req.MoreInfo)
	}
	if has("more_info_text") {
		add("more_info_text", req.MoreInfoText)
	}
	if has("external_registration_link") {
		add("external_registration_link", req.ExternalRegistrationLink)
	}
	if req.Rules != "" {
		add("rules", req.Rules)
	}
	if req.Slug != "" {
		add("slug", req.Slug)
	}
	if req.TypeformConfig != nil {
		add("typeform_config", req.TypeformConfig)
	}
	return changes
}

func (s *service) UpdateEvent(ctx *ginext.Context) {
	eventID := ctx.Param("id")

	raw, err := ctx.GetRawData()
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}
	var req dto.UpdateEventRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("event update validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.EventDataInvalid, "Invalid event data")
		return
	}

	updated, err := s.repo.UpdateEvent(ctx, eventID, buildUpdateChanges(&req, present))
	if err != nil {
		s.respondUpdateError(ctx, eventID, err)
		return
	}

	s.log.Info().Str("event_id", eventID).Msg("event updated successfully")
	dto.SuccessResponse(ctx, updated)
}

func (s *service) UpdateTypeformConfig(ctx *ginext.Context) {
	eventID := ctx.Param("id")

	var cfg model.FieldConfigList
	if err := ctx.ShouldBindJSON(&cfg); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}

	for i, f := range cfg {
		if f.ID == "" || f.Label == "" {
			dto.BadResponseError(ctx, dto.ConfigInvalid,
				fmt.Sprintf("Field %d must have id and label", i))
			return
		}
	}
	if id, dup := cfg.DuplicateID(); dup {
		dto.BadResponseError(ctx, dto.ConfigInvalid, "Duplicate field id: "+id)
		return
	}

	updated, err := s.repo.UpdateEvent(ctx, eventID,
		[]repo.Change{{Column: "typeform_config", Value: cfg}})
	if err != nil {
		s.respondUpdateError(ctx, eventID, err)
		return
	}

	s.log.Info().Str("event_id", eventID).Int("fields", len(cfg)).Msg("typeform config updated")
	dto.SuccessResponse(ctx, updated)
}

func (s *service) respondUpdateError(ctx *ginext.Context, eventID string, err error) {
	switch {
	case apperr.IsKind(err, apperr.Validation):
		dto.BadResponseError(ctx, dto.NothingToUpdate, "No valid fields provided to update")
	case errors.Is(err, sql.ErrNoRows):
		dto.EventNotFoundError(ctx)
	default:
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to update event in DB")
		dto.InternalServerError(ctx)
	}
}

func (s *service) Register(ctx *ginext.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	registration := &model.Registration{
		ID:                req.ID,
		EventID:           req.EventID,
		ApplicationID:     req.ApplicationID,
		RegistrationEmail: req.RegistrationEmail,
		Attendance:        req.Attendance,
		IsApproved:        req.IsApproved,
		IsTeamEntry:       req.IsTeamEntry,
		Details:           req.Details,
		TicketID:          req.TicketID,
		EventTitle:        req.EventTitle,
	}
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.TicketID == "" {
		registration.TicketID = uuid.NewString()
	}
	if req.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid created_at timestamp")
			return
		}
		registration.CreatedAt = t
	}

	reg, created, err := s.repo.RegisterOnce(ctx.Request.Context(), registration)
	if err != nil {
		if apperr.IsKind(err, apperr.Reconciliation) {
			// The one alert-worthy state: the store reported a duplicate
			// but the existing row could not be located.
			s.log.Error().Err(err).
				Str("event_id", req.EventID).
				Str("application_id", req.ApplicationID).
				Msg("registration reconciliation failed")
			dto.RegistrationConflictError(ctx, "Duplicate detected but existing registration not found")
			return
		}
		s.log.Error().Err(err).Str("event_id", req.EventID).Msg("failed to register participant")
		dto.InternalServerError(ctx)
		return
	}

	if created {
		s.log.Info().Str("registration_id", reg.ID).Str("event_id", reg.EventID).
			Msg("registration created successfully")
		s.publishNotification(reg)
		dto.SuccessCreatedResponse(ctx, reg)
		return
	}

	s.log.Info().Str("registration_id", reg.ID).Str("event_id", reg.EventID).
		Msg("registration already exists, returning existing row")
	dto.SuccessResponse(ctx, reg)
}

func (s *service) publishNotification(reg *model.Registration) {
	if s.rbt == nil || reg.RegistrationEmail == "" {
		return
	}
	msg := dto.RegistrationNotifyMessage{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		EventTitle:     reg.EventTitle,
		Email:          reg.RegistrationEmail,
		Approved:       reg.IsApproved,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal notification message")
		return
	}
	if err := s.rbt.Publish(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to publish notification to RabbitMQ")
	}
}

func (s *service) GetInfo(ctx *ginext.Context) {
	eventID := ctx.Param("id")
	isAdmin := ctx.Query("admin") == "true"

	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}

	resp := dto.EventInfoResponse{Event: *event}

	if isAdmin {
		registrations, err := s.repo.GetRegistrationsByEventID(ctx, eventID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to get registrations for admin view")
			dto.InternalServerError(ctx)
			return
		}

		for _, r := range registrations {
			resp.Registrations = append(resp.Registrations,
				renderAdminView(event.TypeformConfig, r, s.storageBase))
		}
	}

	dto.SuccessResponse(ctx, resp)
}

// renderAdminView maps a registration's raw details through the event's
// field config: hidden fields are omitted, labels applied, team-name values
// promoted to the display title and file references resolved to download
// URLs against the field's bucket.
func renderAdminView(cfg model.FieldConfigList, reg model.Registration, storageBase string) dto.RegistrationAdminView {
	view := dto.RegistrationAdminView{
		Registration: reg,
		DisplayTitle: reg.RegistrationEmail,
	}

	for _, f := range cfg {
		value, ok := reg.Details[f.ID]
		if f.IsTeamName {
			if name, isStr := value.(string); isStr && name != "" {
				view.DisplayTitle = name
			}
		}
		if f.Hidden || !ok {
			continue
		}

		detail := dto.RegistrationDetail{
			FieldID: f.ID,
			Label:   f.Label,
			Type:    f.Type,
			Value:   value,
		}
		if f.IsFile() {
			if path, isStr := value.(string); isStr && path != "" && storageBase != "" {
				detail.DownloadURL = storageBase + "/" + f.Bucket() + "/" + path
			}
		}
		view.Details = append(view.Details, detail)
	}

	return view
}

func (s *service) GetAllEvents(ctx *ginext.Context) {
	events, err := s.repo.GetAllEvents(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, events)
}
