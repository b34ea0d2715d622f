package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"eventadmin/internal/apperr"
	"eventadmin/internal/model"
)

// Change is one column assignment of a partial event update. Order matters:
// the update statement binds parameters in the order changes were built.
type Change struct {
	Column string
	Value  any
}

// eventColumns is the whitelist of mutable event columns. A Change naming
// anything else is dropped before the statement is built.
var eventColumns = map[string]struct{}{
	"title":                      {},
	"description":                {},
	"start_date":                 {},
	"end_date":                   {},
	"publish_date":               {},
	"venue":                      {},
	"banner_image":               {},
	"tags":                       {},
	"event_type":                 {},
	"is_featured":                {},
	"is_gated":                   {},
	"always_approve":             {},
	"more_info":                  {},
	"more_info_text":             {},
	"external_registration_link": {},
	"rules":                      {},
	"slug":                       {},
	"typeform_config":            {},
}

type Repository interface {
	CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error)
	UpdateEvent(ctx context.Context, eventID string, changes []Change) (*model.Event, error)
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetAllEvents(ctx context.Context) ([]model.Event, error)
	RegisterOnce(ctx context.Context, reg *model.Registration) (*model.Registration, bool, error)
	GetRegistrationsByEventID(ctx context.Context, eventID string) ([]model.Registration, error)
	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

const eventCols = `id, title, description, start_date, end_date, publish_date, venue,
		       banner_image, tags, event_type, is_featured, is_gated, always_approve,
		       more_info, more_info_text, external_registration_link, rules, slug,
		       typeform_config, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e                           model.Event
		startDate, endDate, pubDate sql.NullString
		moreInfoText, extLink       sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &startDate, &endDate, &pubDate, &e.Venue,
		&e.BannerImage, pq.Array(&e.Tags), &e.EventType, &e.IsFeatured, &e.IsGated,
		&e.AlwaysApprove, &e.MoreInfo, &moreInfoText, &extLink, &e.Rules, &e.Slug,
		&e.TypeformConfig, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.StartDate = startDate.String
	e.EndDate = endDate.String
	e.PublishDate = pubDate.String
	if moreInfoText.Valid {
		e.MoreInfoText = &moreInfoText.String
	}
	if extLink.Valid {
		e.ExternalRegistrationLink = &extLink.String
	}
	return &e, nil
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (title, description, start_date, end_date, publish_date, venue,
		                    banner_image, tags, event_type, is_featured, is_gated, always_approve,
		                    more_info, more_info_text, external_registration_link, rules, slug,
		                    typeform_config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING ` + eventCols

	row := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, nullString(e.StartDate), nullString(e.EndDate),
		nullString(e.PublishDate), e.Venue, e.BannerImage, pq.Array(e.Tags),
		e.EventType, e.IsFeatured, e.IsGated, e.AlwaysApprove, e.MoreInfo,
		nullStringPtr(e.MoreInfoText), nullStringPtr(e.ExternalRegistrationLink),
		e.Rules, e.Slug, e.TypeformConfig,
	)

	inserted, err := scanEvent(row)
	if err != nil {
		return nil, apperr.Wrap(apperr.Write, "failed to insert event", err)
	}
	return inserted, nil
}

func (r *repository) UpdateEvent(ctx context.Context, eventID string, changes []Change) (*model.Event, error) {
	set := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)
	for _, ch := range changes {
		if _, ok := eventColumns[ch.Column]; !ok {
			continue
		}
		val := ch.Value
		if s, ok := val.([]string); ok {
			val = pq.Array(s)
		}
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", ch.Column, len(args)))
	}
	if len(set) == 0 {
		return nil, apperr.New(apperr.Validation, "no valid fields provided to update")
	}

	args = append(args, eventID)
	query := fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d RETURNING `+eventCols,
		strings.Join(set, ", "), len(args))

	row := r.db.QueryRowContext(ctx, query, args...)
	updated, err := scanEvent(row)
	if err != nil {
		return nil, apperr.Wrap(apperr.Write, "failed to update event", err)
	}
	return updated, nil
}

func (r *repository) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}

	return events, rows.Err()
}

const registrationCols = `id, event_id, application_id, registration_email, attendance,
		       is_approved, is_team_entry, details, created_at, ticket_id, event_title`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg           model.Registration
		appID, email  sql.NullString
		ticket, title sql.NullString
	)
	err := row.Scan(
		&reg.ID, &reg.EventID, &appID, &email, &reg.Attendance,
		&reg.IsApproved, &reg.IsTeamEntry, &reg.Details, &reg.CreatedAt,
		&ticket, &title,
	)
	if err != nil {
		return nil, err
	}
	reg.ApplicationID = appID.String
	reg.RegistrationEmail = email.String
	reg.TicketID = ticket.String
	reg.EventTitle = title.String
	return &reg, nil
}

// RegisterOnce registers a participant exactly once per (event, identity)
// pair. It inserts first and only reads back when the store reports a
// duplicate-key conflict, so there is no check-then-act race: the unique
// indexes are the sole concurrency control. The bool result is true when the
// returned row was created by this call.
func (r *repository) RegisterOnce(ctx context.Context, reg *model.Registration) (*model.Registration, bool, error) {
	query := `
		INSERT INTO eventsregistrations (id, event_id, application_id, registration_email,
		                                 attendance, is_approved, is_team_entry, details,
		                                 created_at, ticket_id, event_title)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), $10, $11)
		RETURNING ` + registrationCols

	var createdAt any
	if !reg.CreatedAt.IsZero() {
		createdAt = reg.CreatedAt
	}

	row := r.db.QueryRowContext(ctx, query,
		reg.ID, reg.EventID, nullString(reg.ApplicationID), nullString(reg.RegistrationEmail),
		reg.Attendance, reg.IsApproved, reg.IsTeamEntry, reg.Details,
		createdAt, nullString(reg.TicketID), nullString(reg.EventTitle),
	)

	inserted, err := scanRegistration(row)
	if err == nil {
		return inserted, true, nil
	}

	if !isDuplicateKeyConflict(err) {
		return nil, false, apperr.Wrap(apperr.Write, "registration failed", err)
	}

	// Duplicate key: exactly one reconciliation read. Application reference
	// takes precedence over the registration email, never both.
	var lookup string
	var key string
	if reg.ApplicationID != "" {
		lookup = `SELECT ` + registrationCols + `
		FROM eventsregistrations WHERE event_id = $1 AND application_id = $2`
		key = reg.ApplicationID
	} else {
		lookup = `SELECT ` + registrationCols + `
		FROM eventsregistrations WHERE event_id = $1 AND registration_email = $2`
		key = reg.RegistrationEmail
	}

	existing, readErr := scanRegistration(r.db.QueryRowContext(ctx, lookup, reg.EventID, key))
	if readErr == nil {
		return existing, false, nil
	}
	if readErr == sql.ErrNoRows {
		return nil, false, apperr.New(apperr.Reconciliation,
			"duplicate detected but existing registration not found")
	}
	return nil, false, apperr.Wrap(apperr.Reconciliation,
		"duplicate detected but existing registration not found", readErr)
}

func (r *repository) GetRegistrationsByEventID(ctx context.Context, eventID string) ([]model.Registration, error) {
	query := `
		SELECT ` + registrationCols + `
		FROM eventsregistrations
		WHERE event_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}

	return regs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
