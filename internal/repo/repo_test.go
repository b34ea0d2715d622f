package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"eventadmin/internal/apperr"
	"eventadmin/internal/model"
)

// newMockRepo creates a repository over a sqlmock connection with automatic
// cleanup and expectation checking.
func newMockRepo(t *testing.T) (*repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	log := zerolog.Nop()
	return &repository{db: &dbpg.DB{Master: db}, log: &log}, mock
}

var registrationColumns = []string{
	"id", "event_id", "application_id", "registration_email", "attendance",
	"is_approved", "is_team_entry", "details", "created_at", "ticket_id", "event_title",
}

func registrationRow(id, eventID, appID, email string, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(registrationColumns).AddRow(
		id, eventID, appID, email, false,
		false, false, []byte(`{"name":"Ada"}`), now, "T1", "Launch Party",
	)
}

var eventColumnNames = []string{
	"id", "title", "description", "start_date", "end_date", "publish_date", "venue",
	"banner_image", "tags", "event_type", "is_featured", "is_gated", "always_approve",
	"more_info", "more_info_text", "external_registration_link", "rules", "slug",
	"typeform_config", "created_at",
}

func eventRow(id, title, slug string, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(eventColumnNames).AddRow(
		id, title, "", nil, nil, nil, "",
		"", "{}", "", false, false, false,
		"", nil, nil, "", slug,
		nil, now,
	)
}

func TestRegisterOnceInsertSuccess(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO eventsregistrations").
		WillReturnRows(registrationRow("R1", "E1", "A1", "a@x.com", now))

	reg, created, err := r.RegisterOnce(context.Background(), &model.Registration{
		ID: "R1", EventID: "E1", ApplicationID: "A1", RegistrationEmail: "a@x.com",
	})
	if err != nil {
		t.Fatalf("RegisterOnce: %v", err)
	}
	if !created {
		t.Error("expected created=true for a fresh insert")
	}
	if reg.ID != "R1" || reg.EventID != "E1" {
		t.Errorf("unexpected row: %+v", reg)
	}
}

func TestRegisterOnceConflictByApplicationID(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO eventsregistrations").
		WillReturnError(&pq.Error{Code: "23505"})
	// Reconciliation read keys on application_id, never on the email.
	mock.ExpectQuery(`(?s)SELECT .+ FROM eventsregistrations WHERE event_id = \$1 AND application_id = \$2`).
		WithArgs("E1", "A1").
		WillReturnRows(registrationRow("R1", "E1", "A1", "other@x.com", now))

	reg, created, err := r.RegisterOnce(context.Background(), &model.Registration{
		ID: "R2", EventID: "E1", ApplicationID: "A1", RegistrationEmail: "a@x.com",
	})
	if err != nil {
		t.Fatalf("RegisterOnce: %v", err)
	}
	if created {
		t.Error("expected created=false for a reconciled duplicate")
	}
	if reg.ID != "R1" {
		t.Errorf("expected the pre-existing row R1, got %s", reg.ID)
	}
}

func TestRegisterOnceConflictByEmail(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO eventsregistrations").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(`(?s)SELECT .+ FROM eventsregistrations WHERE event_id = \$1 AND registration_email = \$2`).
		WithArgs("E1", "a@x.com").
		WillReturnRows(registrationRow("R1", "E1", "", "a@x.com", now))

	reg, created, err := r.RegisterOnce(context.Background(), &model.Registration{
		ID: "R2", EventID: "E1", RegistrationEmail: "a@x.com",
	})
	if err != nil {
		t.Fatalf("RegisterOnce: %v", err)
	}
	if created || reg.ID != "R1" {
		t.Errorf("expected existing row R1, got created=%v id=%s", created, reg.ID)
	}
}

func TestRegisterOnceConflictWithoutMatch(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO eventsregistrations").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(`(?s)SELECT .+ FROM eventsregistrations WHERE event_id = \$1 AND application_id = \$2`).
		WithArgs("E1", "A1").
		WillReturnError(sql.ErrNoRows)

	_, _, err := r.RegisterOnce(context.Background(), &model.Registration{
		ID: "R2", EventID: "E1", ApplicationID: "A1",
	})
	if !apperr.IsKind(err, apperr.Reconciliation) {
		t.Fatalf("expected a reconciliation error, got %v", err)
	}
}

func TestRegisterOnceOtherInsertError(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO eventsregistrations").
		WillReturnError(errors.New("connection reset"))

	_, _, err := r.RegisterOnce(context.Background(), &model.Registration{
		ID: "R1", EventID: "E1", ApplicationID: "A1",
	})
	if !apperr.IsKind(err, apperr.Write) {
		t.Fatalf("expected a write error, got %v", err)
	}
	if apperr.IsKind(err, apperr.Reconciliation) {
		t.Error("a non-duplicate failure must not reach the reconciliation path")
	}
}

func TestIsDuplicateKeyConflict(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&pq.Error{Code: "23505"}, true},
		{&pq.Error{Code: "23503"}, false},
		{errors.New(`pq: duplicate key value violates unique constraint "x"`), true},
		{errors.New("ERROR: SQLSTATE 23505"), true},
		{errors.New("connection reset"), false},
	} {
		if got := isDuplicateKeyConflict(tc.err); got != tc.want {
			t.Errorf("isDuplicateKeyConflict(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestUpdateEventEmptyChangeSet(t *testing.T) {
	r, _ := newMockRepo(t)

	_, err := r.UpdateEvent(context.Background(), "E1", nil)
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestUpdateEventUnknownColumnDropped(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	// Only the whitelisted column survives; the statement binds two
	// parameters (title + id).
	mock.ExpectQuery(`UPDATE events SET title = \$1 WHERE id = \$2 RETURNING`).
		WithArgs("New title", "E1").
		WillReturnRows(eventRow("E1", "New title", "launch", now))

	updated, err := r.UpdateEvent(context.Background(), "E1", []Change{
		{Column: "title", Value: "New title"},
		{Column: "evil_column", Value: "x"},
	})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if updated.Title != "New title" {
		t.Errorf("unexpected title %q", updated.Title)
	}
}

func TestUpdateEventOnlyUnknownColumns(t *testing.T) {
	r, _ := newMockRepo(t)

	_, err := r.UpdateEvent(context.Background(), "E1", []Change{
		{Column: "evil_column", Value: "x"},
	})
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestUpdateEventZeroRowsMatched(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE events SET title = \$1 WHERE id = \$2 RETURNING`).
		WillReturnError(sql.ErrNoRows)

	_, err := r.UpdateEvent(context.Background(), "missing", []Change{
		{Column: "title", Value: "x"},
	})
	if !apperr.IsKind(err, apperr.Write) {
		t.Fatalf("expected a write error, got %v", err)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		t.Error("expected the wrapped sql.ErrNoRows to survive")
	}
}

func TestCreateEventReturnsInsertedRow(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(eventRow("E1", "Launch Party", "launch-party", now))

	created, err := r.CreateEvent(context.Background(), &model.Event{
		Title: "Launch Party", Slug: "launch-party",
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.ID != "E1" || created.Slug != "launch-party" {
		t.Errorf("unexpected row: %+v", created)
	}
}

func TestCreateEventWriteError(t *testing.T) {
	r, mock := newMockRepo(t)

	// A slug collision is not specially handled on the create path.
	mock.ExpectQuery("INSERT INTO events").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	_, err := r.CreateEvent(context.Background(), &model.Event{
		Title: "Launch Party", Slug: "launch-party",
	})
	if !apperr.IsKind(err, apperr.Write) {
		t.Fatalf("expected a write error, got %v", err)
	}
}
