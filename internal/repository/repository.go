// Package repository implements all database queries for the event registration system.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is full")

// ErrAlreadyRegistered is returned when the same user registers twice.
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// ErrEventInPast is returned when registering for an event that already happened.
var ErrEventInPast = errors.New("cannot register for past events")

// ErrEmailTaken is returned when signing up with an email that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// ErrLockTimeout is returned when the event row stayed locked longer than the
// configured lock timeout. The transaction has been rolled back.
var ErrLockTimeout = errors.New("timed out waiting for event lock")

const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// validID reports whether id can be a row key. Malformed ids can never match
// a row, so callers treat them as ErrNotFound instead of sending them to the
// server.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, in model.NewEvent) (*model.Event, error) {
	event := &model.Event{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Datetime:  in.Datetime.UTC(),
		Location:  in.Location,
		Capacity:  in.Capacity,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, datetime, location, capacity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Title, event.Datetime, event.Location, event.Capacity, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

const summarySelect = `SELECT e.id, e.title, e.datetime, e.location, e.capacity, e.created_at,
	        COUNT(r.id) AS registration_count
	   FROM events e
	   LEFT JOIN registrations r ON r.event_id = e.id`

// List returns every event, past ones included, ordered by datetime.
func (r *EventRepository) List(ctx context.Context) ([]model.EventSummary, error) {
	return r.listSummaries(ctx,
		summarySelect+`
		 GROUP BY e.id
		 ORDER BY e.datetime ASC`,
	)
}

// ListUpcoming returns events strictly after now, ordered by datetime and
// then location.
func (r *EventRepository) ListUpcoming(ctx context.Context, now time.Time) ([]model.EventSummary, error) {
	return r.listSummaries(ctx,
		summarySelect+`
		  WHERE e.datetime > $1
		 GROUP BY e.id
		 ORDER BY e.datetime ASC, e.location ASC`,
		now,
	)
}

func (r *EventRepository) listSummaries(ctx context.Context, query string, args ...any) ([]model.EventSummary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		var e model.EventSummary
		if err := rows.Scan(&e.ID, &e.Title, &e.Datetime, &e.Location, &e.Capacity, &e.CreatedAt, &e.RegistrationCount); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, title, datetime, location, capacity, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Datetime, &e.Location, &e.Capacity, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// GetSummary returns one event with its registration count or ErrNotFound.
func (r *EventRepository) GetSummary(ctx context.Context, id string) (*model.EventSummary, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	var e model.EventSummary
	err := r.db.QueryRow(ctx,
		summarySelect+`
		  WHERE e.id = $1
		 GROUP BY e.id`,
		id,
	).Scan(&e.ID, &e.Title, &e.Datetime, &e.Location, &e.Capacity, &e.CreatedAt, &e.RegistrationCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event summary: %w", err)
	}
	return &e, nil
}
