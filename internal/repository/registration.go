package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationRepository is the only writer of the registrations table.
type RegistrationRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRegistrationRepository constructs a RegistrationRepository. A positive
// lockTimeout bounds how long Register waits for the event row lock; zero
// leaves it to the caller's context.
func NewRegistrationRepository(db *pgxpool.Pool, lockTimeout time.Duration) *RegistrationRepository {
	return &RegistrationRepository{db: db, lockTimeout: lockTimeout}
}

// Register admits userID to eventID inside a single transaction.
//
// ─────────────────────────────────────────────────────────────────────────────
// RACE CONDITION EXPLAINED
// ─────────────────────────────────────────────────────────────────────────────
//
// Naive read-then-write approach (BROKEN):
//
//	tx A: SELECT COUNT(*) FROM registrations WHERE event_id = X  → 9
//	tx B: SELECT COUNT(*) FROM registrations WHERE event_id = X  → 9
//	tx A: capacity=10, 9 < 10 → INSERT
//	tx B: capacity=10, 9 < 10 → INSERT
//	Result: 11 registrations for a 10-place event.
//
// Both transactions counted the same snapshot before either inserted.
//
// SELECT … FOR UPDATE on the event row makes every registration attempt for
// that event queue behind the current holder until it commits or rolls back.
// The count taken after acquiring the lock therefore includes every
// registration committed before us, and nobody else can insert for this
// event until we finish. Attempts for other events lock other rows and never
// wait on each other.
//
// ─────────────────────────────────────────────────────────────────────────────
func (r *RegistrationRepository) Register(ctx context.Context, eventID, userID string, now time.Time) (*model.Registration, error) {
	if !validID(eventID) {
		return nil, ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// No-op once committed. Uses a context that survives cancellation so a
	// timed-out caller still releases the lock.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())); err != nil {
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	// ── Step 1: Acquire an exclusive row-level lock on the event. ──────────
	var capacity int
	var datetime time.Time
	err = tx.QueryRow(ctx,
		`SELECT capacity, datetime
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&capacity, &datetime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if pgErrorCode(err) == pgLockNotAvailable {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	// ── Step 2: Past events are closed regardless of capacity. ────────────
	if datetime.Before(now) {
		return nil, ErrEventInPast
	}

	// ── Step 3: Check for duplicate registration. ──────────────────────────
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	// ── Step 4: Count under the lock and guard against overbooking. ───────
	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`,
		eventID,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	if count >= capacity {
		return nil, ErrEventFull
	}

	// ── Step 5: Create the registration record. ───────────────────────────
	reg := &model.Registration{
		ID:           uuid.New().String(),
		EventID:      eventID,
		UserID:       userID,
		RegisteredAt: now.UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, event_id, user_id, registered_at)
		 VALUES ($1, $2, $3, $4)`,
		reg.ID, reg.EventID, reg.UserID, reg.RegisteredAt,
	)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	// ── Step 6: Commit – only now does any other transaction see the row. ─
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return reg, nil
}

// Cancel removes the user's registration for the event in a single statement.
// Deleting can only lower the count, so no event lock is taken.
func (r *RegistrationRepository) Cancel(ctx context.Context, eventID, userID string) error {
	if !validID(eventID) || !validID(userID) {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx,
		`DELETE FROM registrations WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsersByEvent returns everyone registered for an event, earliest first.
func (r *RegistrationRepository) ListUsersByEvent(ctx context.Context, eventID string) ([]model.UserProfile, error) {
	if !validID(eventID) {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.name, u.email
		 FROM registrations r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.event_id = $1
		 ORDER BY r.registered_at ASC, r.id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registered users: %w", err)
	}
	defer rows.Close()

	var users []model.UserProfile
	for rows.Next() {
		var u model.UserProfile
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan registered user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountByEvent returns how many registrations an event holds.
func (r *RegistrationRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	if !validID(eventID) {
		return 0, ErrNotFound
	}

	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}
