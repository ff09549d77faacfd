// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/auth"
	"github.com/Shivanand-hulikatti/event-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/Shivanand-hulikatti/event-registration/internal/validation"
	"github.com/rs/zerolog"
)

// EventStore is the event persistence the service needs.
type EventStore interface {
	Create(ctx context.Context, in model.NewEvent) (*model.Event, error)
	List(ctx context.Context) ([]model.EventSummary, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]model.EventSummary, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetSummary(ctx context.Context, id string) (*model.EventSummary, error)
}

// RegistrationStore admits and removes registrations atomically.
type RegistrationStore interface {
	Register(ctx context.Context, eventID, userID string, now time.Time) (*model.Registration, error)
	Cancel(ctx context.Context, eventID, userID string) error
	ListUsersByEvent(ctx context.Context, eventID string) ([]model.UserProfile, error)
}

// Option customises a service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events        EventStore
	registrations RegistrationStore
	logger        zerolog.Logger
	now           func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	events EventStore,
	registrations RegistrationStore,
	logger zerolog.Logger,
	opts ...Option,
) *EventService {
	o := buildOptions(opts)
	return &EventService{events: events, registrations: registrations, logger: logger, now: o.now}
}

func (s *EventService) log(ctx context.Context) *zerolog.Logger {
	return loggerFrom(ctx, &s.logger)
}

// CreateEvent validates and sanitizes the request and stores the event.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	if err := invalid(validation.ValidateEventAt(req.Title, req.Datetime, req.Location, req.Capacity, s.now())); err != nil {
		return nil, err
	}

	in := model.NewEvent{
		Title:    validation.Sanitize(req.Title),
		Location: validation.Sanitize(req.Location),
	}
	// Stripping brackets can leave nothing behind, e.g. "<>".
	var msgs []string
	if in.Title == "" {
		msgs = append(msgs, "Title is required")
	}
	if in.Location == "" {
		msgs = append(msgs, "Location is required")
	}
	if err := invalid(msgs); err != nil {
		return nil, err
	}
	in.Datetime, _ = validation.ParseDatetime(req.Datetime)
	in.Capacity, _ = validation.ParseCapacity(req.Capacity)

	event, err := s.events.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	metrics.EventsCreatedTotal.Inc()
	s.log(ctx).Info().
		Str("event_id", event.ID).
		Str("title", event.Title).
		Int("capacity", event.Capacity).
		Msg("event created")
	return event, nil
}

// ListEvents returns every event with its registration count.
func (s *EventService) ListEvents(ctx context.Context) ([]model.EventSummary, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.EventSummary{}
	}
	return events, nil
}

// ListUpcomingEvents returns future events ordered by datetime then location.
func (s *EventService) ListUpcomingEvents(ctx context.Context) ([]model.EventSummary, error) {
	events, err := s.events.ListUpcoming(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	if events == nil {
		events = []model.EventSummary{}
	}
	return events, nil
}

// GetEventDetails returns the event and everyone registered for it.
func (s *EventService) GetEventDetails(ctx context.Context, id string) (*model.EventDetails, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	users, err := s.registrations.ListUsersByEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list registered users: %w", err)
	}
	if users == nil {
		users = []model.UserProfile{}
	}
	return &model.EventDetails{Event: *event, RegisteredUsers: users}, nil
}

// GetEventStats reports how much of the event's capacity is used.
func (s *EventService) GetEventStats(ctx context.Context, id string) (*model.EventStats, error) {
	summary, err := s.events.GetSummary(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event stats: %w", err)
	}
	return Stats(summary.Capacity, summary.RegistrationCount), nil
}

// Stats derives the stats payload. percentageUsed is rounded to two decimals.
func Stats(capacity, count int) *model.EventStats {
	var pct float64
	if capacity > 0 {
		pct = math.Round(float64(count)/float64(capacity)*100*100) / 100
	}
	return &model.EventStats{
		TotalRegistrations: count,
		RemainingCapacity:  model.RemainingCapacity(capacity, count),
		PercentageUsed:     pct,
	}
}

// Register admits the caller to an event. Capacity, duplicate and past-event
// rules are enforced inside the store's locked transaction.
func (s *EventService) Register(ctx context.Context, eventID string, who auth.Identity) (*model.Registration, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}

	start := time.Now()
	reg, err := s.registrations.Register(ctx, eventID, who.UserID, s.now())
	metrics.RegistrationDuration.Observe(time.Since(start).Seconds())
	metrics.RegistrationAttempts.WithLabelValues(registrationOutcome(err)).Inc()

	if err != nil {
		// Surface domain errors directly so handlers can set correct HTTP status.
		if errors.Is(err, repository.ErrNotFound) ||
			errors.Is(err, repository.ErrEventFull) ||
			errors.Is(err, repository.ErrAlreadyRegistered) ||
			errors.Is(err, repository.ErrEventInPast) {
			s.log(ctx).Debug().Err(err).
				Str("event_id", eventID).
				Str("user_id", who.UserID).
				Msg("registration rejected")
			return nil, err
		}
		return nil, fmt.Errorf("register for event: %w", err)
	}

	s.log(ctx).Info().
		Str("registration_id", reg.ID).
		Str("event_id", eventID).
		Str("user_id", who.UserID).
		Msg("registration created")
	return reg, nil
}

// CancelRegistration removes the caller's registration for an event.
func (s *EventService) CancelRegistration(ctx context.Context, eventID string, who auth.Identity) error {
	if !who.Authenticated() {
		return ErrUnauthenticated
	}

	if err := s.registrations.Cancel(ctx, eventID, who.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("cancel registration: %w", err)
	}

	metrics.CancellationsTotal.Inc()
	s.log(ctx).Info().
		Str("event_id", eventID).
		Str("user_id", who.UserID).
		Msg("registration cancelled")
	return nil
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, repository.ErrEventFull):
		return metrics.OutcomeFull
	case errors.Is(err, repository.ErrAlreadyRegistered):
		return metrics.OutcomeDuplicate
	case errors.Is(err, repository.ErrEventInPast):
		return metrics.OutcomePast
	case errors.Is(err, repository.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

// loggerFrom prefers the request-scoped logger that carries the request id.
func loggerFrom(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback
}
