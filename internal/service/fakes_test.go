package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var errBoom = errors.New("boom")

var testClock = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testClock }

func nopLogger() zerolog.Logger { return zerolog.Nop() }

// memStore is an in-memory stand-in for the postgres repositories. One mutex
// plays the part of the event row lock.
type memStore struct {
	mu       sync.Mutex
	events   map[string]model.Event
	regs     []model.Registration
	users    map[string]model.User
	sessions map[string]model.Session
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		events:   map[string]model.Event{},
		users:    map[string]model.User{},
		sessions: map[string]model.Session{},
	}
}

func (m *memStore) addEvent(capacity int, at time.Time) model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := model.Event{ID: uuid.NewString(), Title: "Event", Datetime: at, Location: "Hall", Capacity: capacity}
	m.events[e.ID] = e
	return e
}

func (m *memStore) addUser(name, email string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{ID: uuid.NewString(), Name: name, Email: email}
	m.users[u.ID] = u
	return u
}

func (m *memStore) countLocked(eventID string) int {
	n := 0
	for _, r := range m.regs {
		if r.EventID == eventID {
			n++
		}
	}
	return n
}

type memEvents struct{ *memStore }

func (m memEvents) Create(_ context.Context, in model.NewEvent) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	e := model.Event{ID: uuid.NewString(), Title: in.Title, Datetime: in.Datetime, Location: in.Location, Capacity: in.Capacity}
	m.events[e.ID] = e
	return &e, nil
}

func (m memEvents) summaries(keep func(model.Event) bool) []model.EventSummary {
	var out []model.EventSummary
	for _, e := range m.events {
		if keep(e) {
			out = append(out, model.EventSummary{Event: e, RegistrationCount: m.countLocked(e.ID)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Datetime.Equal(out[j].Datetime) {
			return out[i].Datetime.Before(out[j].Datetime)
		}
		return out[i].Location < out[j].Location
	})
	return out
}

func (m memEvents) List(context.Context) ([]model.EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.summaries(func(model.Event) bool { return true }), nil
}

func (m memEvents) ListUpcoming(_ context.Context, now time.Time) ([]model.EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaries(func(e model.Event) bool { return e.Datetime.After(now) }), nil
}

func (m memEvents) GetByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m memEvents) GetSummary(_ context.Context, id string) (*model.EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.EventSummary{Event: e, RegistrationCount: m.countLocked(id)}, nil
}

type memRegistrations struct{ *memStore }

func (m memRegistrations) Register(_ context.Context, eventID, userID string, now time.Time) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	e, ok := m.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.Datetime.Before(now) {
		return nil, repository.ErrEventInPast
	}
	for _, r := range m.regs {
		if r.EventID == eventID && r.UserID == userID {
			return nil, repository.ErrAlreadyRegistered
		}
	}
	if m.countLocked(eventID) >= e.Capacity {
		return nil, repository.ErrEventFull
	}
	r := model.Registration{ID: uuid.NewString(), EventID: eventID, UserID: userID, RegisteredAt: now}
	m.regs = append(m.regs, r)
	return &r, nil
}

func (m memRegistrations) Cancel(_ context.Context, eventID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.regs {
		if r.EventID == eventID && r.UserID == userID {
			m.regs = append(m.regs[:i], m.regs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m memRegistrations) ListUsersByEvent(_ context.Context, eventID string) ([]model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserProfile
	for _, r := range m.regs {
		if r.EventID == eventID {
			u := m.users[r.UserID]
			out = append(out, u.Profile())
		}
	}
	return out, nil
}

type memUsers struct{ *memStore }

func (m memUsers) Create(_ context.Context, name, email, hash string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, repository.ErrEmailTaken
		}
	}
	u := model.User{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: hash}
	m.users[u.ID] = u
	return &u, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type memSessions struct{ *memStore }

func (m memSessions) Create(_ context.Context, userID string, expiresAt time.Time) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Session{ID: uuid.NewString(), UserID: userID, ExpiresAt: expiresAt}
	m.sessions[s.ID] = s
	return &s, nil
}

func (m memSessions) GetActive(_ context.Context, id string, now time.Time) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !s.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m memSessions) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
