// Package model defines the core domain types for the event registration system.
package model

import (
	"encoding/json"
	"time"
)

// MaxCapacity is the largest capacity an event may be created with.
const MaxCapacity = 1000

// Event represents a scheduled activity with a finite number of places.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Datetime  time.Time `json:"datetime"`
	Location  string    `json:"location"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

// EventSummary is an event annotated with its current registration count.
type EventSummary struct {
	Event
	RegistrationCount int `json:"registration_count"`
}

// Remaining returns the number of places left, never below zero.
func (e *EventSummary) Remaining() int {
	return RemainingCapacity(e.Capacity, e.RegistrationCount)
}

// IsFull returns true when no places remain.
func (e *EventSummary) IsFull() bool {
	return e.RegistrationCount >= e.Capacity
}

// RemainingCapacity clamps capacity-count at zero.
func RemainingCapacity(capacity, count int) int {
	if count >= capacity {
		return 0
	}
	return capacity - count
}

// EventDetails is an event together with everyone currently registered for it.
type EventDetails struct {
	Event
	RegisteredUsers []UserProfile `json:"registeredUsers"`
}

// EventStats summarises how much of an event's capacity is taken.
type EventStats struct {
	TotalRegistrations int     `json:"totalRegistrations"`
	RemainingCapacity  int     `json:"remainingCapacity"`
	PercentageUsed     float64 `json:"percentageUsed"`
}

// User is an account holder. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile strips the user down to the fields safe to show other people.
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserProfile is the public identity of a user.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Registration links one user to one event.
type Registration struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Session maps a cookie token to a signed-in user.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CreateEventRequest is the payload for creating a new event. Capacity is
// kept as a json.Number so non-integer input can be reported instead of
// failing the decode.
type CreateEventRequest struct {
	Title    string      `json:"title"`
	Datetime string      `json:"datetime"`
	Location string      `json:"location"`
	Capacity json.Number `json:"capacity"`
}

// NewEvent is a validated, sanitized event ready to be stored.
type NewEvent struct {
	Title    string
	Datetime time.Time
	Location string
	Capacity int
}

// SignupRequest is the payload for POST /auth/register.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// MessageResponse is returned by endpoints that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// EventCreatedResponse is returned by POST /events.
type EventCreatedResponse struct {
	Message string `json:"message"`
	EventID string `json:"eventId"`
}

// UserResponse wraps a user profile, optionally with a message.
type UserResponse struct {
	Message string      `json:"message,omitempty"`
	User    UserProfile `json:"user"`
}

// BookingResult summarises the outcome of a single registration attempt.
// Used by the concurrent registration tests.
type BookingResult struct {
	UserID  string
	Success bool
	Error   error
}
