package handler

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/event-registration/internal/auth"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/go-chi/chi/v5"
)

// EventService is the slice of service.EventService the handlers call.
type EventService interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.EventSummary, error)
	ListUpcomingEvents(ctx context.Context) ([]model.EventSummary, error)
	GetEventDetails(ctx context.Context, id string) (*model.EventDetails, error)
	GetEventStats(ctx context.Context, id string) (*model.EventStats, error)
	Register(ctx context.Context, eventID string, who auth.Identity) (*model.Registration, error)
	CancelRegistration(ctx context.Context, eventID string, who auth.Identity) error
}

// EventHandler holds all HTTP handlers for the event registration API.
type EventHandler struct {
	svc EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "Event not found")
		return
	}

	writeJSON(w, http.StatusCreated, model.EventCreatedResponse{
		Message: "Event is created successfully",
		EventID: event.ID,
	})
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListUpcomingEvents handles GET /events/upcoming
func (h *EventHandler) ListUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListUpcomingEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
// Returns the event together with its registered users.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.GetEventDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// GetStats handles GET /events/{id}/stats
func (h *EventHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetEventStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Register handles POST /events/{id}/register
// The caller is taken from the session; the body is ignored.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	_, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusCreated, model.MessageResponse{Message: "Successfully registered for event"})
}

// CancelRegistration handles POST /events/{id}/cancel
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	err := h.svc.CancelRegistration(r.Context(), chi.URLParam(r, "id"), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Registration not found")
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Registration cancelled successfully"})
}
