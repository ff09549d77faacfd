package handler

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/event-registration/internal/auth"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
)

// AccountService is the slice of service.AccountService the auth handlers call.
type AccountService interface {
	Signup(ctx context.Context, req model.SignupRequest) (*model.User, *model.Session, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, who auth.Identity) (*model.User, error)
}

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	svc           AccountService
	secureCookies bool
}

// NewAuthHandler constructs an AuthHandler. secureCookies marks the session
// cookie Secure and should be true whenever the site is served over TLS.
func NewAuthHandler(svc AccountService, secureCookies bool) *AuthHandler {
	return &AuthHandler{svc: svc, secureCookies: secureCookies}
}

// Signup handles POST /auth/register
// Creates the account and signs the user in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, session, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "User not found")
		return
	}

	auth.SetSessionCookie(w, session.ID, session.ExpiresAt, h.secureCookies)
	writeJSON(w, http.StatusCreated, model.UserResponse{
		Message: "User registered successfully",
		User:    user.Profile(),
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, session, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "User not found")
		return
	}

	auth.SetSessionCookie(w, session.ID, session.ExpiresAt, h.secureCookies)
	writeJSON(w, http.StatusOK, model.UserResponse{
		Message: "Login successful",
		User:    user.Profile(),
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), auth.SessionID(r)); err != nil {
		writeServiceError(w, r, err, "Session not found")
		return
	}
	auth.ClearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Logout successful"})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, model.UserResponse{User: user.Profile()})
}
