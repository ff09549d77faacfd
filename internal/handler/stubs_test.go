package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Shivanand-hulikatti/event-registration/internal/auth"
	"github.com/Shivanand-hulikatti/event-registration/internal/config"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/rs/zerolog"
)

var errBoom = errors.New("boom")

type stubEvents struct {
	create   func(model.CreateEventRequest) (*model.Event, error)
	list     func() ([]model.EventSummary, error)
	upcoming func() ([]model.EventSummary, error)
	details  func(id string) (*model.EventDetails, error)
	stats    func(id string) (*model.EventStats, error)
	register func(id string, who auth.Identity) (*model.Registration, error)
	cancel   func(id string, who auth.Identity) error
}

func (s *stubEvents) CreateEvent(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	return s.create(req)
}

func (s *stubEvents) ListEvents(context.Context) ([]model.EventSummary, error) {
	return s.list()
}

func (s *stubEvents) ListUpcomingEvents(context.Context) ([]model.EventSummary, error) {
	return s.upcoming()
}

func (s *stubEvents) GetEventDetails(_ context.Context, id string) (*model.EventDetails, error) {
	return s.details(id)
}

func (s *stubEvents) GetEventStats(_ context.Context, id string) (*model.EventStats, error) {
	return s.stats(id)
}

func (s *stubEvents) Register(_ context.Context, id string, who auth.Identity) (*model.Registration, error) {
	return s.register(id, who)
}

func (s *stubEvents) CancelRegistration(_ context.Context, id string, who auth.Identity) error {
	return s.cancel(id, who)
}

type stubAccounts struct {
	signup func(model.SignupRequest) (*model.User, *model.Session, error)
	login  func(model.LoginRequest) (*model.User, *model.Session, error)
	logout func(sessionID string) error
	me     func(who auth.Identity) (*model.User, error)
}

func (s *stubAccounts) Signup(_ context.Context, req model.SignupRequest) (*model.User, *model.Session, error) {
	return s.signup(req)
}

func (s *stubAccounts) Login(_ context.Context, req model.LoginRequest) (*model.User, *model.Session, error) {
	return s.login(req)
}

func (s *stubAccounts) Logout(_ context.Context, sessionID string) error {
	return s.logout(sessionID)
}

func (s *stubAccounts) Me(_ context.Context, who auth.Identity) (*model.User, error) {
	return s.me(who)
}

// stubSessions resolves the listed session ids; anything else is anonymous.
type stubSessions map[string]string

func (s stubSessions) Resolve(_ context.Context, sessionID string) (auth.Identity, error) {
	if sessionID == "broken" {
		return auth.Identity{}, errBoom
	}
	if userID, ok := s[sessionID]; ok {
		return auth.Identity{UserID: userID, SessionID: sessionID}, nil
	}
	return auth.Identity{}, nil
}

func newTestRouter(events *stubEvents, accounts *stubAccounts) http.Handler {
	if events == nil {
		events = &stubEvents{}
	}
	if accounts == nil {
		accounts = &stubAccounts{}
	}
	return NewRouter(RouterConfig{
		Events:         events,
		Accounts:       accounts,
		Sessions:       stubSessions{"sess-alice": "user-alice"},
		Logger:         zerolog.Nop(),
		CORS:           config.CORSConfig{AllowedOrigins: []string{"https://app.example"}},
		LoginPerMinute: 3,
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func aliceCookie() *http.Cookie {
	return &http.Cookie{Name: auth.SessionCookieName, Value: "sess-alice"}
}
