package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/auth"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/Shivanand-hulikatti/event-registration/internal/validation"
	"github.com/rs/zerolog"
)

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, userID string, expiresAt time.Time) (*model.Session, error)
	GetActive(ctx context.Context, id string, now time.Time) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// AccountService handles sign-up, login and session lookup.
type AccountService struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func NewAccountService(
	users UserStore,
	sessions SessionStore,
	sessionTTL time.Duration,
	logger zerolog.Logger,
	opts ...Option,
) *AccountService {
	o := buildOptions(opts)
	return &AccountService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        o.now,
	}
}

func (s *AccountService) log(ctx context.Context) *zerolog.Logger {
	return loggerFrom(ctx, &s.logger)
}

// Signup creates the account and signs the new user in.
func (s *AccountService) Signup(ctx context.Context, req model.SignupRequest) (*model.User, *model.Session, error) {
	name := strings.TrimSpace(req.Name)
	email := validation.NormalizeEmail(req.Email)
	if err := invalid(validation.ValidateSignup(name, email, req.Password)); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return nil, nil, &ValidationError{Messages: []string{"Password must be at most 72 bytes"}}
		}
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, nil, repository.ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.log(ctx).Info().Str("user_id", user.ID).Str("email", user.Email).Msg("user registered")
	return user, session, nil
}

// Login checks the credentials and opens a new session.
func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.User, *model.Session, error) {
	email := validation.NormalizeEmail(req.Email)
	if err := invalid(validation.ValidateLogin(email, req.Password)); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.log(ctx).Info().Str("user_id", user.ID).Msg("user logged in")
	return user, session, nil
}

func (s *AccountService) startSession(ctx context.Context, userID string) (*model.Session, error) {
	session, err := s.sessions.Create(ctx, userID, s.now().Add(s.sessionTTL))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Logout ends the session. Logging out without a session succeeds.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the signed-in user.
func (s *AccountService) Me(ctx context.Context, who auth.Identity) (*model.User, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, who.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Resolve maps a session cookie to an identity. Unknown and expired sessions
// resolve to the anonymous identity without an error.
func (s *AccountService) Resolve(ctx context.Context, sessionID string) (auth.Identity, error) {
	if sessionID == "" {
		return auth.Identity{}, nil
	}
	session, err := s.sessions.GetActive(ctx, sessionID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return auth.Identity{}, nil
		}
		return auth.Identity{}, fmt.Errorf("resolve session: %w", err)
	}
	return auth.Identity{UserID: session.UserID, SessionID: session.ID}, nil
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *AccountService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		s.log(ctx).Info().Int64("count", n).Msg("expired sessions purged")
	}
	return n, nil
}

// RunSessionJanitor purges expired sessions every interval until ctx ends.
func (s *AccountService) RunSessionJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("session purge failed")
			}
		}
	}
}
