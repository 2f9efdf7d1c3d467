package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const minPasswordLength = 6

type SessionEventType string

const (
	EventSignedIn       SessionEventType = "signed_in"
	EventSignedOut      SessionEventType = "signed_out"
	EventUserRegistered SessionEventType = "user_registered"
)

type SessionEvent struct {
	Type   SessionEventType
	UserID uuid.UUID
	Email  string
	At     time.Time
}

// Service is the access control entry point: it signs users in and out
// through the identity provider and resolves tokens into principals.
type Service struct {
	provider IdentityProvider
	users    database.UserStore
	logger   zerolog.Logger

	mu        sync.RWMutex
	listeners map[int]func(SessionEvent)
	nextID    int
}

func NewService(provider IdentityProvider, users database.UserStore) *Service {
	return &Service{
		provider:  provider,
		users:     users,
		logger:    log.With().Str("service", "auth").Logger(),
		listeners: make(map[int]func(SessionEvent)),
	}
}

// OnSessionChange registers fn for sign-in, sign-out and registration
// events. The returned func removes it.
func (s *Service) OnSessionChange(fn func(SessionEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) emit(t SessionEventType, userID uuid.UUID, email string) {
	ev := SessionEvent{Type: t, UserID: userID, Email: email, At: time.Now().UTC()}
	s.mu.RLock()
	fns := make([]func(SessionEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Login signs in and loads the profile. Suspended accounts are signed out
// again and refused.
func (s *Service) Login(ctx context.Context, email, password string) (Principal, error) {
	if strings.TrimSpace(email) == "" {
		return Anonymous, errs.NewMissingRequiredFieldError("email")
	}
	if password == "" {
		return Anonymous, errs.NewMissingRequiredFieldError("password")
	}

	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return Anonymous, err
	}

	principal, err := s.principalFor(ctx, session)
	if err != nil {
		return Anonymous, err
	}
	if principal.User == nil {
		s.revoke(ctx, session)
		return Anonymous, errs.NewProfileMissingError(session.UserID.String())
	}
	if principal.IsSuspended {
		s.revoke(ctx, session)
		s.logger.Info().Str("userId", session.UserID.String()).Msg("suspended user refused at login")
		return Anonymous, errs.NewAccountSuspendedError()
	}

	s.emit(EventSignedIn, session.UserID, session.Email)
	return principal, nil
}

// revoke signs out a session that login refused to hand out.
func (s *Service) revoke(ctx context.Context, session *Session) {
	if err := s.provider.SignOut(ctx, session.AccessToken); err != nil {
		s.logger.Error().Err(err).Str("userId", session.UserID.String()).Msg("failed to revoke refused session")
	}
}

// Register creates the identity and the profile record alongside it.
func (s *Service) Register(ctx context.Context, email, password, name string) (Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	switch {
	case email == "":
		return Anonymous, errs.NewMissingRequiredFieldError("email")
	case !strings.Contains(email, "@"):
		return Anonymous, errs.NewInvalidFieldError("email", "not an email address")
	case len(password) < minPasswordLength:
		return Anonymous, errs.NewInvalidFieldError("password", "must be at least 6 characters")
	case name == "":
		return Anonymous, errs.NewMissingRequiredFieldError("name")
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return Anonymous, err
	}
	if existing != nil {
		return Anonymous, errs.NewConflictError("an account with this email already exists")
	}

	session, err := s.provider.SignUp(ctx, email, password, SignUpMeta{Name: name})
	if err != nil {
		return Anonymous, err
	}

	profile, err := s.users.CreateProfile(ctx, models.Profile{
		ID:    session.UserID,
		Email: email,
		Name:  name,
		Role:  models.RoleUser,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("userId", session.UserID.String()).Msg("identity created but profile insert failed")
		return Anonymous, err
	}

	s.emit(EventUserRegistered, session.UserID, email)
	return NewPrincipal(session, profile), nil
}

// Logout revokes the session. A token that is already expired or revoked
// has nothing left to sign out and succeeds.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return errs.NewMissingTokenError()
	}
	session, err := s.provider.Verify(ctx, accessToken)
	if err != nil {
		if errs.IsExpiredTokenError(err) || errs.IsInvalidTokenError(err) {
			s.logger.Debug().Err(err).Msg("logout with a stale token")
			return nil
		}
		return err
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		return err
	}
	s.emit(EventSignedOut, session.UserID, session.Email)
	return nil
}

// Resolve turns a bearer token into a principal. No token yields Anonymous.
func (s *Service) Resolve(ctx context.Context, accessToken string) (Principal, error) {
	if accessToken == "" {
		return Anonymous, nil
	}
	session, err := s.provider.Verify(ctx, accessToken)
	if err != nil {
		return Anonymous, err
	}
	return s.principalFor(ctx, session)
}

func (s *Service) principalFor(ctx context.Context, session *Session) (Principal, error) {
	profile, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		return Anonymous, err
	}
	if profile == nil {
		s.logger.Warn().Str("userId", session.UserID.String()).Msg("no profile for authenticated session")
	}
	return NewPrincipal(session, profile), nil
}
