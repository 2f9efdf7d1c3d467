package auth

import (
	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
)

// Principal holds the role facts derived once per request from a session
// and its profile.
type Principal struct {
	Session         *Session
	User            *models.Profile
	IsAuthenticated bool
	IsAdmin         bool
	IsModerator     bool
	IsSuspended     bool
}

// Anonymous is the principal of a request without a session.
var Anonymous = Principal{}

// NewPrincipal derives the facts for session. A session whose profile is
// missing stays unauthenticated.
func NewPrincipal(session *Session, user *models.Profile) Principal {
	p := Principal{Session: session, User: user}
	if session == nil || user == nil {
		return p
	}
	p.IsAuthenticated = true
	p.IsAdmin = user.Role.CanAdminister()
	p.IsModerator = user.Role.CanModerate()
	p.IsSuspended = user.IsSuspended
	return p
}

func (p Principal) UserID() uuid.UUID {
	if p.User == nil {
		return uuid.Nil
	}
	return p.User.ID
}

func (p Principal) CanWrite() bool {
	return p.IsAuthenticated && !p.IsSuspended
}

func (p Principal) CanModerate() bool {
	return p.CanWrite() && p.IsModerator
}

func (p Principal) CanAdminister() bool {
	return p.CanWrite() && p.IsAdmin
}

// RequireActive fails unless the principal is signed in and not suspended.
func (p Principal) RequireActive() error {
	if !p.IsAuthenticated {
		return errs.NewUnauthorizedError("sign in required")
	}
	if p.IsSuspended {
		return errs.NewAccountSuspendedError()
	}
	return nil
}

func (p Principal) RequireModerator() error {
	if err := p.RequireActive(); err != nil {
		return err
	}
	if !p.IsModerator {
		return errs.NewInsufficientRoleError(string(models.RoleModerator))
	}
	return nil
}

func (p Principal) RequireAdmin() error {
	if err := p.RequireActive(); err != nil {
		return err
	}
	if !p.IsAdmin {
		return errs.NewInsufficientRoleError(string(models.RoleAdmin))
	}
	return nil
}
