package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ProfileChanges are the fields a user may edit on a profile.
type ProfileChanges struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type Users struct {
	users  database.UserStore
	retry  Retrier
	logger zerolog.Logger
}

func NewUsers(users database.UserStore, retry Retrier) *Users {
	return &Users{
		users:  users,
		retry:  retry,
		logger: log.With().Str("service", "users").Logger(),
	}
}

func (s *Users) ListUsers(ctx context.Context, p auth.Principal, page Page) (Paginated[models.Profile], error) {
	if err := p.RequireAdmin(); err != nil {
		return Paginated[models.Profile]{}, err
	}
	users, err := retryValue(ctx, s.retry, "list users", func(ctx context.Context) ([]models.Profile, error) {
		return s.users.ListUsers(ctx)
	})
	if err != nil {
		return Paginated[models.Profile]{}, err
	}
	return Paginate(users, page), nil
}

// ToggleSuspension is refused on the caller's own account so an admin
// cannot lock themselves out.
func (s *Users) ToggleSuspension(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Profile, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	if id == p.UserID() {
		return nil, errs.NewForbiddenError("administrators cannot suspend their own account")
	}
	user, err := onceValue(ctx, s.retry, func(ctx context.Context) (*models.Profile, error) {
		return s.users.ToggleSuspension(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("userId", id.String()).Bool("suspended", user.IsSuspended).Str("by", p.UserID().String()).Msg("suspension toggled")
	return user, nil
}

func (s *Users) UpdateRole(ctx context.Context, p auth.Principal, id uuid.UUID, role string) (*models.Profile, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	r, ok := models.ParseRole(role)
	if !ok {
		return nil, errs.NewInvalidFieldError("role", "must be one of user, moderator, admin")
	}
	user, err := retryValue(ctx, s.retry, "update role", func(ctx context.Context) (*models.Profile, error) {
		return s.users.UpdateRole(ctx, id, r)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("userId", id.String()).Str("role", string(r)).Str("by", p.UserID().String()).Msg("role updated")
	return user, nil
}

// UpdateProfile lets users edit their own name and avatar; admins may edit anyone.
func (s *Users) UpdateProfile(ctx context.Context, p auth.Principal, id uuid.UUID, changes ProfileChanges) (*models.Profile, error) {
	if err := p.RequireActive(); err != nil {
		return nil, err
	}
	if id != p.UserID() && !p.CanAdminister() {
		return nil, errs.NewForbiddenError("cannot edit another user's profile")
	}

	var update database.ProfileUpdate
	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		if name == "" {
			return nil, errs.NewInvalidFieldError("name", "must not be empty")
		}
		update.Name = &name
	}
	if changes.AvatarURL != nil {
		avatar := strings.TrimSpace(*changes.AvatarURL)
		if avatar != "" && !isAcceptableImageURL(avatar) {
			return nil, errs.NewInvalidFieldError("avatar_url", "must be an http(s) URL or an uploaded blob")
		}
		update.AvatarURL = &avatar
	}
	if update.Empty() {
		return nil, errs.NewBadRequestError("nothing to update")
	}

	return retryValue(ctx, s.retry, "update profile", func(ctx context.Context) (*models.Profile, error) {
		return s.users.UpdateProfile(ctx, id, update)
	})
}

// DeleteUser removes the user and every comment they wrote.
func (s *Users) DeleteUser(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := p.RequireAdmin(); err != nil {
		return err
	}
	if id == p.UserID() {
		return errs.NewForbiddenError("administrators cannot delete their own account")
	}
	if err := s.retry.Once(ctx, func(ctx context.Context) error {
		return s.users.DeleteUser(ctx, id)
	}); err != nil {
		return err
	}
	s.logger.Info().Str("userId", id.String()).Str("by", p.UserID().String()).Msg("user deleted")
	return nil
}

func isAcceptableImageURL(u string) bool {
	return strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "/blobs/")
}
