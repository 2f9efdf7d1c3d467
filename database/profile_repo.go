package database

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"gorm.io/gorm"
)

type ProfileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db}
}

func (r *ProfileRepo) ListUsers(ctx context.Context) ([]models.Profile, error) {
	var users []models.Profile
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("email").Find(&users).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "users", err)
	}
	return users, nil
}

func (r *ProfileRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProfileRepo) GetUserByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *ProfileRepo) first(ctx context.Context, query string, arg interface{}) (*models.Profile, error) {
	var user models.Profile
	err := r.db.WithContext(ctx).First(&user, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("get", "user", err)
	}
	return &user, nil
}

// CreateProfile inserts the profile row that accompanies a new identity.
// The identity's id is kept when set.
func (r *ProfileRepo) CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	if profile.Role == "" {
		profile.Role = models.RoleUser
	}
	if !profile.Role.Valid() {
		return nil, errs.NewInvalidFieldError("role", "unknown role "+string(profile.Role))
	}
	if err := r.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, errs.NewDatabaseError("create", "user", err)
	}
	return &profile, nil
}

func (r *ProfileRepo) ToggleSuspension(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return r.update(ctx, "toggle suspension", id, map[string]interface{}{
		"is_suspended": gorm.Expr("NOT is_suspended"),
	})
}

func (r *ProfileRepo) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, errs.NewInvalidFieldError("role", "unknown role "+string(role))
	}
	return r.update(ctx, "update role", id, map[string]interface{}{"role": role})
}

func (r *ProfileRepo) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.Profile, error) {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.AvatarURL != nil {
		fields["avatar_url"] = *update.AvatarURL
	}
	if len(fields) == 0 {
		user, err := r.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, errs.NewNotFound("user")
		}
		return user, nil
	}
	return r.update(ctx, "update profile", id, fields)
}

// update applies fields in one statement and returns the row as stored.
func (r *ProfileRepo) update(ctx context.Context, op string, id uuid.UUID, fields map[string]interface{}) (*models.Profile, error) {
	var user models.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NewNotFound("user")
		}
		return tx.First(&user, "id = ?", id).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError(op, "user", err)
	}
	return &user, nil
}

// DeleteUser removes the user's comments and then the profile, atomically.
func (r *ProfileRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Profile{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NewNotFound("user")
		}
		return nil
	})
	if err != nil {
		return errs.NewDatabaseError("delete", "user", err)
	}
	return nil
}
