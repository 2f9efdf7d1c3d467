package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// CanModerate is true for moderators and admins.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// Profile is the account record kept alongside the auth identity.
type Profile struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	Email       string    `json:"email" db:"email" gorm:"type:text;not null;uniqueIndex:idx_profiles_email"`
	Name        string    `json:"name" db:"name" gorm:"type:text;not null"`
	Role        Role      `json:"role" db:"role" gorm:"type:text;not null;default:'user'"`
	IsSuspended bool      `json:"is_suspended" db:"is_suspended" gorm:"not null;default:false"`
	AvatarURL   *string   `json:"avatar_url,omitempty" db:"avatar_url" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" gorm:"not null"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Role == "" {
		p.Role = RoleUser
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return nil
}
