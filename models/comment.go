package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentStatus string

const (
	CommentPending  CommentStatus = "pending"
	CommentApproved CommentStatus = "approved"
	CommentFlagged  CommentStatus = "flagged"
	CommentRejected CommentStatus = "rejected"
)

func ParseCommentStatus(s string) (CommentStatus, bool) {
	st := CommentStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

func (s CommentStatus) Valid() bool {
	switch s {
	case CommentPending, CommentApproved, CommentFlagged, CommentRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no moderator action can move a comment out of s.
func (s CommentStatus) IsTerminal() bool {
	return s == CommentApproved || s == CommentRejected
}

// CanTransitionTo encodes the moderation state machine:
// pending -> approved|rejected|flagged, flagged -> approved|rejected.
func (s CommentStatus) CanTransitionTo(next CommentStatus) bool {
	switch s {
	case CommentPending:
		return next == CommentApproved || next == CommentRejected || next == CommentFlagged
	case CommentFlagged:
		return next == CommentApproved || next == CommentRejected
	}
	return false
}

// Comment is reader-submitted text on a post
type Comment struct {
	ID        uuid.UUID     `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	PostID    uuid.UUID     `json:"post_id" db:"post_id" gorm:"type:uuid;not null;index:idx_comments_post_id"`
	UserID    uuid.UUID     `json:"user_id" db:"user_id" gorm:"type:uuid;not null;index:idx_comments_user_id"`
	UserName  string        `json:"user_name" db:"user_name" gorm:"type:text;not null"`
	Content   string        `json:"content" db:"content" gorm:"type:text;not null"`
	Status    CommentStatus `json:"status" db:"status" gorm:"type:text;not null;default:'pending';index:idx_comments_status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at" gorm:"not null"`

	Post *Post    `json:"-" gorm:"foreignKey:PostID;references:ID"`
	User *Profile `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
