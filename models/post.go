package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform names a social network a post can be shared to.
type Platform string

const (
	PlatformFacebook Platform = "facebook"
	PlatformTwitter  Platform = "twitter"
)

var Platforms = []Platform{PlatformFacebook, PlatformTwitter}

func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformFacebook, PlatformTwitter:
		return p, true
	}
	return "", false
}

// Column is the posts column holding the shared flag for p.
func (p Platform) Column() string {
	return "social_posted_" + string(p)
}

// SocialPosted records which platforms a post has been shared to.
type SocialPosted struct {
	Facebook bool `json:"facebook" gorm:"column:facebook;not null;default:false"`
	Twitter  bool `json:"twitter" gorm:"column:twitter;not null;default:false"`
}

func (s SocialPosted) Has(p Platform) bool {
	switch p {
	case PlatformFacebook:
		return s.Facebook
	case PlatformTwitter:
		return s.Twitter
	}
	return false
}

func (s *SocialPosted) Mark(p Platform) {
	switch p {
	case PlatformFacebook:
		s.Facebook = true
	case PlatformTwitter:
		s.Twitter = true
	}
}

// Post represents an article, either a draft or live
type Post struct {
	ID           uuid.UUID    `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	Title        string       `json:"title" db:"title" gorm:"type:text;not null"`
	Excerpt      string       `json:"excerpt" db:"excerpt" gorm:"type:text;not null;default:''"`
	Content      string       `json:"content" db:"content" gorm:"type:text;not null"`
	Category     string       `json:"category" db:"category" gorm:"type:text;not null;index:idx_posts_category"`
	ImageURL     string       `json:"image_url" db:"image_url" gorm:"type:text;not null;default:''"`
	Author       string       `json:"author" db:"author" gorm:"type:text;not null"`
	PublishedAt  time.Time    `json:"published_at" db:"published_at" gorm:"not null;index:idx_posts_published_at"`
	IsPublished  bool         `json:"is_published" db:"is_published" gorm:"not null;default:false"`
	SocialPosted SocialPosted `json:"social_posted" gorm:"embedded;embeddedPrefix:social_posted_"`
	Views        int64        `json:"views" db:"views" gorm:"not null;default:0"`
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
