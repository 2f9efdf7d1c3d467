package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"gorm.io/gorm"
)

type PostRepo struct {
	db *gorm.DB
}

func NewPostRepo(db *gorm.DB) *PostRepo {
	return &PostRepo{db}
}

// ListPosts returns posts newest first
func (r *PostRepo) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if filter.PublishedOnly {
		q = q.Where("is_published = ?", true)
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(c))
	}

	var posts []models.Post
	if err := q.Order("published_at DESC").Order("id").Find(&posts).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "posts", err)
	}
	return posts, nil
}

func (r *PostRepo) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("get", "post", err)
	}
	return &post, nil
}

// CreatePost inserts post with a fresh id, no social shares and zero views.
func (r *PostRepo) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	post.ID = uuid.Nil
	post.SocialPosted = models.SocialPosted{}
	post.Views = 0
	if post.PublishedAt.IsZero() {
		post.PublishedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, errs.NewDatabaseError("create", "post", err)
	}
	return &post, nil
}

// TogglePublish flips is_published in a single statement so concurrent
// toggles never observe the same prior value.
func (r *PostRepo) TogglePublish(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", id).
			Update("is_published", gorm.Expr("NOT is_published"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NewNotFound("post")
		}
		return tx.First(&post, "id = ?", id).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError("toggle publish", "post", err)
	}
	return &post, nil
}

// SetSocialPosted marks platform as shared. Only published posts qualify;
// marking an already shared platform succeeds without change.
func (r *PostRepo) SetSocialPosted(ctx context.Context, id uuid.UUID, platform models.Platform) (*models.Post, error) {
	if _, ok := models.ParsePlatform(string(platform)); !ok {
		return nil, errs.NewInvalidFieldError("platform", "unknown platform "+string(platform))
	}

	var post models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ? AND is_published = ?", id, true).
			Update(platform.Column(), true)
		if res.Error != nil {
			return res.Error
		}
		err := tx.First(&post, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("post")
		}
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 && !post.IsPublished {
			return errs.NewPreconditionFailedError("post must be published before it is shared")
		}
		return nil
	})
	if err != nil {
		return nil, errs.NewDatabaseError("share", "post", err)
	}
	return &post, nil
}

func (r *PostRepo) IncrementViews(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", id).
			Update("views", gorm.Expr("views + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NewNotFound("post")
		}
		return tx.First(&post, "id = ?", id).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError("count view", "post", err)
	}
	return &post, nil
}
