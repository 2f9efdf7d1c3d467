package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"gorm.io/gorm"
)

type CommentRepo struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) *CommentRepo {
	return &CommentRepo{db}
}

// ListApprovedComments returns the approved comments of a post, newest first
func (r *CommentRepo) ListApprovedComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, models.CommentApproved).
		Order("created_at DESC").Order("id").
		Find(&comments).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "comments", err)
	}
	return comments, nil
}

// ListAllComments returns every comment, pending ones first, then newest first
func (r *CommentRepo) ListAllComments(ctx context.Context) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Order("CASE WHEN status = '" + string(models.CommentPending) + "' THEN 0 ELSE 1 END").
		Order("created_at DESC").Order("id").
		Find(&comments).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "comments", err)
	}
	return comments, nil
}

func (r *CommentRepo) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("get", "comment", err)
	}
	return &comment, nil
}

// AddComment stores comment as pending whatever status the caller supplied.
func (r *CommentRepo) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	comment.ID = uuid.Nil
	comment.Status = models.CommentPending
	comment.CreatedAt = time.Now().UTC()
	comment.Post = nil
	comment.User = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errs.NewNotFound("post")
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError("create", "comment", err)
	}
	return &comment, nil
}

// UpdateCommentStatus overwrites the status. Any status may follow any other.
func (r *CommentRepo) UpdateCommentStatus(ctx context.Context, id uuid.UUID, status models.CommentStatus) (*models.Comment, error) {
	if !status.Valid() {
		return nil, errs.NewInvalidFieldError("status", "unknown status "+string(status))
	}

	var comment models.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Comment{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NewNotFound("comment")
		}
		return tx.First(&comment, "id = ?", id).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError("update status", "comment", err)
	}
	return &comment, nil
}
