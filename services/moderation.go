package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	MaxCommentLength = 2000
	alertTimeout     = 30 * time.Second
)

type Moderation struct {
	comments   database.CommentStore
	publishing *Publishing
	renderer   *Renderer
	retry      Retrier
	alert      *ModeratorAlert
	logger     zerolog.Logger
}

func NewModeration(comments database.CommentStore, publishing *Publishing, renderer *Renderer, retry Retrier) *Moderation {
	return &Moderation{
		comments:   comments,
		publishing: publishing,
		renderer:   renderer,
		retry:      retry,
		logger:     log.With().Str("service", "moderation").Logger(),
	}
}

// WithAlert emails moderators whenever a comment enters the queue.
func (s *Moderation) WithAlert(a *ModeratorAlert) *Moderation {
	s.alert = a
	return s
}

// ListQueue returns every comment, pending first, for moderators.
func (s *Moderation) ListQueue(ctx context.Context, p auth.Principal, page Page) (Paginated[models.Comment], error) {
	if err := p.RequireModerator(); err != nil {
		return Paginated[models.Comment]{}, err
	}
	comments, err := retryValue(ctx, s.retry, "list comments", func(ctx context.Context) ([]models.Comment, error) {
		return s.comments.ListAllComments(ctx)
	})
	if err != nil {
		return Paginated[models.Comment]{}, err
	}
	return Paginate(comments, page), nil
}

// ListApproved returns the public comments of a post p can see.
func (s *Moderation) ListApproved(ctx context.Context, p auth.Principal, postID uuid.UUID) ([]models.Comment, error) {
	post, err := s.publishing.GetPost(ctx, p, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.NewNotFound("post")
	}
	comments, err := retryValue(ctx, s.retry, "list approved comments", func(ctx context.Context) ([]models.Comment, error) {
		return s.comments.ListApprovedComments(ctx, postID)
	})
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// AddComment submits body for moderation on behalf of p. Markup is stripped
// and the author is always taken from the principal.
func (s *Moderation) AddComment(ctx context.Context, p auth.Principal, postID uuid.UUID, body string) (*models.Comment, error) {
	if err := p.RequireActive(); err != nil {
		return nil, err
	}
	text := s.renderer.StripHTML(body)
	if text == "" {
		return nil, errs.NewMissingRequiredFieldError("content")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, errs.NewInvalidFieldError("content", "must be at most 2000 characters")
	}

	post, err := s.publishing.GetPost(ctx, p, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.NewNotFound("post")
	}

	comment, err := onceValue(ctx, s.retry, func(ctx context.Context) (*models.Comment, error) {
		return s.comments.AddComment(ctx, models.Comment{
			PostID:   postID,
			UserID:   p.User.ID,
			UserName: p.User.Name,
			Content:  text,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("commentId", comment.ID.String()).Str("postId", postID.String()).Msg("comment queued for moderation")

	if s.alert != nil {
		queued := *comment
		go func() {
			actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
			defer cancel()
			if err := s.alert.CommentQueued(actx, post, &queued); err != nil {
				s.logger.Warn().Err(err).Str("commentId", queued.ID.String()).Msg("failed to alert moderators")
			}
		}()
	}
	return comment, nil
}

// ModerateComment moves a comment to status. Approved and rejected are
// final; setting the current status again is a no-op.
func (s *Moderation) ModerateComment(ctx context.Context, p auth.Principal, id uuid.UUID, status string) (*models.Comment, error) {
	if err := p.RequireModerator(); err != nil {
		return nil, err
	}
	next, ok := models.ParseCommentStatus(status)
	if !ok {
		return nil, errs.NewInvalidFieldError("status", "must be one of pending, approved, flagged, rejected")
	}

	current, err := retryValue(ctx, s.retry, "get comment", func(ctx context.Context) (*models.Comment, error) {
		return s.comments.GetComment(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errs.NewNotFound("comment")
	}
	if current.Status == next {
		return current, nil
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, errs.NewInvalidTransitionError(string(current.Status), string(next))
	}

	updated, err := retryValue(ctx, s.retry, "update comment status", func(ctx context.Context) (*models.Comment, error) {
		return s.comments.UpdateCommentStatus(ctx, id, next)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("commentId", id.String()).
		Str("from", string(current.Status)).
		Str("to", string(next)).
		Str("by", p.UserID().String()).
		Msg("comment moderated")
	return updated, nil
}
