package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const excerptLength = 160

// PostQuery selects posts for a listing.
type PostQuery struct {
	PublishedOnly bool
	Category      string
}

// PostDraft is what an admin submits to create a post.
type PostDraft struct {
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	ImageURL    string     `json:"image_url"`
	Author      string     `json:"author"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// PostDetail is a post with its public comments and rendered body.
type PostDetail struct {
	models.Post
	ContentHTML string           `json:"content_html"`
	Comments    []models.Comment `json:"comments"`
}

type Publishing struct {
	posts    database.PostStore
	comments database.CommentStore
	renderer *Renderer
	retry    Retrier
	logger   zerolog.Logger
}

func NewPublishing(posts database.PostStore, comments database.CommentStore, renderer *Renderer, retry Retrier) *Publishing {
	return &Publishing{
		posts:    posts,
		comments: comments,
		renderer: renderer,
		retry:    retry,
		logger:   log.With().Str("service", "publishing").Logger(),
	}
}

func (s *Publishing) Categories() []models.Category {
	return models.Categories()
}

// ListPosts returns a page of posts. Drafts are only listed for principals
// that can moderate; everyone else gets published posts whatever they ask for.
func (s *Publishing) ListPosts(ctx context.Context, p auth.Principal, q PostQuery, page Page) (Paginated[models.Post], error) {
	filter := database.PostFilter{PublishedOnly: q.PublishedOnly || !p.CanModerate()}
	if c := strings.TrimSpace(q.Category); c != "" {
		cat, ok := models.ResolveCategory(c)
		if !ok {
			return Paginated[models.Post]{}, errs.NewInvalidFieldError("category", "unknown category "+c)
		}
		filter.Category = cat.Name
	}

	posts, err := retryValue(ctx, s.retry, "list posts", func(ctx context.Context) ([]models.Post, error) {
		return s.posts.ListPosts(ctx, filter)
	})
	if err != nil {
		return Paginated[models.Post]{}, err
	}
	return Paginate(posts, page), nil
}

// GetPost returns the post if p may see it, nil otherwise.
func (s *Publishing) GetPost(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Post, error) {
	post, err := retryValue(ctx, s.retry, "get post", func(ctx context.Context) (*models.Post, error) {
		return s.posts.GetPost(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if post == nil || (!post.IsPublished && !p.CanModerate()) {
		return nil, nil
	}
	return post, nil
}

// GetPostDetail loads the post and its approved comments concurrently,
// counts a view on published posts and renders the body. It returns nil
// when the post does not exist or is a draft p may not see.
func (s *Publishing) GetPostDetail(ctx context.Context, p auth.Principal, id uuid.UUID) (*PostDetail, error) {
	var (
		post     *models.Post
		comments []models.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		post, err = s.GetPost(gctx, p, id)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = retryValue(gctx, s.retry, "list approved comments", func(ctx context.Context) ([]models.Comment, error) {
			return s.comments.ListApprovedComments(ctx, id)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if post == nil {
		return nil, nil
	}

	if post.IsPublished {
		counted, err := onceValue(ctx, s.retry, func(ctx context.Context) (*models.Post, error) {
			return s.posts.IncrementViews(ctx, id)
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("postId", id.String()).Msg("failed to count view")
		} else {
			post = counted
		}
	}

	html, err := s.renderer.RenderContent(post.Content)
	if err != nil {
		s.logger.Error().Err(err).Str("postId", id.String()).Msg("failed to render post content")
		html = ""
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return &PostDetail{Post: *post, ContentHTML: html, Comments: comments}, nil
}

func (s *Publishing) CreatePost(ctx context.Context, p auth.Principal, draft PostDraft) (*models.Post, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(draft.Title)
	content := strings.TrimSpace(draft.Content)
	switch {
	case title == "":
		return nil, errs.NewMissingRequiredFieldError("title")
	case content == "":
		return nil, errs.NewMissingRequiredFieldError("content")
	case draft.Category == "":
		return nil, errs.NewMissingRequiredFieldError("category")
	}
	cat, ok := models.ResolveCategory(draft.Category)
	if !ok {
		return nil, errs.NewInvalidFieldError("category", "unknown category "+draft.Category)
	}

	author := strings.TrimSpace(draft.Author)
	if author == "" && p.User != nil {
		author = p.User.Name
	}
	excerpt := strings.TrimSpace(draft.Excerpt)
	if excerpt == "" {
		excerpt = makeExcerpt(s.renderer.StripHTML(content))
	}

	post := models.Post{
		Title:       title,
		Excerpt:     excerpt,
		Content:     content,
		Category:    cat.Name,
		ImageURL:    strings.TrimSpace(draft.ImageURL),
		Author:      author,
		IsPublished: draft.IsPublished,
	}
	if draft.PublishedAt != nil {
		post.PublishedAt = draft.PublishedAt.UTC()
	}

	created, err := onceValue(ctx, s.retry, func(ctx context.Context) (*models.Post, error) {
		return s.posts.CreatePost(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("postId", created.ID.String()).Str("by", p.UserID().String()).Bool("published", created.IsPublished).Msg("post created")
	return created, nil
}

// TogglePublish is not retried: repeating a flip after an ambiguous
// failure could undo it.
func (s *Publishing) TogglePublish(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Post, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	post, err := onceValue(ctx, s.retry, func(ctx context.Context) (*models.Post, error) {
		return s.posts.TogglePublish(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("postId", id.String()).Bool("published", post.IsPublished).Msg("publish status toggled")
	return post, nil
}

// PublishToSocial only records that the post was shared to platform.
func (s *Publishing) PublishToSocial(ctx context.Context, p auth.Principal, id uuid.UUID, platform string) (*models.Post, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	pl, ok := models.ParsePlatform(platform)
	if !ok {
		return nil, errs.NewInvalidFieldError("platform", "must be facebook or twitter")
	}
	post, err := retryValue(ctx, s.retry, "share post", func(ctx context.Context) (*models.Post, error) {
		return s.posts.SetSocialPosted(ctx, id, pl)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("postId", id.String()).Str("platform", string(pl)).Msg("post marked as shared")
	return post, nil
}

func makeExcerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:excerptLength])
	if i := strings.LastIndex(cut, " "); i > excerptLength/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
