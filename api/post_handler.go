package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type postHandler struct {
	responder  Responder
	logger     zerolog.Logger
	publishing *services.Publishing
	pageSize   int
}

func newPostHandler(publishing *services.Publishing, pageSize int) postHandler {
	logger := log.With().Str("handlerName", "postHandler").Logger()
	return postHandler{
		responder:  NewResponder(logger),
		logger:     logger,
		publishing: publishing,
		pageSize:   pageSize,
	}
}

func (h postHandler) getCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, h.publishing.Categories())
	}
}

// getPosts lists posts newest first
// @Summary List posts
// @Description Published posts for everyone. Moderators and admins may pass published=false to include drafts.
// @Tags Posts
// @Produce json
// @Param published query bool false "Only published posts (default true)"
// @Param category query string false "Category name or slug"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size, at most 100"
// @Success 200 {object} services.Paginated[models.Post]
// @Failure 400 {object} ErrorResponse "Unknown category or bad paging"
// @Router /posts [get]
func (h postHandler) getPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromQuery(r, h.pageSize)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		q := services.PostQuery{
			PublishedOnly: true,
			Category:      r.URL.Query().Get("category"),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("published")); raw != "" {
			published, err := strconv.ParseBool(raw)
			if err != nil {
				h.responder.WriteError(w, errs.NewInvalidFieldError("published", "must be true or false"))
				return
			}
			q.PublishedOnly = published
		}

		posts, err := h.publishing.ListPosts(r.Context(), ctxGetPrincipal(r.Context()), q, page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, posts)
	}
}

// getPost returns a post with its approved comments
// @Summary Get post
// @Tags Posts
// @Produce json
// @Param postID path string true "Post ID" format(uuid)
// @Success 200 {object} services.PostDetail
// @Failure 404 {object} ErrorResponse "Not Found - missing or not visible"
// @Router /posts/{postID} [get]
func (h postHandler) getPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		detail, err := h.publishing.GetPostDetail(r.Context(), ctxGetPrincipal(r.Context()), postID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if detail == nil {
			h.responder.WriteError(w, errs.NewNotFound("post"))
			return
		}
		h.responder.WriteJSON(w, detail)
	}
}

// createPost creates a post
// @Summary Create post
// @Tags Posts
// @Accept json
// @Produce json
// @Param post body services.PostDraft true "Post data"
// @Success 201 {object} models.Post
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid post data"
// @Failure 403 {object} ErrorResponse "Admins only"
// @Router /posts [post]
func (h postHandler) createPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft services.PostDraft
		if err := decodeJSON(w, r, &draft); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		post, err := h.publishing.CreatePost(r.Context(), ctxGetPrincipal(r.Context()), draft)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, post)
	}
}

func (h postHandler) togglePublish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		post, err := h.publishing.TogglePublish(r.Context(), ctxGetPrincipal(r.Context()), postID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, post)
	}
}

// publishToSocial marks the post as shared on a platform
// @Summary Mark post shared
// @Description Records the share flag only. Repeating the call is harmless.
// @Tags Posts
// @Produce json
// @Param postID path string true "Post ID" format(uuid)
// @Param platform path string true "facebook or twitter"
// @Success 200 {object} models.Post
// @Failure 409 {object} ErrorResponse "Post is still a draft"
// @Router /posts/{postID}/social/{platform} [post]
func (h postHandler) publishToSocial() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		post, err := h.publishing.PublishToSocial(r.Context(), ctxGetPrincipal(r.Context()), postID, chi.URLParam(r, "platform"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, post)
	}
}
