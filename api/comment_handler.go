package api

import (
	"net/http"

	"github.com/rpupo63/nexusnews-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type commentHandler struct {
	responder  Responder
	logger     zerolog.Logger
	moderation *services.Moderation
	pageSize   int
}

func newCommentHandler(moderation *services.Moderation, pageSize int) commentHandler {
	logger := log.With().Str("handlerName", "commentHandler").Logger()
	return commentHandler{
		responder:  NewResponder(logger),
		logger:     logger,
		moderation: moderation,
		pageSize:   pageSize,
	}
}

func (h commentHandler) getPostComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comments, err := h.moderation.ListApproved(r.Context(), ctxGetPrincipal(r.Context()), postID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, comments)
	}
}

// addComment queues a comment for moderation
// @Summary Add comment
// @Tags Comments
// @Accept json
// @Produce json
// @Param postID path string true "Post ID" format(uuid)
// @Param comment body commentRequest true "Comment text"
// @Success 201 {object} models.Comment "Comment in pending status"
// @Failure 401 {object} ErrorResponse "Sign in required"
// @Failure 403 {object} ErrorResponse "Account suspended"
// @Router /posts/{postID}/comments [post]
func (h commentHandler) addComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuidParam(r, "postID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req commentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comment, err := h.moderation.AddComment(r.Context(), ctxGetPrincipal(r.Context()), postID, req.Content)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, comment)
	}
}

// getAllComments is the moderation queue, pending first.
func (h commentHandler) getAllComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromQuery(r, h.pageSize)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comments, err := h.moderation.ListQueue(r.Context(), ctxGetPrincipal(r.Context()), page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, comments)
	}
}

// updateCommentStatus moderates a comment
// @Summary Moderate comment
// @Tags Comments
// @Accept json
// @Produce json
// @Param commentID path string true "Comment ID" format(uuid)
// @Param status body statusRequest true "pending, approved, flagged or rejected"
// @Success 200 {object} models.Comment
// @Failure 409 {object} ErrorResponse "Transition not allowed"
// @Router /comments/{commentID}/status [put]
func (h commentHandler) updateCommentStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, err := uuidParam(r, "commentID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req statusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comment, err := h.moderation.ModerateComment(r.Context(), ctxGetPrincipal(r.Context()), commentID, req.Status)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, comment)
	}
}
