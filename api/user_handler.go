package api

import (
	"net/http"

	"github.com/rpupo63/nexusnews-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type userHandler struct {
	responder Responder
	logger    zerolog.Logger
	users     *services.Users
	pageSize  int
}

func newUserHandler(users *services.Users, pageSize int) userHandler {
	logger := log.With().Str("handlerName", "userHandler").Logger()
	return userHandler{
		responder: NewResponder(logger),
		logger:    logger,
		users:     users,
		pageSize:  pageSize,
	}
}

// getAllUsers lists every profile for admins
// @Summary List users
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size, at most 100"
// @Success 200 {object} services.Paginated[models.Profile]
// @Failure 403 {object} ErrorResponse "Admins only"
// @Router /users [get]
func (h userHandler) getAllUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromQuery(r, h.pageSize)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		users, err := h.users.ListUsers(r.Context(), ctxGetPrincipal(r.Context()), page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, users)
	}
}

func (h userHandler) toggleSuspension() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.users.ToggleSuspension(r.Context(), ctxGetPrincipal(r.Context()), userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, user)
	}
}

func (h userHandler) updateRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req roleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.users.UpdateRole(r.Context(), ctxGetPrincipal(r.Context()), userID, req.Role)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, user)
	}
}

// updateProfile edits name and avatar
// @Summary Update profile
// @Description Users may edit their own profile; admins may edit any.
// @Tags Users
// @Accept json
// @Produce json
// @Param userID path string true "User ID" format(uuid)
// @Param changes body services.ProfileChanges true "Fields to change"
// @Success 200 {object} models.Profile
// @Router /users/{userID}/profile [put]
func (h userHandler) updateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var changes services.ProfileChanges
		if err := decodeJSON(w, r, &changes); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.users.UpdateProfile(r.Context(), ctxGetPrincipal(r.Context()), userID, changes)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, user)
	}
}

func (h userHandler) deleteUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.users.DeleteUser(r.Context(), ctxGetPrincipal(r.Context()), userID); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
