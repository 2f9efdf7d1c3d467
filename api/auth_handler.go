package api

import (
	"net/http"

	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type authHandler struct {
	responder Responder
	logger    zerolog.Logger
	auth      *auth.Service
}

func newAuthHandler(authService *auth.Service) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()
	return authHandler{
		responder: NewResponder(logger),
		logger:    logger,
		auth:      authService,
	}
}

// login signs a user in
// @Summary Log in
// @Description Exchanges email and password for an access token and the caller's role facts
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "Email and password"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 403 {object} ErrorResponse "Account suspended"
// @Router /auth/login [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		principal, err := h.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, newSessionResponse(principal, true))
	}
}

// register creates an account with role user
// @Summary Register
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "Email, password and display name"
// @Success 201 {object} SessionResponse
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h authHandler) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		principal, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, newSessionResponse(principal, true))
	}
}

func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.Logout(r.Context(), ctxGetAccessToken(r.Context())); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// session returns the role facts of the caller, anonymous included.
func (h authHandler) session() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, newSessionResponse(ctxGetPrincipal(r.Context()), false))
	}
}
