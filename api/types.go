package api

import (
	"time"

	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rpupo63/nexusnews-backend/models"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	healthHandler  healthHandler
	authHandler    authHandler
	postHandler    postHandler
	commentHandler commentHandler
	userHandler    userHandler
	uploadHandler  uploadHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"title"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// SessionResponse carries the role facts of the caller.
type SessionResponse struct {
	AccessToken     string          `json:"access_token,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	User            *models.Profile `json:"user"`
	IsAuthenticated bool            `json:"is_authenticated"`
	IsAdmin         bool            `json:"is_admin"`
	IsModerator     bool            `json:"is_moderator"`
	IsSuspended     bool            `json:"is_suspended"`
}

func newSessionResponse(p auth.Principal, includeToken bool) SessionResponse {
	resp := SessionResponse{
		User:            p.User,
		IsAuthenticated: p.IsAuthenticated,
		IsAdmin:         p.IsAdmin,
		IsModerator:     p.IsModerator,
		IsSuspended:     p.IsSuspended,
	}
	if includeToken && p.Session != nil && p.Session.AccessToken != "" {
		resp.AccessToken = p.Session.AccessToken
		exp := p.Session.ExpiresAt
		resp.ExpiresAt = &exp
	}
	return resp
}

type commentRequest struct {
	Content string `json:"content"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// UploadResponse is the public URL of a stored image.
type UploadResponse struct {
	URL string `json:"url"`
}

// HealthResponse reports liveness and which store the process runs on.
type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}
