package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/services"
	"github.com/rpupo63/nexusnews-backend/storage"
)

const maxJSONBodyBytes = 1 << 20

// Deps are the collaborators the router serves.
type Deps struct {
	Services *services.Services
	Database database.Database
	// Blobs is set when uploads are kept in memory and served under /blobs.
	Blobs       *storage.MemoryStore
	PageSize    int
	StartupTime time.Time
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(d Deps) *routeHandlers {
	return &routeHandlers{
		healthHandler:  newHealthHandler(d.Database, d.StartupTime),
		authHandler:    newAuthHandler(d.Services.Auth),
		postHandler:    newPostHandler(d.Services.Publishing, d.PageSize),
		commentHandler: newCommentHandler(d.Services.Moderation, d.PageSize),
		userHandler:    newUserHandler(d.Services.Users, d.PageSize),
		uploadHandler:  newUploadHandler(d.Services.Uploads, d.Blobs),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewMaxBodySizeExceededError(maxErr.Limit)
		}
		return errs.NewInvalidJSONError(err)
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, errs.NewMissingRequiredFieldError(name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewInvalidFieldError(name, "must be a UUID")
	}
	return id, nil
}

func pageFromQuery(r *http.Request, defaultPerPage int) (services.Page, error) {
	q := r.URL.Query()
	return services.ParsePage(q.Get("page"), q.Get("per_page"), defaultPerPage)
}
