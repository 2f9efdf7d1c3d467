package services

import (
	"time"

	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/storage"
)

type Options struct {
	StoreTimeout   time.Duration
	MaxUploadBytes int64

	// Mailer and ModeratorEmails enable queue alerts when both are set.
	Mailer          Mailer
	ModeratorEmails []string
	SiteURL         string
}

// Services bundles the workflows the API exposes.
type Services struct {
	Auth       *auth.Service
	Publishing *Publishing
	Moderation *Moderation
	Users      *Users
	Uploads    *Uploads
}

func New(db database.Database, authSvc *auth.Service, objects storage.ObjectStore, opts Options) *Services {
	retry := DefaultRetrier(opts.StoreTimeout)
	renderer := NewRenderer()
	publishing := NewPublishing(db.Posts(), db.Comments(), renderer, retry)
	moderation := NewModeration(db.Comments(), publishing, renderer, retry).
		WithAlert(NewModeratorAlert(opts.Mailer, opts.ModeratorEmails, opts.SiteURL, retry))
	return &Services{
		Auth:       authSvc,
		Publishing: publishing,
		Moderation: moderation,
		Users:      NewUsers(db.Users(), retry),
		Uploads:    NewUploads(objects, opts.MaxUploadBytes, retry),
	}
}
