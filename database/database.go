package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/config"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"gorm.io/gorm"
)

// PostFilter narrows ListPosts. An empty Category matches every category.
type PostFilter struct {
	PublishedOnly bool
	Category      string
}

// ProfileUpdate carries the self-editable profile fields. Nil fields are left alone.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
}

func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.AvatarURL == nil
}

// Lookups by id return (nil, nil) when the row does not exist. Mutations of
// a missing id return an errs not-found error.
type PostStore interface {
	ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)
	TogglePublish(ctx context.Context, id uuid.UUID) (*models.Post, error)
	SetSocialPosted(ctx context.Context, id uuid.UUID, platform models.Platform) (*models.Post, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (*models.Post, error)
}

type CommentStore interface {
	ListApprovedComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	ListAllComments(ctx context.Context) ([]models.Comment, error)
	GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error)
	UpdateCommentStatus(ctx context.Context, id uuid.UUID, status models.CommentStatus) (*models.Comment, error)
}

type UserStore interface {
	ListUsers(ctx context.Context) ([]models.Profile, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetUserByEmail(ctx context.Context, email string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error)
	ToggleSuspension(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.Profile, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type Database struct {
	posts    PostStore
	comments CommentStore
	users    UserStore
	backend  config.Backend
	gormDB   *gorm.DB
}

// New initializes a Database whose stores share one GORM connection
func New(db *gorm.DB) Database {
	return Database{
		posts:    NewPostRepo(db),
		comments: NewCommentRepo(db),
		users:    NewProfileRepo(db),
		backend:  config.BackendRemote,
		gormDB:   db,
	}
}

// NewMemory builds the process-local fallback, seeded with seed.
func NewMemory(seed Seed) Database {
	store := NewMemoryStore(seed)
	return Database{
		posts:    store,
		comments: store,
		users:    store,
		backend:  config.BackendMemory,
	}
}

// Open returns the Database for backend. db is only consulted for BackendRemote.
func Open(backend config.Backend, db *gorm.DB) (Database, error) {
	switch backend {
	case config.BackendRemote:
		if db == nil {
			return Database{}, errs.NewConfigError("database", errs.ErrConfigMissing)
		}
		return New(db), nil
	case config.BackendMemory:
		return NewMemory(DefaultSeed()), nil
	}
	return Database{}, errs.NewConfigError("backend "+backend.String(), errs.ErrConfigInvalid)
}

func (d Database) Posts() PostStore {
	return d.posts
}

func (d Database) Comments() CommentStore {
	return d.comments
}

func (d Database) Users() UserStore {
	return d.users
}

func (d Database) Backend() config.Backend {
	return d.backend
}

// Migrate creates the content tables on the remote store. It is a no-op for the fallback.
func (d Database) Migrate() error {
	if d.gormDB == nil {
		return nil
	}
	if err := models.Migrate(d.gormDB); err != nil {
		return errs.NewDatabaseError("migrate", "schema", err)
	}
	return nil
}

// Ping checks that the backing store answers.
func (d Database) Ping(ctx context.Context) error {
	if d.gormDB == nil {
		return nil
	}
	sqlDB, err := d.gormDB.DB()
	if err != nil {
		return errs.NewDatabaseError("ping", "database", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errs.NewDatabaseError("ping", "database", err)
	}
	return nil
}

func (d Database) Close() error {
	if d.gormDB == nil {
		return nil
	}
	sqlDB, err := d.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
