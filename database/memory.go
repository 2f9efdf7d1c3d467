package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
)

// MemoryStore is the process-local fallback. It implements PostStore,
// CommentStore and UserStore under one lock and hands out copies only.
type MemoryStore struct {
	mu       sync.RWMutex
	posts    map[uuid.UUID]models.Post
	comments map[uuid.UUID]models.Comment
	users    map[uuid.UUID]models.Profile
	now      func() time.Time
}

var (
	_ PostStore    = (*MemoryStore)(nil)
	_ CommentStore = (*MemoryStore)(nil)
	_ UserStore    = (*MemoryStore)(nil)
)

func NewMemoryStore(seed Seed) *MemoryStore {
	m := &MemoryStore{
		posts:    make(map[uuid.UUID]models.Post, len(seed.Posts)),
		comments: make(map[uuid.UUID]models.Comment, len(seed.Comments)),
		users:    make(map[uuid.UUID]models.Profile, len(seed.Users)),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, u := range seed.Users {
		m.users[u.ID] = cloneProfile(u)
	}
	for _, p := range seed.Posts {
		m.posts[p.ID] = p
	}
	for _, c := range seed.Comments {
		c.Post, c.User = nil, nil
		m.comments[c.ID] = c
	}
	return m
}

func cloneProfile(p models.Profile) models.Profile {
	if p.AvatarURL != nil {
		v := *p.AvatarURL
		p.AvatarURL = &v
	}
	return p
}

// Posts

func (m *MemoryStore) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	category := strings.TrimSpace(filter.Category)

	m.mu.RLock()
	posts := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		if filter.PublishedOnly && !p.IsPublished {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		posts = append(posts, p)
	}
	m.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].PublishedAt.Equal(posts[j].PublishedAt) {
			return posts[i].PublishedAt.After(posts[j].PublishedAt)
		}
		return posts[i].ID.String() < posts[j].ID.String()
	})
	return posts, nil
}

func (m *MemoryStore) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	post.ID = uuid.New()
	post.SocialPosted = models.SocialPosted{}
	post.Views = 0
	if post.PublishedAt.IsZero() {
		post.PublishedAt = m.now()
	}

	m.mu.Lock()
	m.posts[post.ID] = post
	m.mu.Unlock()
	return &post, nil
}

// mutatePost applies fn to the stored post under the write lock.
func (m *MemoryStore) mutatePost(ctx context.Context, id uuid.UUID, fn func(*models.Post) error) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, errs.NewNotFound("post")
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	m.posts[id] = p
	return &p, nil
}

func (m *MemoryStore) TogglePublish(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return m.mutatePost(ctx, id, func(p *models.Post) error {
		p.IsPublished = !p.IsPublished
		return nil
	})
}

func (m *MemoryStore) SetSocialPosted(ctx context.Context, id uuid.UUID, platform models.Platform) (*models.Post, error) {
	if _, ok := models.ParsePlatform(string(platform)); !ok {
		return nil, errs.NewInvalidFieldError("platform", "unknown platform "+string(platform))
	}
	return m.mutatePost(ctx, id, func(p *models.Post) error {
		if !p.IsPublished {
			return errs.NewPreconditionFailedError("post must be published before it is shared")
		}
		p.SocialPosted.Mark(platform)
		return nil
	})
}

func (m *MemoryStore) IncrementViews(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return m.mutatePost(ctx, id, func(p *models.Post) error {
		p.Views++
		return nil
	})
}

// Comments

func (m *MemoryStore) ListApprovedComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var comments []models.Comment
	for _, c := range m.comments {
		if c.PostID == postID && c.Status == models.CommentApproved {
			comments = append(comments, c)
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(comments)
	return comments, nil
}

func (m *MemoryStore) ListAllComments(ctx context.Context) ([]models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	comments := make([]models.Comment, 0, len(m.comments))
	for _, c := range m.comments {
		comments = append(comments, c)
	}
	m.mu.RUnlock()

	sortNewestFirst(comments)
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Status == models.CommentPending && comments[j].Status != models.CommentPending
	})
	return comments, nil
}

func sortNewestFirst(comments []models.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID.String() < comments[j].ID.String()
	})
}

func (m *MemoryStore) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryStore) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	comment.ID = uuid.New()
	comment.Status = models.CommentPending
	comment.Post, comment.User = nil, nil

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[comment.PostID]; !ok {
		return nil, errs.NewNotFound("post")
	}
	comment.CreatedAt = m.now()
	m.comments[comment.ID] = comment
	return &comment, nil
}

func (m *MemoryStore) UpdateCommentStatus(ctx context.Context, id uuid.UUID, status models.CommentStatus) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, errs.NewInvalidFieldError("status", "unknown status "+string(status))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, errs.NewNotFound("comment")
	}
	c.Status = status
	m.comments[id] = c
	return &c, nil
}

// Users

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	users := make([]models.Profile, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, cloneProfile(u))
	}
	m.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Email < users[j].Email
	})
	return users, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u = cloneProfile(u)
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			u = cloneProfile(u)
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if profile.Role == "" {
		profile.Role = models.RoleUser
	}
	if !profile.Role.Valid() {
		return nil, errs.NewInvalidFieldError("role", "unknown role "+string(profile.Role))
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	now := m.now()
	profile.CreatedAt, profile.UpdatedAt = now, now

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[profile.ID]; ok {
		return nil, errs.NewAlreadyExists("user")
	}
	for _, u := range m.users {
		if u.Email == profile.Email {
			return nil, errs.NewAlreadyExists("user")
		}
	}
	m.users[profile.ID] = cloneProfile(profile)
	return &profile, nil
}

func (m *MemoryStore) mutateUser(ctx context.Context, id uuid.UUID, fn func(*models.Profile)) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errs.NewNotFound("user")
	}
	fn(&u)
	u.UpdatedAt = m.now()
	m.users[id] = cloneProfile(u)
	return &u, nil
}

func (m *MemoryStore) ToggleSuspension(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return m.mutateUser(ctx, id, func(u *models.Profile) {
		u.IsSuspended = !u.IsSuspended
	})
}

func (m *MemoryStore) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, errs.NewInvalidFieldError("role", "unknown role "+string(role))
	}
	return m.mutateUser(ctx, id, func(u *models.Profile) {
		u.Role = role
	})
}

func (m *MemoryStore) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.Profile, error) {
	return m.mutateUser(ctx, id, func(u *models.Profile) {
		if update.Name != nil {
			u.Name = *update.Name
		}
		if update.AvatarURL != nil {
			v := *update.AvatarURL
			u.AvatarURL = &v
		}
	})
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return errs.NewNotFound("user")
	}
	for cid, c := range m.comments {
		if c.UserID == id {
			delete(m.comments, cid)
		}
	}
	delete(m.users, id)
	return nil
}
