package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"golang.org/x/crypto/bcrypt"
)

// SeedPassword is the password of every sample account in the fallback.
const SeedPassword = "password"

type credential struct {
	userID uuid.UUID
	hash   []byte
}

// MemoryProvider is the fallback identity provider. Credentials live in
// process memory; sign-out revokes the token's session id.
type MemoryProvider struct {
	mu      sync.RWMutex
	creds   map[string]credential
	revoked map[string]time.Time
	tokens  *Tokens
	cost    int
}

type MemoryOption func(*MemoryProvider)

// WithBcryptCost overrides the hashing cost.
func WithBcryptCost(cost int) MemoryOption {
	return func(m *MemoryProvider) { m.cost = cost }
}

func NewMemoryProvider(tokens *Tokens, opts ...MemoryOption) *MemoryProvider {
	m := &MemoryProvider{
		creds:   make(map[string]credential),
		revoked: make(map[string]time.Time),
		tokens:  tokens,
		cost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SeedUsers registers each profile with SeedPassword.
func (m *MemoryProvider) SeedUsers(users []models.Profile) error {
	for _, u := range users {
		if err := m.add(u.ID, u.Email, SeedPassword); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *MemoryProvider) add(id uuid.UUID, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return errs.NewInternalErrorWithCause("hashing password", err)
	}
	email = normalizeEmail(email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[email]; ok {
		return errs.NewConflictError("an account with this email already exists")
	}
	m.creds[email] = credential{userID: id, hash: hash}
	return nil
}

func (m *MemoryProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	m.mu.RLock()
	cred, ok := m.creds[email]
	m.mu.RUnlock()
	if !ok {
		return nil, errs.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword(cred.hash, []byte(password)); err != nil {
		return nil, errs.NewInvalidCredentialsError()
	}
	s, _, err := m.tokens.Issue(cred.userID, email)
	return s, err
}

func (m *MemoryProvider) SignUp(ctx context.Context, email, password string, _ SignUpMeta) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.New()
	if err := m.add(id, email, password); err != nil {
		return nil, err
	}
	s, _, err := m.tokens.Issue(id, normalizeEmail(email))
	return s, err
}

func (m *MemoryProvider) SignOut(ctx context.Context, accessToken string) error {
	_, claims, err := m.tokens.Verify(accessToken)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	exp := time.Now()
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	m.revoked[claims.ID] = exp
	// drop revocations whose tokens have expired anyway
	for id, until := range m.revoked {
		if until.Before(time.Now()) {
			delete(m.revoked, id)
		}
	}
	return nil
}

func (m *MemoryProvider) Verify(ctx context.Context, accessToken string) (*Session, error) {
	s, claims, err := m.tokens.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	_, revoked := m.revoked[claims.ID]
	m.mu.RUnlock()
	if revoked {
		return nil, errs.NewInvalidTokenError()
	}
	return s, nil
}
