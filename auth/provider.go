package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is an identity issued by the auth collaborator.
type Session struct {
	AccessToken string    `json:"access_token,omitempty"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SignUpMeta is the profile metadata sent along with a registration.
type SignUpMeta struct {
	Name string `json:"name"`
}

// IdentityProvider is the external authentication collaborator.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp may return a session without an access token when the
	// provider requires email confirmation first.
	SignUp(ctx context.Context, email, password string, meta SignUpMeta) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Verify(ctx context.Context, accessToken string) (*Session, error)
}
