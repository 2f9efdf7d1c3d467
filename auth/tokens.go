package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
)

const tokenAudience = "authenticated"

// Claims mirrors the Supabase access token payload.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(userID uuid.UUID, email string) (*Session, string, error) {
	now := t.now()
	sessionID := uuid.NewString()
	claims := Claims{
		Email:     email,
		Role:      tokenAudience,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, "", errs.NewInternalErrorWithCause("signing access token", err)
	}
	return &Session{
		AccessToken: signed,
		UserID:      userID,
		Email:       email,
		ExpiresAt:   now.Add(t.ttl),
	}, sessionID, nil
}

// Parse validates signature, expiry and audience and returns the claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, errs.NewMissingTokenError()
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errs.NewExpiredTokenError()
		}
		return nil, errs.NewInvalidTokenError()
	}
	return claims, nil
}

func (t *Tokens) Verify(token string) (*Session, *Claims, error) {
	claims, err := t.Parse(token)
	if err != nil {
		return nil, nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil, errs.NewInvalidTokenError()
	}
	s := &Session{AccessToken: token, UserID: userID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, claims, nil
}
