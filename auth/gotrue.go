package auth

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rs/zerolog/log"
	gotrue "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"
)

// GoTrueProvider talks to Supabase Auth through the auth-go client. Access
// tokens are verified locally with the project's JWT secret.
type GoTrueProvider struct {
	client  gotrue.Client
	tokens  *Tokens
	timeout time.Duration
}

func NewGoTrueProvider(projectURL, anonKey string, tokens *Tokens, timeout time.Duration) *GoTrueProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := gotrue.New("", anonKey).WithCustomAuthURL(strings.TrimRight(projectURL, "/") + "/auth/v1")
	return &GoTrueProvider{
		client:  client,
		tokens:  tokens,
		timeout: timeout,
	}
}

func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	resp, err := withDeadline(ctx, p.timeout, func() (*types.TokenResponse, error) {
		return p.client.Token(types.TokenRequest{
			GrantType: "password",
			Email:     email,
			Password:  password,
		})
	})
	if err != nil {
		switch upstreamStatus(err) {
		case 400, 401:
			return nil, errs.NewInvalidCredentialsError()
		}
		return nil, p.upstreamError("sign in", err)
	}
	return newSession(resp.AccessToken, resp.User.ID, resp.User.Email, resp.ExpiresIn)
}

// SignUp returns a session without an access token while the address is
// waiting for confirmation.
func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string, meta SignUpMeta) (*Session, error) {
	resp, err := withDeadline(ctx, p.timeout, func() (*types.SignupResponse, error) {
		return p.client.Signup(types.SignupRequest{
			Email:    email,
			Password: password,
			Data:     map[string]interface{}{"name": meta.Name},
		})
	})
	if err != nil {
		return nil, p.upstreamError("sign up", err)
	}
	return newSession(resp.AccessToken, resp.ID, resp.Email, resp.ExpiresIn)
}

func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	_, err := withDeadline(ctx, p.timeout, func() (struct{}, error) {
		return struct{}{}, p.client.WithToken(accessToken).Logout()
	})
	if err == nil {
		return nil
	}
	// an already invalid session counts as signed out
	switch upstreamStatus(err) {
	case 401, 403, 404:
		return nil
	}
	return p.upstreamError("sign out", err)
}

func (p *GoTrueProvider) Verify(_ context.Context, accessToken string) (*Session, error) {
	s, _, err := p.tokens.Verify(accessToken)
	return s, err
}

var statusPattern = regexp.MustCompile(`status code (\d{3})`)

// upstreamStatus extracts the HTTP status auth-go embeds in its errors. It
// returns 0 when the request never got a response.
func upstreamStatus(err error) int {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	status, _ := strconv.Atoi(m[1])
	return status
}

func (p *GoTrueProvider) upstreamError(op string, err error) error {
	status := upstreamStatus(err)
	switch {
	case status == 0, status >= 500, status == 429:
		log.Warn().Err(err).Str("op", op).Int("status", status).Msg("auth provider unavailable")
		return errs.NewServiceUnavailableError("auth", fmt.Errorf("%s: %w", op, err))
	case status == 409, status == 422:
		return errs.NewConflictError(op + " rejected")
	}
	return errs.NewBadRequestErrorWithField(op+" rejected", "credentials", err.Error())
}

// withDeadline bounds a call that takes no context. The call itself is left
// to finish in the background once ctx gives up.
func withDeadline[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func newSession(accessToken string, userID uuid.UUID, email string, expiresIn int) (*Session, error) {
	if userID == uuid.Nil {
		return nil, errs.NewInternalErrorWithCause("auth response without user id", nil)
	}
	out := &Session{AccessToken: accessToken, UserID: userID, Email: email}
	if expiresIn > 0 {
		out.ExpiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return out, nil
}
