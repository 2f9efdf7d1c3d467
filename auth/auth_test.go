package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-jwt-secret"

type fixture struct {
	svc      *Service
	provider *MemoryProvider
	db       database.Database
	events   []SessionEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	seed := database.DefaultSeed()
	db := database.NewMemory(seed)
	provider := NewMemoryProvider(NewTokens(testSecret, time.Hour), WithBcryptCost(bcrypt.MinCost))
	if err := provider.SeedUsers(seed.Users); err != nil {
		t.Fatalf("SeedUsers() error = %v", err)
	}
	f := &fixture{svc: NewService(provider, db.Users()), provider: provider, db: db}
	f.svc.OnSessionChange(func(ev SessionEvent) { f.events = append(f.events, ev) })
	return f
}

func TestLoginDerivesRoleFacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.svc.Login(ctx, "admin@nexus.com", SeedPassword)
	if err != nil {
		t.Fatalf("Login(admin) error = %v", err)
	}
	if !admin.IsAuthenticated || !admin.IsAdmin || !admin.IsModerator || !admin.CanAdminister() {
		t.Errorf("admin principal = %+v", admin)
	}
	if admin.Session == nil || admin.Session.AccessToken == "" {
		t.Fatal("admin login returned no token")
	}

	reader, err := f.svc.Login(ctx, "READER@nexus.com", SeedPassword)
	if err != nil {
		t.Fatalf("Login(reader) error = %v", err)
	}
	if !reader.IsAuthenticated || reader.IsAdmin || reader.IsModerator || reader.CanModerate() {
		t.Errorf("reader principal = %+v", reader)
	}

	if len(f.events) != 2 || f.events[0].Type != EventSignedIn {
		t.Errorf("events = %+v, want two signed_in", f.events)
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "admin@nexus.com", "wrong")
	if !errs.IsInvalidCredentialsError(err) {
		t.Errorf("wrong password error = %v", err)
	}
	_, err = f.svc.Login(ctx, "nobody@nexus.com", SeedPassword)
	if !errs.IsInvalidCredentialsError(err) {
		t.Errorf("unknown email error = %v", err)
	}
	_, err = f.svc.Login(ctx, "troll@nexus.com", SeedPassword)
	if !errs.IsAccountSuspendedError(err) {
		t.Errorf("suspended login error = %v", err)
	}
	_, err = f.svc.Login(ctx, "", SeedPassword)
	if !errs.IsMissingRequiredFieldError(err) {
		t.Errorf("empty email error = %v", err)
	}
	if len(f.events) != 0 {
		t.Errorf("failed logins emitted %+v", f.events)
	}
}

func TestRegisterCreatesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Register(ctx, "New.Reader@nexus.com", "hunter22", "  New Reader ")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !p.IsAuthenticated || p.IsModerator || p.User.Name != "New Reader" {
		t.Errorf("Register() principal = %+v", p)
	}

	stored, _ := f.db.Users().GetUser(ctx, p.UserID())
	if stored == nil || stored.Role != models.RoleUser || stored.Email != "new.reader@nexus.com" {
		t.Errorf("stored profile = %+v", stored)
	}

	if _, err := f.svc.Login(ctx, "new.reader@nexus.com", "hunter22"); err != nil {
		t.Errorf("Login after Register error = %v", err)
	}

	_, err = f.svc.Register(ctx, "new.reader@nexus.com", "hunter22", "Again")
	if !errs.IsConflict(err) {
		t.Errorf("duplicate Register() error = %v", err)
	}
	_, err = f.svc.Register(ctx, "short@nexus.com", "123", "Short")
	if !errs.IsInvalidFieldError(err) {
		t.Errorf("short password error = %v", err)
	}

	if f.events[0].Type != EventUserRegistered {
		t.Errorf("first event = %+v", f.events[0])
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _ := f.svc.Login(ctx, "reader@nexus.com", SeedPassword)
	token := p.Session.AccessToken

	resolved, err := f.svc.Resolve(ctx, token)
	if err != nil || !resolved.IsAuthenticated {
		t.Fatalf("Resolve() = %+v, %v", resolved, err)
	}

	if err := f.svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := f.svc.Resolve(ctx, token); !errs.IsInvalidTokenError(err) {
		t.Errorf("Resolve() after logout error = %v", err)
	}
	if last := f.events[len(f.events)-1]; last.Type != EventSignedOut || last.UserID != database.SeedReaderID {
		t.Errorf("last event = %+v", last)
	}

	emitted := len(f.events)
	if err := f.svc.Logout(ctx, token); err != nil {
		t.Errorf("Logout(revoked) error = %v, want success", err)
	}
	stale := NewTokens(testSecret, time.Minute)
	stale.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, _ := stale.Issue(database.SeedReaderID, "reader@nexus.com")
	if err := f.svc.Logout(ctx, expired.AccessToken); err != nil {
		t.Errorf("Logout(expired) error = %v, want success", err)
	}
	if len(f.events) != emitted {
		t.Errorf("stale logouts emitted %+v", f.events[emitted:])
	}
}

func TestLoginRequiresProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.provider.SignUp(ctx, "ghost@nexus.com", "password", SignUpMeta{Name: "Ghost"}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	_, err := f.svc.Login(ctx, "ghost@nexus.com", "password")
	if !errs.IsProfileMissingError(err) || errs.StatusCode(err) != http.StatusForbidden {
		t.Errorf("Login(no profile) error = %v", err)
	}
	if len(f.events) != 0 {
		t.Errorf("refused login emitted %+v", f.events)
	}
}

func TestResolveAnonymousAndMissingProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Resolve(ctx, "")
	if err != nil || p.IsAuthenticated || p.Session != nil {
		t.Errorf("Resolve(\"\") = %+v, %v", p, err)
	}

	session, err := f.provider.SignUp(ctx, "ghost@nexus.com", "password", SignUpMeta{Name: "Ghost"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	p, err = f.svc.Resolve(ctx, session.AccessToken)
	if err != nil {
		t.Fatalf("Resolve(ghost) error = %v", err)
	}
	if p.Session == nil || p.IsAuthenticated || p.CanWrite() {
		t.Errorf("session without profile = %+v, want sessioned but unauthenticated", p)
	}

	if _, err := f.svc.Resolve(ctx, "not-a-jwt"); !errs.IsInvalidTokenError(err) {
		t.Errorf("Resolve(garbage) error = %v", err)
	}
}

func TestSuspensionRevokesCapabilities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _ := f.svc.Login(ctx, "admin@nexus.com", SeedPassword)
	if _, err := f.db.Users().ToggleSuspension(ctx, database.SeedAdminID); err != nil {
		t.Fatalf("ToggleSuspension() error = %v", err)
	}

	again, err := f.svc.Resolve(ctx, p.Session.AccessToken)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !again.IsSuspended || again.CanAdminister() || again.CanModerate() || again.CanWrite() {
		t.Errorf("suspended admin principal = %+v", again)
	}
	if err := again.RequireAdmin(); !errs.IsAccountSuspendedError(err) {
		t.Errorf("RequireAdmin() error = %v", err)
	}
}

func TestPrincipalRequirements(t *testing.T) {
	if err := Anonymous.RequireActive(); !errs.IsUnauthorized(err) {
		t.Errorf("anonymous RequireActive() = %v", err)
	}
	user := NewPrincipal(&Session{UserID: uuid.New()}, &models.Profile{Role: models.RoleUser})
	if err := user.RequireModerator(); !errs.IsInsufficientRoleError(err) {
		t.Errorf("user RequireModerator() = %v", err)
	}
	mod := NewPrincipal(&Session{}, &models.Profile{Role: models.RoleModerator})
	if err := mod.RequireModerator(); err != nil {
		t.Errorf("moderator RequireModerator() = %v", err)
	}
	if err := mod.RequireAdmin(); !errs.IsInsufficientRoleError(err) {
		t.Errorf("moderator RequireAdmin() = %v", err)
	}
}

func TestTokens(t *testing.T) {
	tokens := NewTokens(testSecret, time.Minute)
	id := uuid.New()
	s, _, err := tokens.Issue(id, "a@b.c")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, _, err := tokens.Verify(s.AccessToken)
	if err != nil || got.UserID != id || got.Email != "a@b.c" {
		t.Errorf("Verify() = %+v, %v", got, err)
	}

	other := NewTokens("another-secret", time.Minute)
	if _, _, err := other.Verify(s.AccessToken); !errs.IsInvalidTokenError(err) {
		t.Errorf("Verify(wrong secret) error = %v", err)
	}

	expired := NewTokens(testSecret, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, _ := expired.Issue(id, "a@b.c")
	if _, _, err := tokens.Verify(old.AccessToken); !errs.IsExpiredTokenError(err) {
		t.Errorf("Verify(expired) error = %v", err)
	}

	if _, _, err := tokens.Verify(""); !errs.IsMissingTokenError(err) {
		t.Errorf("Verify(\"\") error = %v", err)
	}
}

func TestGoTrueProvider(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	userID := uuid.New()
	issued, _, _ := tokens.Issue(userID, "admin@nexus.com")

	var logoutAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/auth/v1/token":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			switch body["password"] {
			case "password":
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"access_token": issued.AccessToken,
					"expires_in":   3600,
					"user":         map[string]string{"id": userID.String(), "email": "admin@nexus.com"},
				})
			case "boom":
				w.WriteHeader(http.StatusBadGateway)
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			}
		case "/auth/v1/signup":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": userID.String(), "email": "new@nexus.com"})
		case "/auth/v1/logout":
			logoutAuth = r.Header.Get("Authorization")
			if logoutAuth == "Bearer revoked" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewGoTrueProvider(srv.URL+"/", "anon", tokens, time.Second)
	ctx := context.Background()

	s, err := p.SignIn(ctx, "admin@nexus.com", "password")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if s.UserID != userID || s.AccessToken != issued.AccessToken || s.ExpiresAt.IsZero() {
		t.Errorf("SignIn() = %+v", s)
	}

	if _, err := p.SignIn(ctx, "admin@nexus.com", "nope"); !errs.IsInvalidCredentialsError(err) {
		t.Errorf("SignIn(bad) error = %v", err)
	}
	if _, err := p.SignIn(ctx, "admin@nexus.com", "boom"); !errs.IsRetryable(err) {
		t.Errorf("SignIn(502) error = %v, want retryable", err)
	}

	pending, err := p.SignUp(ctx, "new@nexus.com", "password", SignUpMeta{Name: "New"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if pending.UserID != userID || pending.AccessToken != "" {
		t.Errorf("SignUp() pending confirmation = %+v", pending)
	}

	if err := p.SignOut(ctx, issued.AccessToken); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if logoutAuth != "Bearer "+issued.AccessToken {
		t.Errorf("logout Authorization = %q", logoutAuth)
	}

	if err := p.SignOut(ctx, "revoked"); err != nil {
		t.Errorf("SignOut(revoked) error = %v, want already signed out", err)
	}

	v, err := p.Verify(ctx, issued.AccessToken)
	if err != nil || v.UserID != userID {
		t.Errorf("Verify() = %+v, %v", v, err)
	}
}

func TestGoTrueProviderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewGoTrueProvider(url, "anon", NewTokens(testSecret, time.Hour), 200*time.Millisecond)
	if _, err := p.SignIn(context.Background(), "a@b.c", "pw"); !errs.IsRetryable(err) {
		t.Errorf("SignIn(unreachable) error = %v, want retryable", err)
	}
}
