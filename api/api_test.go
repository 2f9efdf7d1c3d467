package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"github.com/rpupo63/nexusnews-backend/services"
	"github.com/rpupo63/nexusnews-backend/storage"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const allowedOrigin = "https://nexus.news"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	seed := database.DefaultSeed()
	db := database.NewMemory(seed)

	provider := auth.NewMemoryProvider(auth.NewTokens("api-test-secret", time.Hour), auth.WithBcryptCost(bcrypt.MinCost))
	if err := provider.SeedUsers(seed.Users); err != nil {
		t.Fatalf("SeedUsers() error = %v", err)
	}
	blobs := storage.NewMemoryStore("")
	svcs := services.New(db, auth.NewService(provider, db.Users()), blobs, services.Options{
		StoreTimeout:   time.Second,
		MaxUploadBytes: 4096,
	})

	router := newRouter(Deps{
		Services:    svcs,
		Database:    db,
		Blobs:       blobs,
		PageSize:    5,
		StartupTime: time.Now(),
	}, []string{allowedOrigin})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s status = %d, want %d; body = %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, b)
	}
}

func login(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/auth/login", "", credentialsRequest{Email: email, Password: auth.SeedPassword})
	expectStatus(t, resp, http.StatusOK)
	s := decode[SessionResponse](t, resp)
	if s.AccessToken == "" {
		t.Fatalf("login(%s) returned no token", email)
	}
	return s.AccessToken
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodGet, "/health", "", nil)
	expectStatus(t, resp, http.StatusOK)
	h := decode[HealthResponse](t, resp)
	if h.Status != "ok" || h.Backend != "memory" {
		t.Errorf("health = %+v", h)
	}
}

func TestLoginAndSession(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/auth/login", "", credentialsRequest{Email: "admin@nexus.com", Password: "nope"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = do(t, srv, http.MethodPost, "/auth/login", "", credentialsRequest{Email: "troll@nexus.com", Password: auth.SeedPassword})
	expectStatus(t, resp, http.StatusForbidden)
	if e := decode[ErrorResponse](t, resp); !strings.Contains(e.Details, "suspended") {
		t.Errorf("suspended login error = %+v", e)
	}

	token := login(t, srv, "admin@nexus.com")
	resp = do(t, srv, http.MethodGet, "/auth/session", token, nil)
	expectStatus(t, resp, http.StatusOK)
	s := decode[SessionResponse](t, resp)
	if !s.IsAuthenticated || !s.IsAdmin || !s.IsModerator || s.User == nil || s.User.Email != "admin@nexus.com" {
		t.Errorf("session = %+v", s)
	}

	resp = do(t, srv, http.MethodGet, "/auth/session", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if s := decode[SessionResponse](t, resp); s.IsAuthenticated || s.User != nil {
		t.Errorf("anonymous session = %+v", s)
	}

	resp = do(t, srv, http.MethodGet, "/auth/session", "not-a-jwt", nil)
	expectStatus(t, resp, http.StatusOK)
	if s := decode[SessionResponse](t, resp); s.IsAuthenticated {
		t.Errorf("session with garbage token = %+v", s)
	}

	resp = do(t, srv, http.MethodGet, "/comments", "not-a-jwt", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestRegisterAndLogout(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/auth/register", "", credentialsRequest{Email: "new@nexus.com", Password: "secret1", Name: "New Person"})
	expectStatus(t, resp, http.StatusCreated)
	s := decode[SessionResponse](t, resp)
	if s.User == nil || s.User.Role != models.RoleUser || s.AccessToken == "" {
		t.Fatalf("register = %+v", s)
	}

	resp = do(t, srv, http.MethodPost, "/auth/register", "", credentialsRequest{Email: "new@nexus.com", Password: "secret1", Name: "Again"})
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, srv, http.MethodPost, "/auth/logout", s.AccessToken, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = do(t, srv, http.MethodGet, "/auth/session", s.AccessToken, nil)
	expectStatus(t, resp, http.StatusOK)
	if after := decode[SessionResponse](t, resp); after.IsAuthenticated || after.User != nil {
		t.Errorf("session after logout = %+v", after)
	}
	resp = do(t, srv, http.MethodPost, "/posts/"+database.SeedPostAIID.String()+"/comments", s.AccessToken, commentRequest{Content: "still here?"})
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestSignInWithStaleToken(t *testing.T) {
	srv := newTestServer(t)

	stale := login(t, srv, "reader@nexus.com")
	resp := do(t, srv, http.MethodPost, "/auth/logout", stale, nil)
	expectStatus(t, resp, http.StatusNoContent)

	// the client still sends the revoked token
	resp = do(t, srv, http.MethodPost, "/auth/logout", stale, nil)
	expectStatus(t, resp, http.StatusNoContent)

	resp = do(t, srv, http.MethodPost, "/auth/login", stale, credentialsRequest{Email: "reader@nexus.com", Password: auth.SeedPassword})
	expectStatus(t, resp, http.StatusOK)
	fresh := decode[SessionResponse](t, resp)
	if !fresh.IsAuthenticated || fresh.AccessToken == "" || fresh.AccessToken == stale {
		t.Errorf("login with stale token = %+v", fresh)
	}

	resp = do(t, srv, http.MethodPost, "/auth/register", stale, credentialsRequest{Email: "second@nexus.com", Password: "secret1", Name: "Second"})
	expectStatus(t, resp, http.StatusCreated)

	resp = do(t, srv, http.MethodPost, "/auth/logout", "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestPostVisibility(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "admin@nexus.com")

	resp := do(t, srv, http.MethodGet, "/posts?published=false", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if page := decode[services.Paginated[models.Post]](t, resp); page.Total != 3 {
		t.Errorf("anonymous listing total = %d, want 3", page.Total)
	}

	resp = do(t, srv, http.MethodGet, "/posts?published=false", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	page := decode[services.Paginated[models.Post]](t, resp)
	if page.Total != 4 || page.PerPage != 5 || page.TotalPages != 1 {
		t.Errorf("admin listing = %+v", page)
	}

	resp = do(t, srv, http.MethodGet, "/posts?category=technology", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if page := decode[services.Paginated[models.Post]](t, resp); page.Total != 1 || page.Items[0].ID != database.SeedPostAIID {
		t.Errorf("technology listing = %+v", page)
	}

	resp = do(t, srv, http.MethodGet, "/posts?category=weather", "", nil)
	expectStatus(t, resp, http.StatusBadRequest)

	draft := "/posts/" + database.SeedPostDraftID.String()
	expectStatus(t, do(t, srv, http.MethodGet, draft, "", nil), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodGet, draft, admin, nil), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodGet, "/posts/not-a-uuid", "", nil), http.StatusBadRequest)

	resp = do(t, srv, http.MethodGet, "/posts/"+database.SeedPostAIID.String(), "", nil)
	expectStatus(t, resp, http.StatusOK)
	detail := decode[services.PostDetail](t, resp)
	if detail.Views != 1206 || len(detail.Comments) != 1 || detail.ContentHTML == "" {
		t.Errorf("detail = views %d, %d comments, html %q", detail.Views, len(detail.Comments), detail.ContentHTML)
	}
}

func TestPublishingFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "admin@nexus.com")
	reader := login(t, srv, "reader@nexus.com")

	draft := services.PostDraft{Title: "Tide Tables", Content: "Moon *matters*.", Category: "Science"}
	expectStatus(t, do(t, srv, http.MethodPost, "/posts", reader, draft), http.StatusForbidden)
	expectStatus(t, do(t, srv, http.MethodPost, "/posts", "", draft), http.StatusUnauthorized)

	resp := do(t, srv, http.MethodPost, "/posts", admin, draft)
	expectStatus(t, resp, http.StatusCreated)
	post := decode[models.Post](t, resp)
	if post.IsPublished || post.Author != "Admin User" {
		t.Errorf("created post = %+v", post)
	}

	base := "/posts/" + post.ID.String()
	expectStatus(t, do(t, srv, http.MethodPost, base+"/social/twitter", admin, nil), http.StatusConflict)

	resp = do(t, srv, http.MethodPost, base+"/publish", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	if p := decode[models.Post](t, resp); !p.IsPublished {
		t.Error("post still a draft after toggle")
	}

	resp = do(t, srv, http.MethodPost, base+"/social/facebook", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	if p := decode[models.Post](t, resp); !p.SocialPosted.Facebook || p.SocialPosted.Twitter {
		t.Errorf("social flags = %+v", p.SocialPosted)
	}
	expectStatus(t, do(t, srv, http.MethodPost, base+"/social/myspace", admin, nil), http.StatusBadRequest)
}

func TestCommentModerationFlow(t *testing.T) {
	srv := newTestServer(t)
	reader := login(t, srv, "reader@nexus.com")
	admin := login(t, srv, "admin@nexus.com")
	path := "/posts/" + database.SeedPostLivingID.String() + "/comments"

	expectStatus(t, do(t, srv, http.MethodPost, path, "", commentRequest{Content: "hi"}), http.StatusUnauthorized)

	resp := do(t, srv, http.MethodPost, path, reader, commentRequest{Content: "Composting <em>works</em>"})
	expectStatus(t, resp, http.StatusCreated)
	c := decode[models.Comment](t, resp)
	if c.Status != models.CommentPending || c.Content != "Composting works" {
		t.Errorf("new comment = %+v", c)
	}

	resp = do(t, srv, http.MethodGet, path, "", nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]models.Comment](t, resp); len(list) != 0 {
		t.Errorf("pending comment is public: %+v", list)
	}

	expectStatus(t, do(t, srv, http.MethodGet, "/comments", reader, nil), http.StatusForbidden)
	resp = do(t, srv, http.MethodGet, "/comments?per_page=2", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	queue := decode[services.Paginated[models.Comment]](t, resp)
	if queue.Total != 4 || queue.TotalPages != 2 || queue.Items[0].Status != models.CommentPending {
		t.Errorf("queue = %+v", queue)
	}

	status := "/comments/" + c.ID.String() + "/status"
	expectStatus(t, do(t, srv, http.MethodPut, status, reader, statusRequest{Status: "approved"}), http.StatusForbidden)
	expectStatus(t, do(t, srv, http.MethodPut, status, admin, statusRequest{Status: "approved"}), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodPut, status, admin, statusRequest{Status: "flagged"}), http.StatusConflict)
	expectStatus(t, do(t, srv, http.MethodPut, status, admin, statusRequest{Status: "spam"}), http.StatusBadRequest)

	resp = do(t, srv, http.MethodGet, path, "", nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]models.Comment](t, resp); len(list) != 1 || list[0].ID != c.ID {
		t.Errorf("approved comments = %+v", list)
	}
}

func TestUserAdministration(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "admin@nexus.com")
	reader := login(t, srv, "reader@nexus.com")

	expectStatus(t, do(t, srv, http.MethodGet, "/users", reader, nil), http.StatusForbidden)
	resp := do(t, srv, http.MethodGet, "/users", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	if users := decode[services.Paginated[models.Profile]](t, resp); users.Total != 3 {
		t.Errorf("users total = %d", users.Total)
	}

	readerPath := "/users/" + database.SeedReaderID.String()
	name := "Jane R."
	resp = do(t, srv, http.MethodPut, readerPath+"/profile", reader, services.ProfileChanges{Name: &name})
	expectStatus(t, resp, http.StatusOK)
	if u := decode[models.Profile](t, resp); u.Name != name {
		t.Errorf("profile name = %q", u.Name)
	}

	resp = do(t, srv, http.MethodPut, readerPath+"/role", admin, roleRequest{Role: "moderator"})
	expectStatus(t, resp, http.StatusOK)
	if u := decode[models.Profile](t, resp); u.Role != models.RoleModerator {
		t.Errorf("role = %s", u.Role)
	}

	resp = do(t, srv, http.MethodPost, readerPath+"/suspension", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	if u := decode[models.Profile](t, resp); !u.IsSuspended {
		t.Error("reader not suspended")
	}
	// The reader's existing token now carries a suspended principal.
	expectStatus(t, do(t, srv, http.MethodPost, "/posts/"+database.SeedPostAIID.String()+"/comments", reader, commentRequest{Content: "still here"}), http.StatusForbidden)

	expectStatus(t, do(t, srv, http.MethodPost, "/users/"+database.SeedAdminID.String()+"/suspension", admin, nil), http.StatusForbidden)
	expectStatus(t, do(t, srv, http.MethodDelete, readerPath, admin, nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodDelete, readerPath, admin, nil), http.StatusNotFound)
}

func TestUploadAndServeBlob(t *testing.T) {
	srv := newTestServer(t)
	reader := login(t, srv, "reader@nexus.com")

	upload := func(token, bucket, name string, data []byte) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		_, _ = fw.Write(data)
		_ = mw.Close()

		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/uploads/"+bucket, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("upload error = %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	resp := upload(reader, "avatars", "me.png", png)
	expectStatus(t, resp, http.StatusCreated)
	u := decode[UploadResponse](t, resp)
	if !strings.HasPrefix(u.URL, "/blobs/avatars/") {
		t.Fatalf("upload url = %q", u.URL)
	}

	resp = do(t, srv, http.MethodGet, u.URL, "", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("blob content type = %q", ct)
	}
	if got, _ := io.ReadAll(resp.Body); !bytes.Equal(got, png) {
		t.Error("blob bytes differ from upload")
	}

	expectStatus(t, upload(reader, "post-images", "hero.png", png), http.StatusForbidden)
	expectStatus(t, upload(reader, "avatars", "notes.txt", []byte("just words")), http.StatusUnsupportedMediaType)
	expectStatus(t, upload(reader, "avatars", "big.png", append(png, make([]byte, 8192)...)), http.StatusRequestEntityTooLarge)
	expectStatus(t, upload("", "avatars", "me.png", png), http.StatusUnauthorized)
	expectStatus(t, do(t, srv, http.MethodGet, "/blobs/avatars/missing.png", "", nil), http.StatusNotFound)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t)
	preflight := func(origin string) *http.Response {
		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/posts", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("preflight error = %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := preflight(allowedOrigin)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != allowedOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	expectStatus(t, preflight("https://evil.example"), http.StatusForbidden)
}

func TestWriteErrorHidesServerCauses(t *testing.T) {
	responder := NewResponder(zerolog.Nop())

	rec := httptest.NewRecorder()
	responder.WriteError(rec, errs.NewDatabaseError("list", "posts", errors.New("pq: password authentication failed for user \"postgres\"")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var e ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if e.Cause != "" || strings.Contains(e.Error+e.Details, "password") {
		t.Errorf("500 response leaks its cause: %+v", e)
	}

	rec = httptest.NewRecorder()
	responder.WriteError(rec, errs.NewInvalidJSONError(errors.New("unexpected EOF")))
	e = ErrorResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if rec.Code != http.StatusBadRequest || !strings.Contains(e.Cause, "unexpected EOF") {
		t.Errorf("client error = %d %+v, want its cause", rec.Code, e)
	}
}
