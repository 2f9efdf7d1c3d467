package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/database"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/storage"
)

type sentMail struct {
	subject    string
	body       string
	recipients []string
}

type fakeMailer struct {
	sent chan sentMail
}

func (m *fakeMailer) Send(_ context.Context, subject, body string, recipients []string) error {
	m.sent <- sentMail{subject: subject, body: body, recipients: recipients}
	return nil
}

func TestResendMailer(t *testing.T) {
	var got resendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer re_test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad key"}`))
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	m := NewResendMailer("re_test", "NexusNews <alerts@nexus.com>", time.Second)
	m.endpoint = srv.URL
	if err := m.Send(context.Background(), "hello", "<p>hi</p>", []string{"mod@nexus.com"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.From != "NexusNews <alerts@nexus.com>" || got.Subject != "hello" || len(got.To) != 1 {
		t.Errorf("payload = %+v", got)
	}

	m.apiKey = "wrong"
	err := m.Send(context.Background(), "hello", "<p>hi</p>", []string{"mod@nexus.com"})
	var apiErr *errs.ApiErr
	if !errors.As(err, &apiErr) || errs.IsRetryable(err) || !strings.Contains(apiErr.GetFullError(), "bad key") {
		t.Errorf("rejected Send() error = %v", err)
	}
	if err := m.Send(context.Background(), "hello", "", nil); !errs.IsMissingRequiredFieldError(err) {
		t.Errorf("no recipients error = %v", err)
	}
}

func TestResendMailerUpstreamFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewResendMailer("re_test", "alerts@nexus.com", time.Second)
	m.endpoint = srv.URL
	if err := m.Send(context.Background(), "s", "b", []string{"a@b.c"}); !errs.IsRetryable(err) {
		t.Errorf("Send() error = %v, want retryable", err)
	}
}

func TestPostURL(t *testing.T) {
	id := uuid.MustParse("00000000-0000-4000-8000-000000000101")
	if got := PostURL("https://nexus.news/", id); got != "https://nexus.news/posts/"+id.String() {
		t.Errorf("PostURL() = %q", got)
	}
	if got := PostURL("  ", id); got != "" {
		t.Errorf("PostURL(blank) = %q", got)
	}
}

func TestAddCommentAlertsModerators(t *testing.T) {
	db := database.NewMemory(database.DefaultSeed())
	mailer := &fakeMailer{sent: make(chan sentMail, 1)}
	svc := New(db, nil, storage.NewMemoryStore(""), Options{
		StoreTimeout:    time.Second,
		Mailer:          mailer,
		ModeratorEmails: []string{"mod@nexus.com"},
		SiteURL:         "https://nexus.news",
	})
	reader := principalFor(t, db, database.SeedReaderID)

	if _, err := svc.Moderation.AddComment(context.Background(), reader, database.SeedPostLivingID, "<b>Compost</b> & chill"); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}

	select {
	case m := <-mailer.sent:
		if !strings.Contains(m.subject, "Sustainable Living") {
			t.Errorf("subject = %q", m.subject)
		}
		if !strings.Contains(m.body, "Compost &amp; chill") || !strings.Contains(m.body, "/posts/"+database.SeedPostLivingID.String()) {
			t.Errorf("body = %q", m.body)
		}
		if len(m.recipients) != 1 || m.recipients[0] != "mod@nexus.com" {
			t.Errorf("recipients = %v", m.recipients)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no moderator alert sent")
	}
}

func TestNoAlertWithoutRecipients(t *testing.T) {
	if a := NewModeratorAlert(&fakeMailer{}, nil, "", Retrier{}); a != nil {
		t.Error("NewModeratorAlert() without recipients should be nil")
	}
}
