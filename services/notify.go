package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/models"
	"github.com/rs/zerolog/log"
)

const resendEndpoint = "https://api.resend.com/emails"

// Mailer delivers an HTML email.
type Mailer interface {
	Send(ctx context.Context, subject, body string, recipients []string) error
}

type resendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
}

type resendEmailResponse struct {
	ID string `json:"id"`
}

type resendErrorResponse struct {
	Message string `json:"message"`
}

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

func NewResendMailer(apiKey, from string, timeout time.Duration) *ResendMailer {
	return &ResendMailer{
		apiKey:   apiKey,
		from:     from,
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *ResendMailer) Send(ctx context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return errs.NewMissingRequiredFieldError("recipients")
	}

	payload, err := json.Marshal(resendEmailRequest{
		From:    m.from,
		To:      recipients,
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return errs.NewServiceUnavailableError("resend", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(bodyBytes)
		var errorResp resendErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			msg = errorResp.Message
		}
		cause := fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, msg)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return errs.NewServiceUnavailableError("resend", cause)
		}
		return errs.NewInternalErrorWithCause("email rejected", cause)
	}

	var emailResponse resendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Debug().Str("emailId", emailResponse.ID).Msg("sent email via Resend")
	}
	return nil
}

// PostURL joins the public site URL with the post path. It returns "" when
// siteURL is unset.
func PostURL(siteURL string, id uuid.UUID) string {
	siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if siteURL == "" {
		return ""
	}
	return siteURL + "/posts/" + id.String()
}

// ModeratorAlert tells moderators a comment is waiting in the queue.
type ModeratorAlert struct {
	mailer     Mailer
	recipients []string
	siteURL    string
	retry      Retrier
}

// NewModeratorAlert returns nil when there is nobody to notify.
func NewModeratorAlert(mailer Mailer, recipients []string, siteURL string, retry Retrier) *ModeratorAlert {
	if mailer == nil || len(recipients) == 0 {
		return nil
	}
	return &ModeratorAlert{mailer: mailer, recipients: recipients, siteURL: siteURL, retry: retry}
}

func (a *ModeratorAlert) CommentQueued(ctx context.Context, post *models.Post, c *models.Comment) error {
	subject := fmt.Sprintf("New comment awaiting review on %q", post.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>%s</strong> commented on <em>%s</em>:</p>", html.EscapeString(c.UserName), html.EscapeString(post.Title))
	fmt.Fprintf(&b, "<blockquote>%s</blockquote>", html.EscapeString(c.Content))
	if link := PostURL(a.siteURL, post.ID); link != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Open the post</a></p>`, html.EscapeString(link))
	}

	return a.retry.Do(ctx, "send moderator alert", func(ctx context.Context) error {
		return a.mailer.Send(ctx, subject, b.String(), a.recipients)
	})
}
