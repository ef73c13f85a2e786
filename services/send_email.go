package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type ResendEmailResponse struct {
	ID string `json:"id"`
}

type ResendErrorResponse struct {
	Message string `json:"message"`
}

// EmailChannel mails new posts to a fixed list of recipients through Resend.
type EmailChannel struct {
	apiKey     string
	from       string
	recipients []string
	baseURL    string
	endpoint   string
	client     *http.Client
}

func NewEmailChannel(apiKey, from string, recipients []string, baseURL string) *EmailChannel {
	return &EmailChannel{
		apiKey:     apiKey,
		from:       from,
		recipients: recipients,
		baseURL:    baseURL,
		endpoint:   resendEndpoint,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Announce(ctx context.Context, blog models.Blog) error {
	return c.SendEmail(ctx, "New post: "+blog.Title, buildEmailBody(blog, c.baseURL), c.recipients)
}

// SendEmail sends one HTML message through the Resend API.
func (c *EmailChannel) SendEmail(ctx context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return errs.NewMissingRequiredFieldError("recipients")
	}

	payload := ResendEmailRequest{
		From:    c.from,
		To:      recipients,
		Subject: subject,
		Html:    body,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.NewServiceUnavailableError("resend", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			return errs.NewUpstreamError("resend", resp.StatusCode, errorResp.Message)
		}
		return errs.NewUpstreamError("resend", resp.StatusCode, string(bodyBytes))
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Msg("Successfully sent email via Resend")
	}
	return nil
}

func buildEmailBody(blog models.Blog, baseURL string) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(blog.Title))
	if blog.Excerpt != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(blog.Excerpt))
	}
	fmt.Fprintf(&b, "<p>By %s &middot; %d min read</p>\n", html.EscapeString(blog.AuthorName), blog.ReadTime)
	if url := BuildBlogPostURL(baseURL, blog.ID.String()); url != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">Read the post</a></p>\n", html.EscapeString(url))
	}
	return b.String()
}
