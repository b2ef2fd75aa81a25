package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"
)

const postmarkURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	linkTTL     time.Duration
	httpClient  *http.Client
}

// APIError is a non-2xx answer from Postmark.
type APIError struct {
	StatusCode int
	ErrorCode  int    `json:"ErrorCode"`
	Message    string `json:"Message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("postmark API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("postmark API error: status %d, code %d: %s", e.StatusCode, e.ErrorCode, e.Message)
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLinkTTL sets the link lifetime quoted in the email body.
func WithLinkTTL(d time.Duration) Option {
	return func(cl *Client) {
		cl.linkTTL = d
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		linkTTL:     30 * time.Minute,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
}

// SendMagicLink emails a sign-in link.
func (c *Client) SendMagicLink(ctx context.Context, toEmail, link string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	expires := fmt.Sprintf("This link expires in %d minutes.", int(c.linkTTL.Minutes()))
	textBody := fmt.Sprintf("Click the link below to sign in:\n\n%s\n\n%s", link, expires)
	htmlBody := fmt.Sprintf(
		`<p>Click the link below to sign in:</p><p><a href="%s">Sign in</a></p><p>%s</p>`,
		html.EscapeString(link), expires,
	)

	payload := postmarkEmail{
		From:          c.fromEmail,
		To:            toEmail,
		Subject:       "Your magic login link",
		HtmlBody:      htmlBody,
		TextBody:      textBody,
		MessageStream: "outbound",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// Postmark explains rejections in a JSON body; an unreadable body
		// still yields the status code.
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			json.Unmarshal(data, apiErr)
		}
		return apiErr
	}

	return nil
}
