package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"waitlist-intake/pkg/waitlist"
)

const defaultBrevoBaseURL = "https://api.brevo.com"

// BrevoProvider sends emails via Brevo (formerly Sendinblue) API.
type BrevoProvider struct {
	client   *http.Client
	logger   *slog.Logger
	apiKey   string
	baseURL  string
	fromAddr string
	fromName string
}

// NewBrevoProvider creates a new Brevo email provider.
func NewBrevoProvider(apiKey, baseURL, fromAddr, fromName string, client *http.Client, logger *slog.Logger) *BrevoProvider {
	if baseURL == "" {
		baseURL = defaultBrevoBaseURL
	}
	return &BrevoProvider{
		client:   client,
		logger:   logger,
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

// brevoSendRequest represents the Brevo API send email request.
type brevoSendRequest struct {
	Sender  brevoContact   `json:"sender"`
	To      []brevoContact `json:"to"`
	Subject string         `json:"subject"`
	HTML    string         `json:"htmlContent,omitempty"`
	Text    string         `json:"textContent,omitempty"`
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Send sends an email via Brevo API.
func (b *BrevoProvider) Send(ctx context.Context, msg waitlist.Message) error {
	fromAddr, fromName := senderAddress(msg.From, b.fromAddr, b.fromName)
	reqBody := brevoSendRequest{
		Sender: brevoContact{
			Email: fromAddr,
			Name:  fromName,
		},
		To: []brevoContact{
			{Email: msg.To},
		},
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	b.logger.Info("Brevo API request starting",
		"method", "POST",
		"endpoint", "smtp/email",
		"to", waitlist.RedactEmail(msg.To))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/v3/smtp/email", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.apiKey)

	startTime := time.Now()
	resp, err := b.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		b.logger.Warn("Brevo API request failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		b.logger.Warn("Brevo API returned non-2xx status",
			"status_code", resp.StatusCode,
			"body", waitlist.RedactEmailsIn(string(body)))
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	b.logger.Info("Brevo API request completed",
		"endpoint", "smtp/email",
		"duration_ms", duration.Milliseconds(),
		"status", "success")

	return nil
}
