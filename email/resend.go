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

const defaultResendBaseURL = "https://api.resend.com"

// ResendProvider sends emails via the Resend API.
type ResendProvider struct {
	client   *http.Client
	logger   *slog.Logger
	apiKey   string
	baseURL  string
	fromAddr string
	fromName string
}

// NewResendProvider creates a new Resend email provider.
func NewResendProvider(apiKey, baseURL, fromAddr, fromName string, client *http.Client, logger *slog.Logger) *ResendProvider {
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	return &ResendProvider{
		client:   client,
		logger:   logger,
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

type resendSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

// Send sends an email via Resend API.
func (p *ResendProvider) Send(ctx context.Context, msg waitlist.Message) error {
	fromAddr, fromName := senderAddress(msg.From, p.fromAddr, p.fromName)
	jsonData, err := json.Marshal(resendSendRequest{
		From:    formatSender(fromAddr, fromName),
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	p.logger.Info("Resend API request starting",
		"method", "POST",
		"endpoint", "emails",
		"to", waitlist.RedactEmail(msg.To))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/emails", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	startTime := time.Now()
	resp, err := p.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		p.logger.Warn("Resend API request failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("Resend API returned non-2xx status",
			"status_code", resp.StatusCode,
			"body", waitlist.RedactEmailsIn(string(body)))
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var out resendSendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		p.logger.Warn("Resend API response not understood", "error", err)
	}

	p.logger.Info("Resend API request completed",
		"endpoint", "emails",
		"message_id", out.ID,
		"duration_ms", duration.Milliseconds(),
		"status", "success")
	return nil
}
