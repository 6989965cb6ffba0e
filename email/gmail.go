package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"waitlist-intake/pkg/waitlist"
)

// gmailSender is the slice of the Gmail API used for delivery.
type gmailSender interface {
	send(ctx context.Context, raw string) error
}

type gmailService struct {
	service *gmail.Service
}

func (s gmailService) send(ctx context.Context, raw string) error {
	_, err := s.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	return err
}

// GmailProvider sends emails via Gmail API.
type GmailProvider struct {
	api      gmailSender
	logger   *slog.Logger
	fromAddr string
	fromName string
}

// NewGmailProvider creates a new Gmail email provider. An empty fromAddr
// leaves the From header to the authenticated account.
func NewGmailProvider(service *gmail.Service, fromAddr, fromName string, logger *slog.Logger) *GmailProvider {
	return &GmailProvider{
		api:      gmailService{service: service},
		logger:   logger,
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

// NewGmailProviderFromJSON builds a Gmail provider from service account or
// OAuth credentials JSON.
func NewGmailProviderFromJSON(ctx context.Context, credentials []byte, fromAddr, fromName string, logger *slog.Logger) (*GmailProvider, error) {
	service, err := gmail.NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(gmail.GmailSendScope))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewGmailProvider(service, fromAddr, fromName, logger), nil
}

// buildMIME renders msg as an RFC 5322 message. The From header falls back
// to the configured sender. Header values are stripped of control
// characters so a newline can never start a new header.
func buildMIME(msg waitlist.Message, defAddr, defName string) string {
	to := waitlist.StripControl(msg.To)
	subject := waitlist.StripControl(msg.Subject)
	var from string
	if addr, name := senderAddress(msg.From, defAddr, defName); addr != "" {
		from = waitlist.StripControl(formatSender(addr, name))
	}

	contentType, body := "text/html", msg.HTMLBody
	if body == "" {
		contentType, body = "text/plain", msg.TextBody
	}

	var b strings.Builder
	b.WriteString("MIME-Version: 1.0\r\n")
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Content-Type: %s; charset=utf-8\r\n\r\n", contentType)
	b.WriteString(body)
	return b.String()
}

// Send sends an email via Gmail API.
func (g *GmailProvider) Send(ctx context.Context, msg waitlist.Message) error {
	encoded := base64.URLEncoding.EncodeToString([]byte(buildMIME(msg, g.fromAddr, g.fromName)))

	g.logger.Info("Gmail API request starting",
		"method", "POST",
		"endpoint", "users.messages.send",
		"to", waitlist.RedactEmail(msg.To))

	startTime := time.Now()
	err := g.api.send(ctx, encoded)
	duration := time.Since(startTime)
	if err != nil {
		g.logger.Warn("Gmail API send failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("gmail send: %w", err)
	}

	g.logger.Info("Gmail API request completed",
		"endpoint", "users.messages.send",
		"duration_ms", duration.Milliseconds(),
		"status", "success")
	return nil
}
