// Package email sends the waitlist welcome notification through a pluggable
// delivery provider.
package email

import (
	"context"
	_ "embed"
	"log/slog"
	"strings"
	"time"

	"waitlist-intake/pkg/waitlist"
)

// WelcomeSubject is the fixed subject of the welcome notification.
const WelcomeSubject = "You're on the waitlist!"

// welcomeHTML is fixed at build time. Nothing from the request is ever
// interpolated into it.
//
//go:embed tmpl/welcome.html
var welcomeHTML string

// Sender sends notification emails using a pluggable provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
	name     string // Provider name for logs and errors
}

// New creates a new email sender with the given provider.
func New(provider Provider, name string, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
		name:     name,
	}
}

// WelcomeMessage builds the welcome notification for to. The recipient only
// appears in the To field.
func WelcomeMessage(to string) waitlist.Message {
	return waitlist.Message{
		To:       to,
		Subject:  WelcomeSubject,
		HTMLBody: welcomeHTML,
	}
}

// SendWelcome sends the welcome notification to an already validated address.
// Callers must check waitlist membership first.
func (s *Sender) SendWelcome(ctx context.Context, email string) error {
	return s.send(ctx, WelcomeMessage(email), "welcome")
}

// SendRaw sends a caller-composed message. It backs the internal generic
// send endpoint and must not be reachable from public routes.
func (s *Sender) SendRaw(ctx context.Context, msg waitlist.Message) error {
	to, err := waitlist.ValidateEmail(msg.To)
	if err != nil {
		return err
	}
	msg.To = to

	if strings.TrimSpace(msg.Subject) == "" {
		return &waitlist.ValidationError{Message: "Missing required fields: to and subject are required"}
	}
	if msg.HTMLBody == "" && msg.TextBody == "" {
		return &waitlist.ValidationError{Message: "Either html or text content is required"}
	}

	return s.send(ctx, msg, "raw")
}

func (s *Sender) send(ctx context.Context, msg waitlist.Message, kind string) error {
	// Header values must never carry CR/LF.
	msg.To = waitlist.StripControl(msg.To)
	msg.Subject = waitlist.StripControl(msg.Subject)
	msg.From = waitlist.StripControl(msg.From)

	s.logger.Info("Sending email",
		"type", kind,
		"provider", s.name,
		"to", waitlist.RedactEmail(msg.To))

	startTime := time.Now()
	err := s.provider.Send(ctx, msg)
	duration := time.Since(startTime)

	if err != nil {
		if waitlist.IsConfig(err) {
			s.logger.Error("Email provider not configured", "provider", s.name, "error", err)
			return err
		}
		s.logger.Warn("Email send failed",
			"type", kind,
			"provider", s.name,
			"to", waitlist.RedactEmail(msg.To),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return &waitlist.DispatchError{Provider: s.name, Err: err}
	}

	s.logger.Info("Email successfully sent",
		"type", kind,
		"provider", s.name,
		"to", waitlist.RedactEmail(msg.To),
		"duration_ms", duration.Milliseconds())
	return nil
}
