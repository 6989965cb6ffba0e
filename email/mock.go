package email

import (
	"context"
	"log/slog"
	"sync"

	"waitlist-intake/pkg/waitlist"
)

// MockProvider is a mock email provider for local development.
type MockProvider struct {
	logger *slog.Logger
	sent   []waitlist.Message
	mu     sync.Mutex
}

// NewMockProvider creates a new mock email provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Send logs the email instead of sending it.
func (m *MockProvider) Send(_ context.Context, msg waitlist.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.logger.Info("MOCK EMAIL",
		"to", waitlist.RedactEmail(msg.To),
		"subject", msg.Subject,
		"body_length", len(msg.HTMLBody)+len(msg.TextBody))
	return nil
}

// Sent returns a copy of every message handed to Send.
func (m *MockProvider) Sent() []waitlist.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]waitlist.Message, len(m.sent))
	copy(out, m.sent)
	return out
}
