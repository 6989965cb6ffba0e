package email

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitlist-intake/pkg/waitlist"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type failingProvider struct {
	err   error
	calls int
}

func (f *failingProvider) Send(context.Context, waitlist.Message) error {
	f.calls++
	return f.err
}

func TestWelcomeTemplate(t *testing.T) {
	msg := WelcomeMessage("alice@example.com")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.HTMLBody))
	require.NoError(t, err)

	assert.Equal(t, WelcomeSubject, msg.Subject)
	assert.Equal(t, "You're on the waitlist!", strings.TrimSpace(doc.Find(".header h2").Text()))
	assert.NotZero(t, doc.Find(".content p").Length())
	assert.NotContains(t, msg.HTMLBody, "alice")
	assert.NotContains(t, doc.Text(), "example.com")
}

func TestWelcomeTemplateIsStatic(t *testing.T) {
	a := WelcomeMessage("<script>alert(1)</script>@example.com")
	b := WelcomeMessage("bob@example.com")
	assert.Equal(t, a.HTMLBody, b.HTMLBody)
	assert.NotContains(t, a.HTMLBody, "<script>")
}

func TestSendWelcome(t *testing.T) {
	mock := NewMockProvider(quietLogger())
	sender := New(mock, "mock", quietLogger())

	require.NoError(t, sender.SendWelcome(context.Background(), "alice@example.com"))

	sent := mock.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Equal(t, WelcomeSubject, sent[0].Subject)
}

func TestSendStripsHeaderControl(t *testing.T) {
	mock := NewMockProvider(quietLogger())
	sender := New(mock, "mock", quietLogger())

	err := sender.SendRaw(context.Background(), waitlist.Message{
		To:       "alice@example.com",
		Subject:  "Hello\r\nBcc: evil@example.com",
		TextBody: "hi",
	})
	require.NoError(t, err)

	sent := mock.Sent()
	require.Len(t, sent, 1)
	assert.NotContains(t, sent[0].Subject, "\n")
	assert.NotContains(t, sent[0].Subject, "\r")
}

func TestSendRawValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     waitlist.Message
		wantMsg string
	}{
		{
			name:    "missing recipient",
			msg:     waitlist.Message{Subject: "s", HTMLBody: "<p>x</p>"},
			wantMsg: waitlist.MsgEmailRequired,
		},
		{
			name:    "invalid recipient",
			msg:     waitlist.Message{To: "bad", Subject: "s", HTMLBody: "<p>x</p>"},
			wantMsg: waitlist.MsgEmailInvalid,
		},
		{
			name:    "missing subject",
			msg:     waitlist.Message{To: "a@example.com", HTMLBody: "<p>x</p>"},
			wantMsg: "Missing required fields: to and subject are required",
		},
		{
			name:    "missing body",
			msg:     waitlist.Message{To: "a@example.com", Subject: "s"},
			wantMsg: "Either html or text content is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(quietLogger())
			sender := New(mock, "mock", quietLogger())

			err := sender.SendRaw(context.Background(), tt.msg)
			var verr *waitlist.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Message)
			assert.Empty(t, mock.Sent())
		})
	}
}

func TestSendRawNormalizesRecipient(t *testing.T) {
	mock := NewMockProvider(quietLogger())
	sender := New(mock, "mock", quietLogger())

	err := sender.SendRaw(context.Background(), waitlist.Message{To: "  Alice@Example.COM ", Subject: "s", TextBody: "t"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", mock.Sent()[0].To)
}

func TestSendFailureIsDispatchError(t *testing.T) {
	provider := &failingProvider{err: errors.New("HTTP 503")}
	sender := New(provider, "resend", quietLogger())

	err := sender.SendWelcome(context.Background(), "alice@example.com")

	var derr *waitlist.DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "resend", derr.Provider)
	assert.Equal(t, 1, provider.calls, "delivery must be attempted exactly once")
}

func TestSendConfigErrorPassesThrough(t *testing.T) {
	cfgErr := &waitlist.ConfigError{Component: "resend", Missing: []string{"RESEND_API_KEY"}}
	sender := New(Unconfigured{Err: cfgErr}, "resend", quietLogger())

	err := sender.SendWelcome(context.Background(), "alice@example.com")
	assert.True(t, waitlist.IsConfig(err))

	var derr *waitlist.DispatchError
	assert.False(t, errors.As(err, &derr))
}
