package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"waitlist-intake/pkg/waitlist"
)

// Provider defines the interface for email sending implementations.
// Implementations make exactly one delivery attempt.
type Provider interface {
	Send(ctx context.Context, msg waitlist.Message) error
}

// Options selects and configures a delivery provider.
type Options struct {
	Name                 string // resend, brevo, ses, gmail or mock
	FromAddr             string
	FromName             string
	ResendAPIKey         string
	ResendBaseURL        string
	BrevoAPIKey          string
	BrevoBaseURL         string
	SESRegion            string
	SESAccessKey         string
	SESSecretKey         string
	GmailCredentialsJSON string
	Timeout              time.Duration
}

// NewProvider builds the provider named in opts. A *waitlist.ConfigError is
// returned when its credentials are missing.
func NewProvider(ctx context.Context, opts Options, logger *slog.Logger) (Provider, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch strings.ToLower(strings.TrimSpace(opts.Name)) {
	case "", "resend":
		if opts.ResendAPIKey == "" {
			return nil, &waitlist.ConfigError{Component: "resend", Missing: []string{"RESEND_API_KEY"}}
		}
		return NewResendProvider(opts.ResendAPIKey, opts.ResendBaseURL, opts.FromAddr, opts.FromName, client, logger), nil
	case "brevo":
		if opts.BrevoAPIKey == "" {
			return nil, &waitlist.ConfigError{Component: "brevo", Missing: []string{"BREVO_API_KEY"}}
		}
		return NewBrevoProvider(opts.BrevoAPIKey, opts.BrevoBaseURL, opts.FromAddr, opts.FromName, client, logger), nil
	case "ses":
		p, err := NewSESProvider(ctx, opts.SESRegion, opts.SESAccessKey, opts.SESSecretKey, opts.FromAddr, opts.FromName, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "gmail":
		if opts.GmailCredentialsJSON == "" {
			return nil, &waitlist.ConfigError{Component: "gmail", Missing: []string{"GOOGLE_CREDENTIALS_JSON"}}
		}
		p, err := NewGmailProviderFromJSON(ctx, []byte(opts.GmailCredentialsJSON), opts.FromAddr, opts.FromName, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "mock":
		return NewMockProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", opts.Name)
	}
}

// Unconfigured fails every send with the configuration error that kept the
// real provider from being built.
type Unconfigured struct {
	Err error
}

// Send implements Provider.
func (u Unconfigured) Send(context.Context, waitlist.Message) error {
	return u.Err
}

// senderAddress splits an optional "Name <addr>" override, falling back to
// the configured sender.
func senderAddress(override, defAddr, defName string) (addr, name string) {
	override = waitlist.StripControl(strings.TrimSpace(override))
	if override == "" {
		return defAddr, defName
	}
	parsed, err := mail.ParseAddress(override)
	if err != nil {
		return defAddr, defName
	}
	return parsed.Address, parsed.Name
}

// formatSender renders addr and name as an RFC 5322 mailbox.
func formatSender(addr, name string) string {
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}
