// Package listprovider forwards validated subscriptions to the configured
// mailing list service and normalizes its answers into waitlist.Outcome.
package listprovider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"waitlist-intake/pkg/waitlist"
)

// Client-facing details. Provider responses are never echoed.
const (
	msgUnavailable = "Service temporarily unavailable. Please try again later."
	msgFailed      = "Unable to process subscription. Please try again later."
)

// Provider subscribes one address per call, without retries.
type Provider interface {
	Name() string
	Subscribe(ctx context.Context, email string) waitlist.Outcome
}

// Options selects and configures a provider.
type Options struct {
	Name             string // "kit" or "mailchimp"
	KitAPIKey        string
	KitBaseURL       string
	MailchimpAPIKey  string
	MailchimpListID  string
	MailchimpBaseURL string // Overrides the datacenter URL derived from the key
	Timeout          time.Duration
}

// New returns the provider named in opts.
func New(opts Options, logger *slog.Logger) (Provider, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch strings.ToLower(strings.TrimSpace(opts.Name)) {
	case "", "kit":
		return NewKit(opts.KitAPIKey, opts.KitBaseURL, client, logger), nil
	case "mailchimp":
		return NewMailchimp(opts.MailchimpAPIKey, opts.MailchimpListID, opts.MailchimpBaseURL, client, logger), nil
	default:
		return nil, fmt.Errorf("unknown list provider %q", opts.Name)
	}
}

func accepted() waitlist.Outcome {
	return waitlist.Outcome{Kind: waitlist.Accepted}
}

func alreadySubscribed() waitlist.Outcome {
	return waitlist.Outcome{Kind: waitlist.AlreadySubscribed}
}

func rejected(reason string) waitlist.Outcome {
	return waitlist.Outcome{Kind: waitlist.Rejected, Reason: reason}
}

func misconfigured(provider string, missing ...string) waitlist.Outcome {
	return waitlist.Outcome{
		Kind:   waitlist.Misconfigured,
		Reason: msgUnavailable,
		Err:    &waitlist.ConfigError{Component: provider, Missing: missing},
	}
}

func failed(provider string, status int, err error) waitlist.Outcome {
	return waitlist.Outcome{
		Kind:   waitlist.ProviderFailed,
		Reason: msgFailed,
		Err: &waitlist.ProviderError{
			Provider: provider,
			Status:   status,
			Detail:   msgFailed,
			Err:      err,
		},
	}
}
