// Package waitlist contains the core domain types for the waitlist intake service.
package waitlist

import "time"

// Entry represents a single address recorded in the waitlist store.
type Entry struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Email     string    `json:"email"` // Normalized address
}

// Message is an outbound email. It is built per send and never stored.
type Message struct {
	To       string
	From     string // Optional; providers fall back to their configured sender
	Subject  string
	HTMLBody string
	TextBody string
}

// OutcomeKind classifies the result of forwarding a subscription.
type OutcomeKind int

const (
	Accepted OutcomeKind = iota
	AlreadySubscribed
	Rejected
	ProviderFailed
	Misconfigured
)

func (k OutcomeKind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case AlreadySubscribed:
		return "already_subscribed"
	case Rejected:
		return "rejected"
	case ProviderFailed:
		return "provider_error"
	case Misconfigured:
		return "config_error"
	default:
		return "unknown"
	}
}

// Outcome is the normalized result of a single list provider call.
// Reason is safe to show to clients; Err is for server-side logs only.
type Outcome struct {
	Err    error
	Reason string
	Kind   OutcomeKind
}

// Subscribed reports whether the address is on the list after the call.
func (o Outcome) Subscribed() bool {
	return o.Kind == Accepted || o.Kind == AlreadySubscribed
}
