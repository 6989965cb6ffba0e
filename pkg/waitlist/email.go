package waitlist

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxEmailLength is the longest accepted address, in characters.
const MaxEmailLength = 255

// Client-facing validation messages.
const (
	MsgEmailRequired = "Email is required"
	MsgEmailTooLong  = "Email must be less than 255 characters"
	MsgEmailInvalid  = "Please enter a valid email address"
)

// Domain labels may not start or end with a hyphen.
var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@([a-z0-9]([a-z0-9\-]*[a-z0-9])?\.)+[a-z]{2,}$`)

// ValidateEmail normalizes raw and checks it against the address grammar.
// The returned address is trimmed, lowercased and free of ASCII control
// characters, so feeding it back in yields the same result.
func ValidateEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(StripControl(raw)))

	if email == "" {
		return "", &ValidationError{Message: MsgEmailRequired}
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return "", &ValidationError{Message: MsgEmailTooLong}
	}
	if !emailRegex.MatchString(email) {
		return "", &ValidationError{Message: MsgEmailInvalid}
	}

	// mail.ParseAddress must agree on the bare address.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &ValidationError{Message: MsgEmailInvalid}
	}

	return email, nil
}

// StripControl removes ASCII control characters (0x00-0x1F and 0x7F).
// Header values built from user input must pass through it.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// RedactEmail masks an address for logging.
// "john.doe@example.com" becomes "jo***@example.com".
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

var embeddedEmailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// RedactEmailsIn masks every address embedded in free text, such as a
// provider error body.
func RedactEmailsIn(s string) string {
	return embeddedEmailRegex.ReplaceAllStringFunc(s, RedactEmail)
}
