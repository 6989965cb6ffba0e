package waitlist

import (
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantMsg string
	}{
		{
			name: "valid email",
			raw:  "user@example.com",
			want: "user@example.com",
		},
		{
			name: "uppercase and surrounding whitespace",
			raw:  "  New.User+Tag@Example.COM \n",
			want: "new.user+tag@example.com",
		},
		{
			name: "embedded control characters are stripped",
			raw:  "us\x00er@exa\rmple.com\x7f",
			want: "user@example.com",
		},
		{
			name:    "header injection attempt is rejected",
			raw:     "victim@example.com\r\nBcc: other@example.com",
			wantMsg: MsgEmailInvalid,
		},
		{
			name:    "empty",
			raw:     "",
			wantMsg: MsgEmailRequired,
		},
		{
			name:    "whitespace only",
			raw:     "   ",
			wantMsg: MsgEmailRequired,
		},
		{
			name:    "control characters only",
			raw:     "\x01\x02",
			wantMsg: MsgEmailRequired,
		},
		{
			name:    "too long",
			raw:     strings.Repeat("a", 300) + "@b.com",
			wantMsg: MsgEmailTooLong,
		},
		{
			name:    "no at sign",
			raw:     "not-an-email",
			wantMsg: MsgEmailInvalid,
		},
		{
			name:    "no tld",
			raw:     "bad@localhost",
			wantMsg: MsgEmailInvalid,
		},
		{
			name:    "double dot in domain",
			raw:     "user@example..com",
			wantMsg: MsgEmailInvalid,
		},
		{
			name:    "domain label starts with hyphen",
			raw:     "a@-x.com",
			wantMsg: MsgEmailInvalid,
		},
		{
			name:    "domain label ends with hyphen",
			raw:     "a@x-.com",
			wantMsg: MsgEmailInvalid,
		},
		{
			name: "hyphen inside domain label",
			raw:  "a@my-site.co.uk",
			want: "a@my-site.co.uk",
		},
		{
			name:    "display name form",
			raw:     "Someone <someone@example.com>",
			wantMsg: MsgEmailInvalid,
		},
		{
			name:    "inner space",
			raw:     "user @example.com",
			wantMsg: MsgEmailInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateEmail(tt.raw)
			if tt.wantMsg != "" {
				if err == nil {
					t.Fatalf("ValidateEmail(%q) = %q, want error %q", tt.raw, got, tt.wantMsg)
				}
				if !IsValidation(err) {
					t.Fatalf("ValidateEmail(%q) error type = %T, want *ValidationError", tt.raw, err)
				}
				if err.Error() != tt.wantMsg {
					t.Errorf("ValidateEmail(%q) error = %q, want %q", tt.raw, err.Error(), tt.wantMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateEmail(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ValidateEmail(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateEmailIdempotent(t *testing.T) {
	inputs := []string{
		"user@example.com",
		" MiXeD@Example.Org ",
		"tab\tbed@example.net",
		"a.b-c_d%e+f@sub.example.co.uk",
	}

	for _, in := range inputs {
		first, err := ValidateEmail(in)
		if err != nil {
			t.Fatalf("ValidateEmail(%q) unexpected error: %v", in, err)
		}
		second, err := ValidateEmail(first)
		if err != nil {
			t.Fatalf("ValidateEmail(%q) second pass error: %v", first, err)
		}
		if first != second {
			t.Errorf("not idempotent: %q -> %q -> %q", in, first, second)
		}
		if first != strings.ToLower(first) || first != strings.TrimSpace(first) || first != StripControl(first) {
			t.Errorf("ValidateEmail(%q) = %q is not normalized", in, first)
		}
	}
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"a@b@c", "***@***"},
	}

	for _, tt := range tests {
		if got := RedactEmail(tt.email); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestOutcomeSubscribed(t *testing.T) {
	for kind, want := range map[OutcomeKind]bool{
		Accepted:          true,
		AlreadySubscribed: true,
		Rejected:          false,
		ProviderFailed:    false,
		Misconfigured:     false,
	} {
		if got := (Outcome{Kind: kind}).Subscribed(); got != want {
			t.Errorf("Outcome{%s}.Subscribed() = %v, want %v", kind, got, want)
		}
	}
}

func TestRedactEmailsIn(t *testing.T) {
	got := RedactEmailsIn(`{"detail":"john.doe@example.com is already a list member."}`)
	want := `{"detail":"jo***@example.com is already a list member."}`
	if got != want {
		t.Errorf("RedactEmailsIn() = %s, want %s", got, want)
	}
}
