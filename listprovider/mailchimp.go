package listprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"waitlist-intake/pkg/waitlist"
)

// Mailchimp error titles with special meaning.
const (
	titleMemberExists    = "Member Exists"
	titleInvalidResource = "Invalid Resource"
)

// Mailchimp subscribes addresses to a Mailchimp audience (list).
type Mailchimp struct {
	api     apiClient
	apiKey  string
	listID  string
	baseURL string
}

// NewMailchimp creates a Mailchimp provider. When baseURL is empty it is
// derived from the datacenter suffix of the API key ("<key>-us21").
func NewMailchimp(apiKey, listID, baseURL string, client *http.Client, logger *slog.Logger) *Mailchimp {
	if baseURL == "" {
		if dc := datacenter(apiKey); dc != "" {
			baseURL = fmt.Sprintf("https://%s.api.mailchimp.com", dc)
		}
	}
	return &Mailchimp{
		api:     apiClient{client: client, logger: logger, provider: "Mailchimp"},
		apiKey:  apiKey,
		listID:  listID,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// datacenter returns the part of the key after the last dash.
func datacenter(apiKey string) string {
	i := strings.LastIndex(apiKey, "-")
	if i < 0 || i == len(apiKey)-1 {
		return ""
	}
	return apiKey[i+1:]
}

// Name implements Provider.
func (m *Mailchimp) Name() string {
	return "mailchimp"
}

type mailchimpMemberRequest struct {
	EmailAddress string `json:"email_address"`
	Status       string `json:"status"`
}

// mailchimpError is the API's problem-details error body.
type mailchimpError struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// Subscribe implements Provider. The "Member Exists" error title is
// reported as AlreadySubscribed.
func (m *Mailchimp) Subscribe(ctx context.Context, email string) waitlist.Outcome {
	var missing []string
	if m.apiKey == "" {
		missing = append(missing, "MAILCHIMP_API_KEY")
	}
	if m.listID == "" {
		missing = append(missing, "MAILCHIMP_LIST_ID")
	}
	if m.baseURL == "" && m.apiKey != "" {
		missing = append(missing, "MAILCHIMP_API_KEY datacenter suffix")
	}
	if len(missing) > 0 {
		return misconfigured(m.Name(), missing...)
	}

	endpoint := fmt.Sprintf("%s/3.0/lists/%s/members", m.baseURL, url.PathEscape(m.listID))
	status, body, err := m.api.postJSON(ctx, endpoint, email,
		mailchimpMemberRequest{EmailAddress: email, Status: "subscribed"},
		func(req *http.Request) {
			req.SetBasicAuth("anystring", m.apiKey)
		})
	if err != nil {
		return failed(m.Name(), status, err)
	}

	if isSuccess(status) {
		return accepted()
	}

	var apiErr mailchimpError
	if jsonErr := json.Unmarshal(body, &apiErr); jsonErr != nil {
		m.api.logRejection(status, body)
		return failed(m.Name(), status, fmt.Errorf("decode error body: %w", jsonErr))
	}

	switch apiErr.Title {
	case titleMemberExists:
		return alreadySubscribed()
	case titleInvalidResource:
		m.api.logRejection(status, body)
		return rejected(waitlist.MsgEmailInvalid)
	default:
		m.api.logRejection(status, body)
		return failed(m.Name(), status, errors.New(apiErr.Title))
	}
}
