package listprovider

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"waitlist-intake/pkg/waitlist"
)

const defaultKitBaseURL = "https://api.kit.com"

// Kit subscribes addresses through the Kit (ConvertKit) v4 API.
type Kit struct {
	api     apiClient
	apiKey  string
	baseURL string
}

// NewKit creates a Kit provider. An empty baseURL selects the public API.
func NewKit(apiKey, baseURL string, client *http.Client, logger *slog.Logger) *Kit {
	if baseURL == "" {
		baseURL = defaultKitBaseURL
	}
	return &Kit{
		api:     apiClient{client: client, logger: logger, provider: "Kit"},
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Name implements Provider.
func (k *Kit) Name() string {
	return "kit"
}

type kitSubscriberRequest struct {
	EmailAddress string `json:"email_address"`
}

// Subscribe implements Provider. Kit answers 422 for an address that is
// already on the list; that is reported as AlreadySubscribed.
func (k *Kit) Subscribe(ctx context.Context, email string) waitlist.Outcome {
	if k.apiKey == "" {
		return misconfigured(k.Name(), "KIT_API_KEY")
	}

	status, body, err := k.api.postJSON(ctx, k.baseURL+"/v4/subscribers", email,
		kitSubscriberRequest{EmailAddress: email},
		func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+k.apiKey)
		})
	if err != nil {
		return failed(k.Name(), status, err)
	}

	switch {
	case isSuccess(status):
		return accepted()
	case status == http.StatusUnprocessableEntity:
		return alreadySubscribed()
	default:
		k.api.logRejection(status, body)
		return failed(k.Name(), status, nil)
	}
}
