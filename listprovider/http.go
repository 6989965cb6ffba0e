package listprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"waitlist-intake/pkg/waitlist"
)

// maxBodyBytes bounds how much of a provider response is read.
const maxBodyBytes = 64 << 10

type apiClient struct {
	client   *http.Client
	logger   *slog.Logger
	provider string
}

// postJSON issues exactly one POST and returns the status and (bounded) body.
func (c *apiClient) postJSON(ctx context.Context, endpoint, email string, payload any, authorize func(*http.Request)) (int, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	authorize(req)

	c.logger.Info(c.provider+" API request starting",
		"method", http.MethodPost,
		"url", req.URL.Redacted(),
		"email", waitlist.RedactEmail(email))

	startTime := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn(c.provider+" API request failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Info(c.provider+" API request completed",
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	return resp.StatusCode, body, nil
}

// logRejection records a provider error body server-side.
func (c *apiClient) logRejection(status int, body []byte) {
	const maxLogged = 512
	if len(body) > maxLogged {
		body = body[:maxLogged]
	}
	c.logger.Error(c.provider+" API returned error status",
		"status_code", status,
		"body", waitlist.RedactEmailsIn(string(body)))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
