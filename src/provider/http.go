package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response ends up in messages.
const maxErrorBody = 200

// NewHTTPClient returns the HTTP client adapters use when none is supplied.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

// GetJSON issues a GET request and decodes a JSON response into result.
// Failures are classified into ErrProviderUnavailable or ErrProviderRejected.
func GetJSON(ctx context.Context, client *http.Client, kind Kind, url string, headers map[string]string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return ClassifyTransport(ctx, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Kind: kind,
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return ClassifyTransport(ctx, fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}
