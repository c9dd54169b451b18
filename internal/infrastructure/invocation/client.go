// Package invocation calls other services through the sidecar's service
// invocation channel. Transient transport failures and permanent upstream
// rejections are surfaced as distinct error types so bus handlers can map
// them to RETRY and DROP respectively.
package invocation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RequestTimeout bounds every invocation call.
const RequestTimeout = 5 * time.Second

// maxErrorBodyBytes limits how much of an upstream error body is kept for
// logging.
const maxErrorBodyBytes = 2048

// Client invokes methods on one upstream app through the sidecar.
type Client struct {
	baseURL    string
	appID      string
	httpClient *http.Client
}

// NewClient creates an invocation client. baseURL is the local sidecar,
// e.g. "http://localhost:3500"; appID names the target service.
func NewClient(baseURL, appID string) *Client {
	return &Client{
		baseURL:    baseURL,
		appID:      appID,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

// Do invokes method+path with an optional JSON body, decoding a JSON
// response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal invocation body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	url := fmt.Sprintf("%s/v1.0/invoke/%s/method/%s", c.baseURL, c.appID, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build invocation request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transient(fmt.Errorf("invocation of %s failed: %w", c.appID, err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 500:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return Transient(StatusError{Code: resp.StatusCode, Body: string(raw)})
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode invocation response: %w", err)
		}
	}
	return nil
}
