// Package scheduler talks to the external one-shot job scheduler over its
// sidecar HTTP API. The command service creates and cancels jobs; the
// notification service receives the callbacks when they fire.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RequestTimeout bounds every sidecar call.
const RequestTimeout = 5 * time.Second

// jobsPathPrefix is the sidecar's one-shot jobs API.
const jobsPathPrefix = "/v1.0-alpha1/jobs/"

// JobPayload is the data the scheduler hands back when the job fires.
type JobPayload struct {
	ReminderID string `json:"reminder_id"`
	TaskID     string `json:"task_id"`
	UserID     string `json:"user_id"`
}

// jobRequest is the create-job body.
type jobRequest struct {
	DueTime string     `json:"dueTime"`
	Data    JobPayload `json:"data"`
}

// Client schedules and cancels one-shot jobs.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scheduler client for the given sidecar base URL,
// e.g. "http://localhost:3500".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

// Schedule creates a one-shot job firing at dueTime. The job name must be
// unique; the platform uses "reminder-{reminder_id}".
func (c *Client) Schedule(ctx context.Context, name string, dueTime time.Time, payload JobPayload) error {
	body, err := json.Marshal(jobRequest{
		DueTime: dueTime.UTC().Format(time.RFC3339),
		Data:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal job request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+jobsPathPrefix+name, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build job request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler unreachable: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("failed to schedule job %s: status %d", name, resp.StatusCode)
	}

	slog.DebugContext(ctx, "job scheduled", "job_name", name, "due_time", dueTime.UTC())
	return nil
}

// Cancel deletes a scheduled job. A 404 is success: the job already fired
// or was cancelled by someone else.
func (c *Client) Cancel(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+jobsPathPrefix+name, nil)
	if err != nil {
		return fmt.Errorf("failed to build cancel request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler unreachable: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		slog.DebugContext(ctx, "job cancelled", "job_name", name)
		return nil
	case http.StatusNotFound:
		slog.DebugContext(ctx, "job already gone", "job_name", name)
		return nil
	default:
		return fmt.Errorf("failed to cancel job %s: status %d", name, resp.StatusCode)
	}
}

// DecodeCallback extracts the job payload from a scheduler callback body.
// The scheduler wraps the payload under "data"; bare payloads are accepted
// for compatibility with older scheduler versions.
func DecodeCallback(body []byte) (JobPayload, error) {
	var wrapper struct {
		Data JobPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Data.ReminderID != "" {
		return wrapper.Data, nil
	}

	var payload JobPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return JobPayload{}, fmt.Errorf("malformed job callback body: %w", err)
	}
	if payload.ReminderID == "" {
		return JobPayload{}, fmt.Errorf("job callback missing reminder_id")
	}
	return payload, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
