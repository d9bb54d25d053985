package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/citygrid/citygrid/internal/event"
)

// HTTPRecorder persists through the web backend's REST API
// (POST /api/events, POST /api/actions). The timeout is deliberately short:
// a slow backend must not stall the agents.
type HTTPRecorder struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRecorder creates a recorder against the web backend.
func NewHTTPRecorder(baseURL string, timeout time.Duration) *HTTPRecorder {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPRecorder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PersistEvent posts the event to /api/events.
func (r *HTTPRecorder) PersistEvent(ctx context.Context, ev event.SensorEvent) error {
	payload := map[string]any{
		"district":    ev.District,
		"sensor_type": ev.SensorType,
		"value":       ev.Value,
		"unit":        ev.Unit,
		"severity":    ev.Severity,
		"timestamp":   ev.Timestamp,
		"topic":       ev.SourceTopic,
	}
	return r.post(ctx, "/api/events", payload)
}

// PersistAction posts the action to /api/actions.
func (r *HTTPRecorder) PersistAction(ctx context.Context, sourceDistrict, targetDistrict, actionType, reason string, snapshot event.SensorEvent) error {
	payload := map[string]any{
		"source_district": sourceDistrict,
		"target_district": targetDistrict,
		"action_type":     actionType,
		"reason":          reason,
		"event_snapshot":  snapshot,
	}
	return r.post(ctx, "/api/actions", payload)
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (r *HTTPRecorder) Close() error { return nil }

func (r *HTTPRecorder) post(ctx context.Context, path string, payload any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}
