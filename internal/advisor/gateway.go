package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GatewayClient implements Advisor against the HTTP LLM gateway.
// Endpoints: POST /llm/decide_escalation, POST /llm/plan_coordination.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGatewayClient creates a gateway client. timeout bounds each call; the
// agents treat a timeout like any other advisor failure.
func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type decideEscalationRequest struct {
	District     string         `json:"district"`
	RecentEvents []EventSummary `json:"recent_events"`
	CurrentEvent EventSummary   `json:"current_event"`
}

// decideEscalationResponse uses pointers for the required fields so a
// schema mismatch is detectable, not silently zero-valued.
type decideEscalationResponse struct {
	Escalate           *bool   `json:"escalate"`
	NormalizedSeverity *string `json:"normalized_severity"`
	Reason             string  `json:"reason"`
}

// DecideEscalation calls the gateway's decide_escalation endpoint.
func (c *GatewayClient) DecideEscalation(ctx context.Context, district string, recent []EventSummary, current EventSummary) (*EscalationDecision, error) {
	if recent == nil {
		recent = []EventSummary{}
	}
	reqBody := decideEscalationRequest{
		District:     district,
		RecentEvents: recent,
		CurrentEvent: current,
	}

	var resp decideEscalationResponse
	if err := c.post(ctx, "/llm/decide_escalation", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Escalate == nil || resp.NormalizedSeverity == nil {
		return nil, fmt.Errorf("decide_escalation: response missing required keys")
	}
	reason := resp.Reason
	if reason == "" {
		reason = ReasonLLMDecision
	}
	return &EscalationDecision{
		Escalate:           *resp.Escalate,
		NormalizedSeverity: strings.ToLower(*resp.NormalizedSeverity),
		Reason:             reason,
	}, nil
}

type planCoordinationRequest struct {
	SourceDistrict string          `json:"source_district"`
	CriticalEvent  EventSummary    `json:"critical_event"`
	CityState      []DistrictState `json:"city_state"`
}

type planCoordinationResponse struct {
	Plan *[]PlanEntry `json:"plan"`
}

// PlanCoordination calls the gateway's plan_coordination endpoint.
func (c *GatewayClient) PlanCoordination(ctx context.Context, sourceDistrict string, critical EventSummary, cityState []DistrictState) ([]PlanEntry, error) {
	if cityState == nil {
		cityState = []DistrictState{}
	}
	reqBody := planCoordinationRequest{
		SourceDistrict: sourceDistrict,
		CriticalEvent:  critical,
		CityState:      cityState,
	}

	var resp planCoordinationResponse
	if err := c.post(ctx, "/llm/plan_coordination", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Plan == nil {
		return nil, fmt.Errorf("plan_coordination: response missing plan")
	}
	return *resp.Plan, nil
}

func (c *GatewayClient) post(ctx context.Context, path string, reqBody, respBody any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
