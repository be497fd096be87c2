// Package advisor provides the HTTP client for the remote decision service.
// The service retrieves evidence, renders a decision with a confidence and
// rationale, and maintains the pet's moral stats server-side; every call has
// a deterministic local fallback in the session layer, so failures here are
// never fatal.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps the advisor service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an advisor client. Returns nil if baseURL is empty
// (offline mode — callers treat a nil client as permanently unreachable).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled returns true if the client is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Health probes the service. Consumed once at startup to decide offline
// messaging; it does not gate any core logic.
func (c *Client) Health(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// NextDilemma asks the service for a data-driven scenario.
func (c *Client) NextDilemma(ctx context.Context) (*DilemmaResponse, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("advisor client not configured")
	}
	var out DilemmaResponse
	if err := c.get(ctx, "/dilemma/next", &out); err != nil {
		return nil, fmt.Errorf("next dilemma: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("next dilemma: empty response")
	}
	return &out, nil
}

// SubmitAdvice sends the user's free-text advice for a scenario. Context and
// evidence ids are the correlation tokens issued with the scenario, passed
// back so the service scores against the same evidence.
func (c *Client) SubmitAdvice(ctx context.Context, question, petID, scenarioContext string, evidenceIDs []string) (*AdviceResponse, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("advisor client not configured")
	}

	body := struct {
		Question    string   `json:"question"`
		PetID       string   `json:"pet_id"`
		Context     string   `json:"context,omitempty"`
		EvidenceIDs []string `json:"evidence_ids,omitempty"`
	}{question, petID, scenarioContext, evidenceIDs}

	var out AdviceResponse
	if err := c.post(ctx, "/qa", body, &out); err != nil {
		return nil, fmt.Errorf("submit advice: %w", err)
	}
	return &out, nil
}

// SubmitFeedback reports the user's verdict on a prior decision.
func (c *Client) SubmitFeedback(ctx context.Context, interactionID, action string) (*FeedbackResponse, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("advisor client not configured")
	}

	body := struct {
		InteractionID string `json:"interaction_id"`
		Action        string `json:"action"`
	}{interactionID, action}

	var out FeedbackResponse
	if err := c.post(ctx, "/feedback", body, &out); err != nil {
		return nil, fmt.Errorf("submit feedback: %w", err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service error %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
