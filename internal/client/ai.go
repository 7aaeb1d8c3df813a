// Package client holds the HTTP clients for the two external
// collaborators: the AI scoring service and the adaptive-learning
// backend. Both are thin: encode, POST, decode, explicit error returns.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"learnpulse/internal/models"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// AIClient talks to the scoring service.
type AIClient struct {
	base string
	http *http.Client
	log  *zap.Logger
}

// NewAIClient returns a client rooted at the service base URL.
func NewAIClient(base string, log *zap.Logger) *AIClient {
	return &AIClient{
		base: base,
		http: &http.Client{Timeout: defaultTimeout},
		log:  log,
	}
}

// AnalyzeCombined submits one snapshot batch and returns the combined
// scores and interventions. Callers treat failure as "skip this tick".
func (c *AIClient) AnalyzeCombined(ctx context.Context, req models.CombinedAnalyzeRequest) (*models.CombinedAnalyzeResponse, error) {
	var resp models.CombinedAnalyzeResponse
	if err := c.post(ctx, "/api/biometric/analyze-combined", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("analyze-combined reported failure")
	}
	return &resp, nil
}

// Persist fires the best-effort persistence call. Failure is logged and
// never surfaced; it must not block or delay the scoring path, so callers
// invoke it from a goroutine.
func (c *AIClient) Persist(ctx context.Context, req models.PersistRequest) {
	if err := c.post(ctx, "/api/biometric/persist", req, nil); err != nil {
		c.log.Debug("biometric persist failed", zap.Error(err))
	}
}

// EventsURL returns the push-channel URL for a user.
func (c *AIClient) EventsURL(userID string) string {
	return c.base + "/api/ai/events/" + userID
}

func (c *AIClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
