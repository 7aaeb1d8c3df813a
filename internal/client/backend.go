package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"learnpulse/internal/models"

	"go.uber.org/zap"
)

// BackendClient talks to the adaptive-learning backend owning session
// rows and adaptation directives.
type BackendClient struct {
	base string
	http *http.Client
	log  *zap.Logger
}

// NewBackendClient returns a client rooted at the backend base URL.
func NewBackendClient(base string, log *zap.Logger) *BackendClient {
	return &BackendClient{
		base: base,
		http: &http.Client{Timeout: defaultTimeout},
		log:  log,
	}
}

// StartSession registers a new lesson session upstream.
func (c *BackendClient) StartSession(ctx context.Context, req models.SessionStartRequest) (*models.SessionStartResponse, error) {
	var resp models.SessionStartResponse
	if err := c.do(ctx, http.MethodPost, "/adaptive-learning/session/start", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSession pushes one tracked event upstream and returns any
// adaptation directive the backend decided on.
func (c *BackendClient) UpdateSession(ctx context.Context, sessionID string, req models.SessionUpdateRequest) (*models.RealTimeAdaptation, error) {
	var resp models.SessionUpdateResponse
	path := "/adaptive-learning/session/" + sessionID + "/update"
	if err := c.do(ctx, http.MethodPut, path, req, &resp); err != nil {
		return nil, err
	}
	return resp.Adaptations, nil
}

// EndSession closes the session upstream with the final scoring inputs.
func (c *BackendClient) EndSession(ctx context.Context, sessionID string, req models.SessionEndRequest) error {
	path := "/adaptive-learning/session/" + sessionID + "/end"
	return c.do(ctx, http.MethodPost, path, req, nil)
}

func (c *BackendClient) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
