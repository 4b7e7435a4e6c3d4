package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ModelChecker verifies that a model is available on the serving endpoint
// via the OpenAI-compatible /v1/models listing. Used at startup to fail fast
// before index building rather than on the first query.
type ModelChecker struct {
	baseURL string
	client  *http.Client
}

// NewModelChecker creates a new model checker.
func NewModelChecker(baseURL string) *ModelChecker {
	return &ModelChecker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// IsModelAvailable reports whether the named model is served by the endpoint.
func (mc *ModelChecker) IsModelAvailable(ctx context.Context, modelName string) (bool, error) {
	url := fmt.Sprintf("%s/v1/models", mc.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create models request: %w", err)
	}

	resp, err := mc.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to query models endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return false, fmt.Errorf("failed to decode models response: %w", err)
	}

	for _, m := range models.Data {
		if m.ID == modelName {
			return true, nil
		}
	}
	return false, nil
}
