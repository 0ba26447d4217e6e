package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/avolkov/scholarchat/internal/gateway"
)

// Client implements gateway.Retriever against the retrieval-augmented
// answer service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new retrieval gateway client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type retrievalResponse struct {
	Response *string `json:"response"`
}

// Retrieve posts the context texts and question and returns the answer
// text. An absent response field counts as malformed even on a success
// status. Every failure is reported as a *gateway.Fault.
func (c *Client) Retrieve(ctx context.Context, req gateway.RetrievalRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", gateway.NewFault(gateway.FaultUnavailable, "failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", gateway.NewFault(gateway.FaultUnavailable, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", gateway.NewFault(gateway.FaultUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gateway.NewFault(gateway.FaultRejected, "retrieval gateway returned status %d", resp.StatusCode)
	}

	var retResp retrievalResponse
	if err := json.NewDecoder(resp.Body).Decode(&retResp); err != nil {
		return "", gateway.NewFault(gateway.FaultMalformed, "failed to decode response: %v", err)
	}

	if retResp.Response == nil {
		return "", gateway.NewFault(gateway.FaultMalformed, "response field missing")
	}

	return *retResp.Response, nil
}
