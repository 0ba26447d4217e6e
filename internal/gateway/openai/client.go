package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/avolkov/scholarchat/internal/gateway"
)

// Client implements gateway.ChatCompleter against an OpenAI-compatible
// chat-completion endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient creates a new OpenAI chat gateway client
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return "openai"
}

type chatRequest struct {
	Model    string                `json:"model"`
	Messages []gateway.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the message sequence and returns the first candidate's
// content verbatim. Every failure is reported as a *gateway.Fault.
func (c *Client) Complete(ctx context.Context, messages []gateway.ChatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", gateway.NewFault(gateway.FaultUnavailable, "failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", gateway.NewFault(gateway.FaultUnavailable, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", gateway.NewFault(gateway.FaultUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gateway.NewFault(gateway.FaultRejected, "chat gateway returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", gateway.NewFault(gateway.FaultMalformed, "failed to decode response: %v", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", gateway.NewFault(gateway.FaultMalformed, "response missing choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
