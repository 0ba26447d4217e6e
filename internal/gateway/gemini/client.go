package gemini

import (
	"context"

	"github.com/avolkov/scholarchat/internal/gateway"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client implements gateway.ChatCompleter using the Gemini SDK.
type Client struct {
	apiKey string
	model  string
}

// NewClient creates a new Gemini chat gateway client
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Client{apiKey: apiKey, model: model}
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return "gemini"
}

// Complete replays the dialogue as Gemini chat history and sends the
// final user message. Every failure is reported as a *gateway.Fault.
func (c *Client) Complete(ctx context.Context, messages []gateway.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", gateway.NewFault(gateway.FaultMalformed, "empty message sequence")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", gateway.NewFault(gateway.FaultUnavailable, "failed to create gemini client: %v", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	chat := model.StartChat()

	// Gemini names the assistant role "model".
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(messages[len(messages)-1].Content))
	if err != nil {
		return "", gateway.NewFault(gateway.FaultUnavailable, "gemini generation error: %v", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", gateway.NewFault(gateway.FaultMalformed, "empty response from gemini")
	}

	var output string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output += string(text)
		}
	}
	return output, nil
}
