package gateway

import "github.com/avolkov/scholarchat/internal/domain"

// BuildChatPayload maps every message in the dialogue to a wire message
// preserving order, then appends the new query as a final user entry.
// An empty dialogue yields a payload containing only the new query.
func BuildChatPayload(dialogue *domain.Dialogue, newQuery string) []ChatMessage {
	var history []domain.Message
	if dialogue != nil {
		history = dialogue.Messages
	}

	payload := make([]ChatMessage, 0, len(history)+1)
	for _, m := range history {
		payload = append(payload, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return append(payload, ChatMessage{Role: string(domain.RoleUser), Content: newQuery})
}

// BuildRetrievalPayload pairs the materialized context texts with the
// question. History is deliberately absent: a retrieval turn depends
// only on the currently selected sources, not on prior turns.
func BuildRetrievalPayload(contextTexts []string, newQuery string) RetrievalRequest {
	return RetrievalRequest{Texts: contextTexts, Question: newQuery}
}
