package service

import (
	"context"

	"housing-assistant/internal/model"
)

// AIClient is the interface for the language model and moderation collaborators
type AIClient interface {
	// ChatCompletion returns the assistant text for a conversation
	ChatCompletion(ctx context.Context, messages []model.ChatMessage) (string, error)

	// ChatCompletionJSON is ChatCompletion with the response constrained to a JSON object
	ChatCompletionJSON(ctx context.Context, messages []model.ChatMessage) (string, error)

	// Moderate reports whether text is flagged by the moderation service
	Moderate(ctx context.Context, text string) (bool, error)

	// IsEnabled returns whether the AI client is configured and ready
	IsEnabled() bool
}

// Ensure OpenAIClient implements AIClient
var _ AIClient = (*OpenAIClient)(nil)
