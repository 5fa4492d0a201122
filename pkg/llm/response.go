package llm

import (
	"encoding/json"
	"time"
)

// ChatResponse is a decoded non-streaming completion.
type ChatResponse struct {
	// ID is the server assigned completion id.
	ID string `json:"id,omitempty"`

	// Model that generated the response
	Model string `json:"model"`

	// Response timestamp
	CreatedAt time.Time `json:"created_at,omitzero"`

	// The first choice's message
	Message Message `json:"message"`

	// Stop reason (e.g., "stop", "length", "content_filter")
	StopReason string `json:"stop_reason,omitempty"`

	// Token usage, when reported
	Usage *Usage `json:"usage,omitempty"`

	// RawResponse preserves the original response payload for debugging.
	RawResponse json.RawMessage `json:"raw_response,omitempty"`
}

// Usage contains token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}
