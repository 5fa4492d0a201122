// Package llm holds the request, response and token types shared by the chat
// client, its wire codec and the command line, along with the client's error
// taxonomy.
package llm

import "slices"

// ChatRequest is the caller's description of one chat completion. Callers
// build it per invocation; the client works on a copy and never mutates the
// caller's value.
type ChatRequest struct {
	// Model identifier (e.g. "openai/gpt-4o"). Empty selects the client default.
	Model string `json:"model,omitempty"`

	// Conversation messages, in order.
	Messages []Message `json:"messages"`

	// Generation parameters. Nil selects the client default.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`

	// Stream requests an event-stream response.
	Stream bool `json:"stream"`
}

// Clone returns a deep copy of r.
func (r ChatRequest) Clone() ChatRequest {
	out := r
	out.Messages = slices.Clone(r.Messages)
	if r.Temperature != nil {
		t := *r.Temperature
		out.Temperature = &t
	}
	if r.MaxTokens != nil {
		m := *r.MaxTokens
		out.MaxTokens = &m
	}
	return out
}

// Ptr returns a pointer to v. Handy for the optional generation parameters.
func Ptr[T any](v T) *T {
	return &v
}
