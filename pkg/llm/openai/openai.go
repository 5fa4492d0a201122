// Package openai encodes and decodes the chat-completions JSON shapes spoken
// by GitHub Models and other OpenAI-compatible endpoints.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/ghmodels/pkg/llm"
)

// DefaultErrorMessage is used when an error response has no "error" object.
const DefaultErrorMessage = "Unexpected response"

// ErrEmptyPayload is returned when a payload to decode is empty.
var ErrEmptyPayload = errors.New("empty payload")

// EncodeRequest renders req as a chat-completions request body.
func EncodeRequest(req llm.ChatRequest) ([]byte, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	for _, m := range req.Messages {
		content, err := json.Marshal(m.Content)
		if err != nil {
			return nil, fmt.Errorf("encoding message content: %w", err)
		}
		body.Messages = append(body.Messages, wireMessage{Role: m.Role, Content: content})
	}
	return json.Marshal(body)
}

// ParseResponse decodes a non-streaming response. A response without choices
// returns an error matching llm.ErrNoContent.
func ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}

	result := &llm.ChatResponse{
		ID:          resp.ID,
		Model:       resp.Model,
		Usage:       convertUsage(resp.Usage),
		RawResponse: payload,
	}
	if resp.Created > 0 {
		result.CreatedAt = time.Unix(resp.Created, 0)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices: %w", llm.ErrNoContent)
	}

	choice := resp.Choices[0]
	result.Message = llm.Message{
		Role:    choice.Message.Role,
		Content: contentText(choice.Message.Content),
	}
	if result.Message.Role == "" {
		result.Message.Role = llm.RoleAssistant
	}
	result.StopReason = choice.FinishReason
	return result, nil
}

// ParseStreamChunk decodes one streamed payload. The token comes from the
// first choice: "delta.content" when it is a non-empty string, otherwise
// "message.content", otherwise the chunk carries no token.
func ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	var raw streamChunk
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decoding stream chunk: %w", err)
	}

	chunk := &llm.StreamChunk{
		Model: raw.Model,
		Usage: convertUsage(raw.Usage),
	}
	if len(raw.Choices) == 0 {
		return chunk, nil
	}

	choice := raw.Choices[0]
	if choice.FinishReason != nil {
		chunk.StopReason = *choice.FinishReason
	}
	if choice.Delta != nil {
		if text := contentText(choice.Delta.Content); text != "" {
			chunk.Token = llm.DeltaToken(text)
			return chunk, nil
		}
	}
	if choice.Message != nil {
		if text := contentText(choice.Message.Content); text != "" {
			chunk.Token = llm.MessageToken(text)
		}
	}
	return chunk, nil
}

// ParseError turns a non-2xx response into an *llm.APIError. Bodies that are
// not JSON or have no "error" object get DefaultErrorMessage.
func ParseError(status int, payload []byte) *llm.APIError {
	apiErr := &llm.APIError{
		StatusCode: status,
		Message:    DefaultErrorMessage,
	}

	var env errorEnvelope
	if err := json.Unmarshal(payload, &env); err != nil || env.Error == nil {
		return apiErr
	}
	if msg := strings.TrimSpace(env.Error.Message); msg != "" {
		apiErr.Message = msg
	}
	apiErr.Type = env.Error.Type
	apiErr.Code = scalarString(env.Error.Code)
	return apiErr
}

// contentText flattens a content field. Strings are returned as is; part
// arrays are concatenated from their text parts; anything else is empty.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "" || p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// scalarString renders an error code that may be a string or a number.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func convertUsage(u *usage) *llm.Usage {
	if u == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
