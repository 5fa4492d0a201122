// Package eventstream defines the telemetry emitted once per chat completion
// and the Publisher interface its backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCompletionFinished is emitted when a chat completion call ends,
	// successfully or not.
	EventTypeCompletionFinished = "ghmodels.completion.finished"
)

// CompletionEvent is a transport-neutral event payload for one logical chat
// completion call, covering all of its attempts.
type CompletionEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Source        EventSource    `json:"source"`
	Request       RequestMeta    `json:"request"`
	Result        CompletionMeta `json:"result"`
}

// EventSource identifies where the completion originated.
type EventSource struct {
	Client   string `json:"client"`
	Endpoint string `json:"endpoint"`
}

// RequestMeta describes the request that was sent.
type RequestMeta struct {
	RequestID    string `json:"request_id"`
	Model        string `json:"model"`
	Streaming    bool   `json:"streaming"`
	MessageCount int    `json:"message_count"`
}

// CompletionMeta captures the outcome of the call.
type CompletionMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	// Attempts is the number of HTTP requests made, retries included.
	Attempts int `json:"attempts"`

	// HTTPStatus of the last response, 0 when none was received.
	HTTPStatus int `json:"http_status"`

	// Tokens delivered to the caller. Non-streaming calls count the single
	// returned message as one token.
	Tokens int `json:"tokens"`

	Error string `json:"error,omitempty"`
}

// NewCompletionEvent stamps a new event with schema, type, id and emission
// time. The caller fills in the rest.
func NewCompletionEvent(source EventSource, req RequestMeta, result CompletionMeta) *CompletionEvent {
	return &CompletionEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeCompletionFinished,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Request:       req,
		Result:        result,
	}
}

// Succeeded reports whether the completion finished without error.
func (e *CompletionEvent) Succeeded() bool {
	return e.Result.Error == ""
}
