package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoContent signals that a call finished without producing any text:
	// a stream that carried only control frames, or a response without
	// choices.
	ErrNoContent = errors.New("no content produced")

	// ErrRetryableStatus matches an *APIError whose status the retry policy
	// treats as transient.
	ErrRetryableStatus = errors.New("retryable status")

	// ErrFatalStatus matches an *APIError that is never retried.
	ErrFatalStatus = errors.New("fatal status")
)

// ConfigurationError is a fatal pre-flight error, such as a missing
// credential. No network call is attempted when it is returned.
type ConfigurationError struct {
	// Key names the missing or invalid setting (e.g. "GITHUB_TOKEN").
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration: %s is not set", e.Key)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Reason)
}

// APIError is a non-2xx response from the remote API. It carries enough
// detail for a caller to decide whether to alert, degrade or retry.
type APIError struct {
	StatusCode int

	// Message, Type and Code come from the provider's {"error": {...}} body.
	Message string
	Type    string
	Code    string

	// Body is a truncated copy of the raw response body.
	Body []byte

	// RetryAfter is the raw Retry-After header value, if any.
	RetryAfter string

	// RequestID is the id sent with the request.
	RequestID string

	// Retryable is set from the retry policy when the error is created.
	Retryable bool
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "http %d", e.StatusCode)

	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.RequestID != "" {
		b.WriteString(" request_id=")
		b.WriteString(e.RequestID)
	}
	return b.String()
}

// HTTPStatus implements backoff.Failure.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// RetryHint implements backoff.Failure.
func (e *APIError) RetryHint() string { return e.RetryAfter }

// Is matches ErrRetryableStatus or ErrFatalStatus.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRetryableStatus:
		return e.Retryable
	case ErrFatalStatus:
		return !e.Retryable
	}
	return false
}

// TransportError is a failure that produced no HTTP status: dial errors,
// TLS failures, resets, client timeouts.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return "transport: " + e.Cause.Error() }

func (e *TransportError) Unwrap() error { return e.Cause }

// HTTPStatus implements backoff.Failure; transport errors have no status.
func (e *TransportError) HTTPStatus() int { return 0 }

// RetryHint implements backoff.Failure.
func (e *TransportError) RetryHint() string { return "" }

// StreamError is a failure after a stream was established. Streams are not
// resumable, so it is never retried.
type StreamError struct {
	Cause error

	// Tokens is the number of tokens delivered before the failure.
	Tokens int
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream terminated after %d tokens: %v", e.Tokens, e.Cause)
}

func (e *StreamError) Unwrap() error { return e.Cause }

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsRetryable reports whether err is an APIError the policy marked transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryableStatus)
}
