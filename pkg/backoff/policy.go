// Package backoff retries a single logical operation against a remote API.
//
// The Executor owns attempt counting, delay computation and the retry
// eligibility decision. Operations report HTTP-like failures by returning an
// error that implements Failure; anything else is treated as a transport
// failure and is not retried unless the Policy says so.
package backoff

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxRetries  = 5
	defaultBaseDelay   = 500 * time.Millisecond
	defaultJitterBound = 200 * time.Millisecond
)

// Failure is implemented by errors that carry an HTTP status code and an
// optional server retry hint (the raw Retry-After header value).
// A status of 0 means no response was received.
type Failure interface {
	error
	HTTPStatus() int
	RetryHint() string
}

// Policy configures retries. It is read-only once handed to an Executor and
// may be shared across concurrent calls.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is multiplied by 2^attempt to compute the backoff.
	BaseDelay time.Duration

	// JitterBound is the exclusive upper bound of the uniform jitter added
	// to the exponential backoff.
	JitterBound time.Duration

	// RetryableStatuses is the set of statuses worth retrying. A nil map
	// selects DefaultRetryableStatuses; an empty one retries no status.
	RetryableStatuses map[int]bool

	// RetryTransportErrors retries failures that never produced a status
	// (dial errors, resets). Off by default.
	RetryTransportErrors bool

	// MaxRetryAfter caps a server supplied Retry-After hint. Zero leaves
	// hints uncapped.
	MaxRetryAfter time.Duration
}

// DefaultPolicy returns the policy used by the chat client when nothing is
// configured: 5 retries, 500ms base delay, up to 200ms of jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        defaultMaxRetries,
		BaseDelay:         defaultBaseDelay,
		JitterBound:       defaultJitterBound,
		RetryableStatuses: DefaultRetryableStatuses(),
	}
}

// DefaultRetryableStatuses returns 429, 500 and 503.
func DefaultRetryableStatuses() map[int]bool {
	return map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
	}
}

// RetryableStatus reports whether code is in the policy's retryable set.
func (p Policy) RetryableStatus(code int) bool {
	statuses := p.RetryableStatuses
	if statuses == nil {
		statuses = DefaultRetryableStatuses()
	}
	return statuses[code]
}

// Retryable reports whether err, produced by the given 0-based attempt,
// should be retried.
func (p Policy) Retryable(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxRetries {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var f Failure
	if !errors.As(err, &f) || f.HTTPStatus() == 0 {
		return p.RetryTransportErrors
	}

	return p.RetryableStatus(f.HTTPStatus())
}

// Delay returns how long to wait after the given 0-based attempt failed.
// A valid hint wins over the computed backoff; otherwise the delay is
// BaseDelay*2^attempt plus uniform jitter in [0, JitterBound).
func (p Policy) Delay(attempt int, hint string) time.Duration {
	return p.delay(attempt, hint, time.Now(), uniformJitter)
}

func (p Policy) delay(attempt int, hint string, now time.Time, jitter func(time.Duration) time.Duration) time.Duration {
	if d, ok := ParseRetryAfter(hint, now); ok {
		if p.MaxRetryAfter > 0 && d > p.MaxRetryAfter {
			d = p.MaxRetryAfter
		}
		return d
	}

	d := p.Exponential(attempt)
	if p.JitterBound > 0 {
		d += jitter(p.JitterBound)
	}
	return d
}

// Exponential returns BaseDelay*2^attempt without jitter, saturating instead
// of overflowing.
func (p Policy) Exponential(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := p.BaseDelay
	if d <= 0 {
		return 0
	}
	for range attempt {
		if d > math.MaxInt64/4 {
			return math.MaxInt64 / 4
		}
		d *= 2
	}
	return d
}

// ParseRetryAfter parses a Retry-After value given either as a number of
// seconds (integer or decimal) or as an HTTP date. Negative, non-finite and
// unparseable values are rejected.
func ParseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}

	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return 0, false
		}
		if secs > float64(math.MaxInt64/int64(time.Second)) {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}

	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}

func uniformJitter(bound time.Duration) time.Duration {
	if bound <= 0 {
		return 0
	}
	return rand.N(bound)
}
