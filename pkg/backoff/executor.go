package backoff

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/papercomputeco/ghmodels/pkg/logger"
)

// Attempt is the record of one try. It only leaves the executor through the
// OnRetry hook.
type Attempt struct {
	// Number is 0-based.
	Number    int
	StartedAt time.Time
	Err       error
}

// Operation is a single fallible try of the logical request.
type Operation[T any] func(ctx context.Context) (T, error)

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Executor runs operations under a Policy. It holds no per-call state and is
// safe for concurrent use.
type Executor struct {
	policy  Policy
	sleep   Sleeper
	jitter  func(bound time.Duration) time.Duration
	now     func() time.Time
	onRetry func(Attempt, time.Duration)
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper replaces the context-aware timer sleep. Used by tests.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithJitter replaces the uniform jitter source.
func WithJitter(j func(bound time.Duration) time.Duration) Option {
	return func(e *Executor) {
		if j != nil {
			e.jitter = j
		}
	}
}

// WithOnRetry registers a hook invoked before each backoff sleep.
func WithOnRetry(fn func(Attempt, time.Duration)) Option {
	return func(e *Executor) {
		e.onRetry = fn
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Executor for the given policy.
func New(policy Policy, opts ...Option) *Executor {
	e := &Executor{
		policy: policy,
		sleep:  sleep,
		jitter: uniformJitter,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do invokes op until it succeeds, fails with a non-retryable error, or the
// policy's retries are spent. The error of the last attempt is returned as
// is so callers can inspect its status and body. If ctx ends during a
// backoff sleep, the context error is joined with the last failure.
func Do[T any](ctx context.Context, e *Executor, op Operation[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		startedAt := e.now()

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		if !e.policy.Retryable(err, attempt) {
			return zero, err
		}

		hint := ""
		status := 0
		var f Failure
		if errors.As(err, &f) {
			hint = f.RetryHint()
			status = f.HTTPStatus()
		}

		delay := e.policy.delay(attempt, hint, e.now(), e.jitter)

		e.logger.Debug("retrying after failed attempt",
			"attempt", attempt,
			"status", status,
			"retry_after", hint,
			"delay", delay,
			"error", err,
		)

		if e.onRetry != nil {
			e.onRetry(Attempt{Number: attempt, StartedAt: startedAt, Err: err}, delay)
		}

		if serr := e.sleep(ctx, delay); serr != nil {
			return zero, errors.Join(serr, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
