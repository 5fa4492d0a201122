package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ghmodels/pkg/backoff"
	"github.com/papercomputeco/ghmodels/pkg/chat"
	"github.com/papercomputeco/ghmodels/pkg/eventstream"
)

// sleepRecorder replaces backoff sleeps and records requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func noJitter(time.Duration) time.Duration { return 0 }

// recordingPublisher collects published completion events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.CompletionEvent
	err    error
}

func (r *recordingPublisher) PublishCompletion(_ context.Context, e *eventstream.CompletionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) last() *eventstream.CompletionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	Expect(r.events).NotTo(BeEmpty())
	return r.events[len(r.events)-1]
}

// newTestClient builds a client against endpoint with recorded sleeps and
// no jitter.
func newTestClient(endpoint string, sleeps *sleepRecorder, mutate ...func(*chat.Config)) *chat.Client {
	cfg := chat.Config{
		Endpoint:       endpoint,
		Token:          "test-token",
		BackoffOptions: []backoff.Option{backoff.WithSleeper(sleeps.sleep), backoff.WithJitter(noJitter)},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := chat.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return c
}

// sseFrame renders a delta chunk as one event.
func sseFrame(text string) string {
	payload, err := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": text}}},
	})
	Expect(err).NotTo(HaveOccurred())
	return "data: " + string(payload) + "\n\n"
}

func completionBody(content string) string {
	payload, err := json.Marshal(map[string]any{
		"id":    "chatcmpl-1",
		"model": "openai/gpt-4o",
		"choices": []any{map[string]any{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	Expect(err).NotTo(HaveOccurred())
	return string(payload)
}

// roundTripFunc is an http.RoundTripper for responses httptest cannot
// produce, such as bodies that fail mid-read.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// trackedBody serves data and then fails with err (io.EOF when nil). It
// records whether it was closed.
type trackedBody struct {
	r      io.Reader
	err    error
	closed atomic.Bool
}

func newTrackedBody(data string, err error) *trackedBody {
	return &trackedBody{r: strings.NewReader(data), err: err}
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF && b.err != nil {
		return n, b.err
	}
	return n, err
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

func streamResponse(body io.ReadCloser) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       body,
	}
}
