// Package chat is a resilient client for chat-completion APIs.
//
// A Client sends one logical request per call, retrying transient failures
// through a backoff.Executor. Streaming calls return a lazy, single-use token
// sequence decoded from the text/event-stream response.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ghmodels/pkg/backoff"
	"github.com/papercomputeco/ghmodels/pkg/eventstream"
	"github.com/papercomputeco/ghmodels/pkg/llm"
	"github.com/papercomputeco/ghmodels/pkg/llm/openai"
)

const (
	// RequestIDHeader carries a per-call id, constant across retries.
	RequestIDHeader = "X-Request-Id"

	maxResponseBytes  = 16 << 20
	maxErrorBodyBytes = 64 << 10
	errorBodyKeep     = 4 << 10
)

// Client talks to one chat-completions endpoint. It holds only read-only
// state and is safe for concurrent use; each call owns its attempts and
// stream parser.
type Client struct {
	config   Config
	url      string
	executor *backoff.Executor
	http     *http.Client
	logger   *slog.Logger
}

// New validates c and returns a Client. A missing token is reported as an
// *llm.ConfigurationError before any network activity.
func New(c Config) (*Client, error) {
	cfg, err := c.withDefaults()
	if err != nil {
		return nil, err
	}

	opts := append([]backoff.Option{backoff.WithLogger(cfg.Logger)}, cfg.BackoffOptions...)

	return &Client{
		config:   cfg,
		url:      cfg.Endpoint + CompletionsPath,
		executor: backoff.New(*cfg.Retry, opts...),
		http:     cfg.HTTPClient,
		logger:   cfg.Logger,
	}, nil
}

// Endpoint returns the full completions URL.
func (c *Client) Endpoint() string {
	return c.url
}

// Model returns the default model.
func (c *Client) Model() string {
	return c.config.Model
}

// Complete sends req without streaming and returns the first choice's
// content.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	resp, err := c.CompleteResponse(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// CompleteResponse is Complete returning the decoded response.
func (c *Client) CompleteResponse(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	prepared := c.prepare(req, false)
	cl := c.newCall(prepared)

	resp, err := c.complete(ctx, prepared, cl)
	if err != nil {
		c.finish(ctx, cl, err)
		return nil, err
	}

	cl.tokens = 1
	c.finish(ctx, cl, nil)
	return resp, nil
}

func (c *Client) complete(ctx context.Context, req llm.ChatRequest, cl *call) (*llm.ChatResponse, error) {
	body, err := openai.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	// The body is read inside the operation so a truncated response counts
	// as a failed attempt.
	payload, err := backoff.Do(ctx, c.executor, func(ctx context.Context) ([]byte, error) {
		httpResp, err := c.send(ctx, body, false, cl)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		if err != nil {
			return nil, &llm.TransportError{Cause: fmt.Errorf("reading response: %w", err)}
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	return openai.ParseResponse(payload)
}

// prepare copies req and fills unset fields from the client defaults.
func (c *Client) prepare(req llm.ChatRequest, stream bool) llm.ChatRequest {
	out := req.Clone()
	if out.Model == "" {
		out.Model = c.config.Model
	}
	if out.Temperature == nil {
		out.Temperature = llm.Ptr(*c.config.Temperature)
	}
	if out.MaxTokens == nil {
		out.MaxTokens = llm.Ptr(*c.config.MaxTokens)
	}
	out.Stream = stream
	return out
}

// establish POSTs a streaming req through the executor and returns the
// first 2xx response. The caller closes its body.
func (c *Client) establish(ctx context.Context, req llm.ChatRequest, cl *call) (*http.Response, error) {
	body, err := openai.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	return backoff.Do(ctx, c.executor, func(ctx context.Context) (*http.Response, error) {
		return c.send(ctx, body, req.Stream, cl)
	})
}

// send performs one attempt.
func (c *Client) send(ctx context.Context, body []byte, stream bool, cl *call) (*http.Response, error) {
	cl.attempts++

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set(RequestIDHeader, cl.requestID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cl.status = 0
		return nil, &llm.TransportError{Cause: err}
	}
	cl.status = resp.StatusCode

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	apiErr := openai.ParseError(resp.StatusCode, raw)
	apiErr.RetryAfter = resp.Header.Get("Retry-After")
	apiErr.RequestID = cl.requestID
	apiErr.Retryable = c.executor.Policy().RetryableStatus(resp.StatusCode)
	if len(raw) > errorBodyKeep {
		raw = raw[:errorBodyKeep]
	}
	apiErr.Body = raw

	c.logger.Debug("completion attempt failed",
		"attempt", cl.attempts,
		"status", resp.StatusCode,
		"retryable", apiErr.Retryable,
		"request_id", cl.requestID,
	)
	return nil, apiErr
}

// call is the bookkeeping for one logical request.
type call struct {
	requestID string
	model     string
	streaming bool
	messages  int
	startedAt time.Time
	attempts  int
	status    int
	tokens    int
}

func (c *Client) newCall(req llm.ChatRequest) *call {
	return &call{
		requestID: uuid.NewString(),
		model:     req.Model,
		streaming: req.Stream,
		messages:  len(req.Messages),
		startedAt: time.Now(),
	}
}

// finish logs the outcome and publishes a completion event. Publishing
// failures are logged, never returned.
func (c *Client) finish(ctx context.Context, cl *call, err error) {
	completedAt := time.Now()
	duration := completedAt.Sub(cl.startedAt)

	attrs := []any{
		"model", cl.model,
		"streaming", cl.streaming,
		"attempts", cl.attempts,
		"status", cl.status,
		"tokens", cl.tokens,
		"duration", duration,
		"request_id", cl.requestID,
	}
	if err != nil {
		c.logger.Debug("chat completion failed", append(attrs, "error", err)...)
	} else {
		c.logger.Debug("chat completion finished", attrs...)
	}

	if c.config.Publisher == nil {
		return
	}

	result := eventstream.CompletionMeta{
		StartedAt:   cl.startedAt,
		CompletedAt: completedAt,
		DurationMs:  duration.Milliseconds(),
		Attempts:    cl.attempts,
		HTTPStatus:  cl.status,
		Tokens:      cl.tokens,
	}
	if err != nil {
		result.Error = err.Error()
	}

	event := eventstream.NewCompletionEvent(
		eventstream.EventSource{Client: clientName, Endpoint: c.config.Endpoint},
		eventstream.RequestMeta{
			RequestID:    cl.requestID,
			Model:        cl.model,
			Streaming:    cl.streaming,
			MessageCount: cl.messages,
		},
		result,
	)

	if perr := c.config.Publisher.PublishCompletion(context.WithoutCancel(ctx), event); perr != nil {
		c.logger.Warn("publishing completion event", "error", perr, "request_id", cl.requestID)
	}
}
