package chat

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/papercomputeco/ghmodels/pkg/llm"
)

const readBufferSize = 32 << 10

// ErrStreamConsumed is yielded when a streaming sequence is iterated a
// second time.
var ErrStreamConsumed = errors.New("chat: stream already consumed")

// CompleteStreaming returns a lazy sequence of the tokens of a streamed
// completion. Nothing is sent until the sequence is ranged over.
//
// Establishing the stream is retried per the client's policy. Once a 2xx
// response arrives, failures are terminal: a read failure or an oversized
// event is yielded as an *llm.StreamError, and a stream that ends without
// any token yields llm.ErrNoContent. An error is always the last element.
//
// Stopping the range early closes the response body. The sequence is single
// use; ranging over it again yields ErrStreamConsumed.
func (c *Client) CompleteStreaming(ctx context.Context, req llm.ChatRequest) iter.Seq2[llm.Token, error] {
	prepared := c.prepare(req, true)
	var used atomic.Bool

	return func(yield func(llm.Token, error) bool) {
		if used.Swap(true) {
			yield(llm.Token{}, ErrStreamConsumed)
			return
		}
		c.stream(ctx, prepared, yield)
	}
}

func (c *Client) stream(ctx context.Context, req llm.ChatRequest, yield func(llm.Token, error) bool) {
	cl := c.newCall(req)

	resp, err := c.establish(ctx, req, cl)
	if err != nil {
		c.finish(ctx, cl, err)
		yield(llm.Token{}, err)
		return
	}
	defer resp.Body.Close()

	// fail reports a terminal error after the stream was established.
	fail := func(err error) {
		c.finish(ctx, cl, err)
		yield(llm.Token{}, err)
	}

	parser := NewEventParser(c.config.MaxBufferSize, c.logger)
	buf := make([]byte, readBufferSize)

	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			tokens, ferr := parser.Feed(buf[:n])
			for _, tok := range tokens {
				cl.tokens++
				if !yield(tok, nil) {
					c.finish(ctx, cl, nil)
					return
				}
			}
			if ferr != nil {
				fail(&llm.StreamError{Cause: ferr, Tokens: cl.tokens})
				return
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			fail(&llm.StreamError{Cause: rerr, Tokens: cl.tokens})
			return
		}
	}

	if !parser.Finalize() {
		fail(llm.ErrNoContent)
		return
	}
	c.finish(ctx, cl, nil)
}

// Collect drains seq and concatenates its tokens. On error it returns the
// text gathered so far together with the error.
func Collect(seq iter.Seq2[llm.Token, error]) (string, error) {
	var b strings.Builder
	for tok, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(tok.Text)
	}
	return b.String(), nil
}
