package sse

import (
	"bytes"
	"errors"
	"strings"
)

// DefaultMaxBufferSize bounds the bytes held for a single unterminated event.
const DefaultMaxBufferSize = 1024 * 1024

// ErrBufferOverflow is returned by Feed once the buffered partial event grows
// past the parser's limit. The parser stays failed afterwards.
var ErrBufferOverflow = errors.New("sse: unterminated event exceeds buffer limit")

var delimiter = []byte("\n\n")

// Parser accumulates fragments and extracts complete events. A Parser is
// owned by a single stream and is not safe for concurrent use.
type Parser struct {
	buf           []byte
	maxBufferSize int
	failed        bool
}

// NewParser returns a Parser that fails once a partial event exceeds
// maxBufferSize bytes. A non-positive size selects DefaultMaxBufferSize.
func NewParser(maxBufferSize int) *Parser {
	if maxBufferSize <= 0 {
		maxBufferSize = DefaultMaxBufferSize
	}
	return &Parser{maxBufferSize: maxBufferSize}
}

// Feed appends fragment to the buffer and returns the events it completed.
// After Feed returns, the buffer holds at most one partial event.
func (p *Parser) Feed(fragment []byte) ([]Event, error) {
	if p.failed {
		return nil, ErrBufferOverflow
	}

	p.buf = append(p.buf, fragment...)

	var events []Event
	start := 0
	for {
		idx := bytes.Index(p.buf[start:], delimiter)
		if idx < 0 {
			break
		}

		if ev, ok := parseBlock(p.buf[start : start+idx]); ok {
			events = append(events, ev)
		}
		start += idx + len(delimiter)
	}

	// Move the trailing partial event to the front so the consumed prefix
	// can be reused.
	if start > 0 {
		n := copy(p.buf, p.buf[start:])
		p.buf = p.buf[:n]
	}

	if len(p.buf) > p.maxBufferSize {
		p.failed = true
		p.buf = nil
		return events, ErrBufferOverflow
	}

	return events, nil
}

// Buffered returns the number of bytes held for the current partial event.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// Close drops any unterminated trailing block and returns how many
// non-whitespace bytes were discarded.
func (p *Parser) Close() int {
	discarded := len(bytes.TrimSpace(p.buf))
	p.buf = nil
	return discarded
}

// parseBlock turns the lines of one block into an Event. Blocks without any
// recognised field (keep-alive newlines, comments only) are reported as not
// ok.
func parseBlock(block []byte) (Event, bool) {
	var ev Event
	seen := false

	for line := range strings.SplitSeq(string(block), "\n") {
		line = strings.TrimSuffix(line, "\r")

		switch {
		case line == "", strings.HasPrefix(line, ":"):
			// Blank or comment.
		case strings.HasPrefix(line, "data:"):
			ev.Data = append(ev.Data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			seen = true
		case strings.HasPrefix(line, "event:"):
			ev.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			seen = true
		case strings.HasPrefix(line, "id:"):
			ev.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			seen = true
		default:
			// "retry" and unknown fields are ignored.
		}
	}

	return ev, seen
}
