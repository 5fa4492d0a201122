// Package sse frames a text/event-stream body into events.
//
// The Parser is fed raw fragments with arbitrary boundaries, as they come off
// the wire. It buffers the trailing partial event between calls and returns
// every event completed by the fragment. Events are delimited by a blank
// line ("\n\n"). Interpreting the data payloads is left to the caller.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is a single delimiter-bounded block of the stream.
type Event struct {
	// Type is the value of the "event:" field. Empty means the default
	// "message" type.
	Type string

	// Data holds the payload of every "data:" line of the block, in order,
	// with the prefix and surrounding whitespace removed. Unlike the SSE
	// spec, lines are not joined: chat-completion servers send one JSON
	// document per line.
	Data []string

	// ID is the value of the "id:" field, if present.
	ID string
}
