package chat

import (
	"log/slog"

	"github.com/papercomputeco/ghmodels/pkg/llm"
	"github.com/papercomputeco/ghmodels/pkg/llm/openai"
	"github.com/papercomputeco/ghmodels/pkg/logger"
	"github.com/papercomputeco/ghmodels/pkg/sse"
)

// doneSentinel terminates an OpenAI style stream.
const doneSentinel = "[DONE]"

// EventParser turns raw stream fragments into content tokens. It is owned by
// a single stream and is not safe for concurrent use.
type EventParser struct {
	frames  *sse.Parser
	logger  *slog.Logger
	emitted int
	skipped int
}

// NewEventParser returns a parser whose partial-event buffer is bounded by
// maxBufferSize (non-positive selects sse.DefaultMaxBufferSize). A nil
// logger discards parse diagnostics.
func NewEventParser(maxBufferSize int, log *slog.Logger) *EventParser {
	if log == nil {
		log = logger.Nop()
	}
	return &EventParser{
		frames: sse.NewParser(maxBufferSize),
		logger: log,
	}
}

// Feed consumes the next fragment and returns the tokens it completed, in
// order. How the stream is split into fragments never changes the overall
// token sequence. The only error is sse.ErrBufferOverflow; tokens completed
// before the overflow are still returned.
func (p *EventParser) Feed(fragment []byte) ([]llm.Token, error) {
	events, err := p.frames.Feed(fragment)

	var tokens []llm.Token
	for _, ev := range events {
		for _, payload := range ev.Data {
			if tok, ok := p.extract(payload); ok {
				tokens = append(tokens, tok)
			}
		}
	}
	p.emitted += len(tokens)

	return tokens, err
}

func (p *EventParser) extract(payload string) (llm.Token, bool) {
	if payload == "" || payload == doneSentinel {
		return llm.Token{}, false
	}

	chunk, err := openai.ParseStreamChunk([]byte(payload))
	if err != nil {
		p.skipped++
		p.logger.Debug("skipping unparseable stream payload",
			"error", err,
			"payload_bytes", len(payload),
		)
		return llm.Token{}, false
	}

	if chunk.Token.IsZero() {
		return llm.Token{}, false
	}
	return chunk.Token, true
}

// Finalize ends the session and reports whether any token was emitted. An
// unterminated trailing block is discarded.
func (p *EventParser) Finalize() bool {
	if dropped := p.frames.Close(); dropped > 0 {
		p.logger.Debug("discarding unterminated trailing event", "bytes", dropped)
	}
	return p.emitted > 0
}

// Emitted returns the number of tokens produced so far.
func (p *EventParser) Emitted() int {
	return p.emitted
}

// Skipped returns the number of payloads dropped because they were not
// valid JSON.
func (p *EventParser) Skipped() int {
	return p.skipped
}
