package llm

// TokenKind tells which field of a streamed payload a Token came from.
type TokenKind int

const (
	// TokenDelta is an incremental piece of the answer ("delta.content").
	TokenDelta TokenKind = iota + 1

	// TokenMessage is a complete message body ("message.content"), sent by
	// servers that do not stream deltas.
	TokenMessage
)

func (k TokenKind) String() string {
	switch k {
	case TokenDelta:
		return "delta"
	case TokenMessage:
		return "message"
	default:
		return "none"
	}
}

// Token is one unit of generated text. Build it with DeltaToken or
// MessageToken; the zero Token means "no content".
type Token struct {
	Kind TokenKind `json:"kind"`
	Text string    `json:"text"`
}

// DeltaToken returns an incremental token.
func DeltaToken(text string) Token {
	return Token{Kind: TokenDelta, Text: text}
}

// MessageToken returns a full-message token.
func MessageToken(text string) Token {
	return Token{Kind: TokenMessage, Text: text}
}

// IsZero reports whether t carries no content.
func (t Token) IsZero() bool {
	return t.Kind == 0 || t.Text == ""
}

func (t Token) String() string {
	return t.Text
}

// StreamChunk is one decoded streaming payload.
type StreamChunk struct {
	// Model that generated the chunk, when the server reports it
	Model string `json:"model,omitempty"`

	// Token resolved from the payload; zero when the payload had no content.
	Token Token `json:"token"`

	// Stop reason (only present on the final chunk)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics (only present on the final chunk, when requested)
	Usage *Usage `json:"usage,omitempty"`
}
