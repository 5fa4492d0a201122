package llm

// Message roles understood by chat-completion APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// SystemMessage is shorthand for NewTextMessage(RoleSystem, text).
func SystemMessage(text string) Message { return NewTextMessage(RoleSystem, text) }

// UserMessage is shorthand for NewTextMessage(RoleUser, text).
func UserMessage(text string) Message { return NewTextMessage(RoleUser, text) }

// AssistantMessage is shorthand for NewTextMessage(RoleAssistant, text).
func AssistantMessage(text string) Message { return NewTextMessage(RoleAssistant, text) }
