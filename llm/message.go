package llm

import "strings"

// Role indicates the originator of a message.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
	System    Role = "system"
)

func (r Role) String() string {
	return string(r)
}

// Message is one turn in a conversation. Content is plain text; tagged
// operations ride inside it.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a message with the user role.
func NewUserMessage(text string) *Message {
	return &Message{Role: User, Content: text}
}

// NewAssistantMessage creates a message with the assistant role.
func NewAssistantMessage(text string) *Message {
	return &Message{Role: Assistant, Content: text}
}

// Text returns the trimmed message content.
func (m *Message) Text() string {
	return strings.TrimSpace(m.Content)
}
