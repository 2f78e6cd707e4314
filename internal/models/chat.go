package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Part types.
const (
	PartText       = "text"
	PartToolCall   = "tool-call"
	PartToolResult = "tool-result"
	PartStepStart  = "step-start"
)

// Chat is the persisted envelope for one conversation.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// ChatMeta is the listing view of a chat, without its messages.
type ChatMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Message is one turn in a chat. IDs are unique within a chat and
// insertion order carries conversational meaning.
type Message struct {
	ID       string    `json:"id"`
	Role     string    `json:"role"` // "user", "assistant", "system"
	Parts    []Part    `json:"parts"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Part is a typed fragment of a message.
type Part struct {
	Type       string `json:"type"` // "text", "tool-call", "tool-result", "step-start"
	Text       string `json:"text,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolArgs   string `json:"tool_args,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`
}

// Metadata carries optional per-message bookkeeping.
type Metadata struct {
	CreatedAt time.Time `json:"created_at,omitempty"`
	Model     string    `json:"model,omitempty"`
	Usage     *Usage    `json:"usage,omitempty"`
}

// Usage holds token counters reported by the model provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text concatenates the text parts of a message.
func (m Message) Text() string {
	var s string
	for _, p := range m.Parts {
		if p.Type == PartText {
			s += p.Text
		}
	}
	return s
}

// TextMessage builds a single-part text message with a fresh id.
func TextMessage(role, text string) Message {
	return Message{
		ID:    NewMessageID(),
		Role:  role,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}

// NewChatID allocates an opaque chat identifier.
func NewChatID() string {
	return uuid.New().String()
}

// NewMessageID allocates a message identifier: a namespace prefix plus a
// fixed-length random suffix, so regenerate/delete can address messages
// reliably.
func NewMessageID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "msg_" + hex.EncodeToString(b)
}
