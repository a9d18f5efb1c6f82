package factextract

import "encoding/json"

// Message roles understood by every Invoker.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a message in a conversation
type Message struct {
	Role    string
	Content string
}

// NewUserMessage creates a new user message
func NewUserMessage(text string) *Message {
	return &Message{Role: RoleUser, Content: text}
}

// NewSystemMessage creates a new system message
func NewSystemMessage(text string) *Message {
	return &Message{Role: RoleSystem, Content: text}
}

// Request is one call to the generation capability.
type Request struct {
	Messages        []*Message
	Schema          json.RawMessage // JSON Schema the response must conform to
	SchemaName      string
	Scope           string // attribution tag
	Temperature     float32
	MaxOutputTokens int
}

// System returns the concatenated system messages.
func (r *Request) System() string {
	return r.join(RoleSystem)
}

// User returns the concatenated user messages.
func (r *Request) User() string {
	return r.join(RoleUser)
}

func (r *Request) join(role string) string {
	var out string
	for _, m := range r.Messages {
		if m.Role != role {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}
