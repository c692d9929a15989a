package chat

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single utterance in a conversation. Immutable once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
