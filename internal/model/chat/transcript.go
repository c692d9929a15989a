package chat

import (
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Transcript is the append-only turn history owned by one session.
// Appends within a session are strictly ordered; turns are never reordered
// or removed for the life of the process.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{turns: make([]Turn, 0, 16)}
}

// Append records a turn at the end of the history.
func (t *Transcript) Append(role Role, content string) {
	t.mu.Lock()
	t.turns = append(t.turns, Turn{Role: role, Content: content})
	t.mu.Unlock()
}

// Turns returns a copy of the recorded turns in submission order.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	copied := make([]Turn, len(t.turns))
	copy(copied, t.turns)
	return copied
}

// Len reports the number of recorded turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Messages converts turns into eino chat messages for prompt templates.
func Messages(turns []Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
