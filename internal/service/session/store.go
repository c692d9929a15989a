package session

import (
	"sync"

	"github.com/sodelab/taxchat/backend/internal/model/chat"
)

// Store maps opaque session identifiers onto their transcripts. Transcripts
// are created lazily on first reference and live for the process lifetime;
// there is no eviction and no persistence across restarts.
type Store struct {
	mu          sync.RWMutex
	transcripts map[string]*chat.Transcript
}

// NewStore bootstraps the in-memory session store.
func NewStore() *Store {
	return &Store{
		transcripts: make(map[string]*chat.Transcript),
	}
}

// GetOrCreate returns the transcript for the given session id, creating an
// empty one on first reference. Callers for the same id always receive the
// same *chat.Transcript.
func (s *Store) GetOrCreate(sessionID string) *chat.Transcript {
	s.mu.RLock()
	transcript, ok := s.transcripts[sessionID]
	s.mu.RUnlock()
	if ok {
		return transcript
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if transcript, ok = s.transcripts[sessionID]; ok {
		return transcript
	}

	transcript = chat.NewTranscript()
	s.transcripts[sessionID] = transcript
	return transcript
}

// Len reports how many sessions have been referenced so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcripts)
}
