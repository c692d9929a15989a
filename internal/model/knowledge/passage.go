package knowledge

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Passage is one indexed chunk of the tax-law corpus. The table is populated
// by cmd/indexer and treated as read-only by the API server.
type Passage struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string          `gorm:"type:text;not null" json:"content"`
	Source    string          `gorm:"type:varchar(255)" json:"source"`
	Embedding pgvector.Vector `gorm:"type:vector(768)" json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TableName keeps the table name stable regardless of gorm pluralization.
func (Passage) TableName() string {
	return "passages"
}

// Retrieved is a search hit handed to the answer generator. Produced per
// request, never persisted.
type Retrieved struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}
