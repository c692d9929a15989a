package retrieval

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/sodelab/taxchat/backend/internal/model/knowledge"
)

// Searcher runs a nearest-neighbor query against the passage index.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, k int) ([]knowledge.Retrieved, error)
}

// PassageRepository searches the pgvector-backed passage table.
type PassageRepository struct {
	db *gorm.DB
}

// NewPassageRepository wraps the given database handle.
func NewPassageRepository(db *gorm.DB) *PassageRepository {
	return &PassageRepository{db: db}
}

// Search returns the k passages nearest to the query embedding by cosine
// distance, most similar first.
func (r *PassageRepository) Search(ctx context.Context, embedding []float32, k int) ([]knowledge.Retrieved, error) {
	type row struct {
		Content string
		Source  string
		Score   float64
	}

	queryVector := pgvector.NewVector(embedding)

	var rows []row
	err := r.db.WithContext(ctx).
		Table("passages").
		Select("content, source, 1 - (embedding <=> ?) AS score", queryVector).
		Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	retrieved := make([]knowledge.Retrieved, len(rows))
	for i, hit := range rows {
		retrieved[i] = knowledge.Retrieved{
			Content: hit.Content,
			Source:  hit.Source,
			Score:   hit.Score,
		}
	}
	return retrieved, nil
}

// InsertBatch stores freshly embedded passages. Used by the indexer tool; the
// API server never writes to the table.
func (r *PassageRepository) InsertBatch(ctx context.Context, passages []knowledge.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&passages).Error
}
