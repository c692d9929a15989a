package retrieval

import (
	"context"
	"fmt"

	"github.com/sodelab/taxchat/backend/internal/model/knowledge"
)

// TopK is how many passages the retriever hands to the answer generator.
const TopK = 4

// Retriever resolves a standalone question into its most relevant passages.
type Retriever struct {
	embedder Embedder
	searcher Searcher
}

// NewRetriever wires an embedder and a passage searcher together.
func NewRetriever(embedder Embedder, searcher Searcher) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher}
}

// Retrieve embeds the question and returns up to TopK passages ordered by
// descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]knowledge.Retrieved, error) {
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	passages, err := r.searcher.Search(ctx, embedding, TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search passage index: %w", err)
	}

	if len(passages) > TopK {
		passages = passages[:TopK]
	}
	return passages, nil
}
