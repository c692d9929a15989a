// Command indexer embeds a tax-law corpus file and loads it into the
// pgvector-backed passage table the API server searches.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sodelab/taxchat/backend/internal/config"
	"github.com/sodelab/taxchat/backend/internal/model/knowledge"
	"github.com/sodelab/taxchat/backend/internal/service/retrieval"
)

func main() {
	filePath := flag.String("file", "", "path to a UTF-8 text/markdown corpus file")
	source := flag.String("source", "", "source label stored with each passage (defaults to the file name)")
	flag.Parse()

	if *filePath == "" {
		log.Fatal("usage: indexer -file <corpus.md> [-source <label>]")
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	label := *source
	if label == "" {
		label = *filePath
	}

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("failed to read corpus file: %v", err)
	}

	chunks := splitChunks(string(raw))
	if len(chunks) == 0 {
		log.Fatalf("no indexable chunks found in %s", *filePath)
	}
	log.Printf("[indexer] %d chunks from %s", len(chunks), *filePath)

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect passage index: %v", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Fatalf("failed to enable pgvector extension: %v", err)
	}
	if err := db.AutoMigrate(&knowledge.Passage{}); err != nil {
		log.Fatalf("failed to migrate passage table: %v", err)
	}

	ctx := context.Background()
	embedder := retrieval.NewGeminiEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model)
	repository := retrieval.NewPassageRepository(db)

	passages := make([]knowledge.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := embedder.Embed(ctx, chunk)
		if err != nil {
			log.Fatalf("failed to embed chunk %d: %v", i, err)
		}

		passages = append(passages, knowledge.Passage{
			ID:        uuid.New(),
			Content:   chunk,
			Source:    label,
			Embedding: pgvector.NewVector(vector),
			CreatedAt: time.Now().UTC(),
		})

		if (i+1)%20 == 0 {
			log.Printf("[indexer] embedded %d/%d chunks", i+1, len(chunks))
		}
	}

	if err := repository.InsertBatch(ctx, passages); err != nil {
		log.Fatalf("failed to insert passages: %v", err)
	}

	log.Printf("[indexer] indexed %d passages from %s", len(passages), label)
}

// splitChunks breaks the corpus on blank lines into paragraph-sized passages.
func splitChunks(text string) []string {
	blocks := strings.Split(text, "\n\n")

	chunks := make([]string, 0, len(blocks))
	for _, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		chunks = append(chunks, trimmed)
	}
	return chunks
}
