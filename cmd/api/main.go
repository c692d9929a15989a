package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sodelab/taxchat/backend/internal/config"
	"github.com/sodelab/taxchat/backend/internal/handler"
	"github.com/sodelab/taxchat/backend/internal/model/lexicon"
	"github.com/sodelab/taxchat/backend/internal/service/answer"
	"github.com/sodelab/taxchat/backend/internal/service/conversation"
	"github.com/sodelab/taxchat/backend/internal/service/retrieval"
	"github.com/sodelab/taxchat/backend/internal/service/rewrite"
	"github.com/sodelab/taxchat/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect passage index: %v", err)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}

	rewriter, err := rewrite.New(ctx, chatModel, lexicon.Dictionary())
	if err != nil {
		log.Fatalf("failed to build query rewriter: %v", err)
	}

	reformulator, err := retrieval.NewReformulator(ctx, chatModel)
	if err != nil {
		log.Fatalf("failed to build question reformulator: %v", err)
	}

	embedder := retrieval.NewGeminiEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model)
	retriever := retrieval.NewRetriever(embedder, retrieval.NewPassageRepository(db))

	generator, err := answer.NewGenerator(ctx, chatModel, lexicon.FewShots())
	if err != nil {
		log.Fatalf("failed to build answer generator: %v", err)
	}

	orchestrator := conversation.New(rewriter, reformulator, retriever, generator, session.NewStore(), cfg.AI.StreamResponse)

	router := handler.NewRouter(orchestrator)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("taxchat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
