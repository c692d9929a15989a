package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sodelab/taxchat/backend/internal/handler/chat"
	"github.com/sodelab/taxchat/backend/internal/handler/stream"
	"github.com/sodelab/taxchat/backend/internal/handler/ws"
	middlewarePkg "github.com/sodelab/taxchat/backend/internal/middleware"
	"github.com/sodelab/taxchat/backend/internal/service/conversation"
	"github.com/sodelab/taxchat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the conversation pipeline.
func NewRouter(orchestrator *conversation.Orchestrator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(orchestrator.Sessions())
	streamHandler := stream.New(orchestrator)
	wsHandler := ws.New(orchestrator)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			question := r.URL.Query().Get("message")

			if question == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, question); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
