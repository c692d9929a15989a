package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/sodelab/taxchat/backend/internal/service/conversation"
	"github.com/sodelab/taxchat/backend/pkg/utils"
)

// Handler streams pipeline answers via Server-Sent Events.
type Handler struct {
	orchestrator *conversation.Orchestrator
}

// New creates a new stream handler.
func New(orchestrator *conversation.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// StreamResponse represents a streaming response chunk.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest runs the pipeline for one question and relays the
// fragment stream to the client. When streaming is disabled the full answer
// is sent as a single message event instead of delta events.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, question string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	if !h.orchestrator.StreamingEnabled() {
		return h.handleComplete(ctx, w, flusher, sessionID, question)
	}

	reader, err := h.orchestrator.Answer(ctx, question, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("answer pipeline failed: %v", err))
		return err
	}
	defer reader.Close()

	var full strings.Builder
	for {
		fragment, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.sendSSEError(w, flusher, fmt.Sprintf("answer generation failed: %v", recvErr))
			return recvErr
		}
		if fragment == "" {
			continue
		}

		full.WriteString(fragment)
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   fragment,
		})
	}

	h.finish(w, flusher, sessionID, full.String())
	return nil
}

// handleComplete answers without streaming and emits the result as one
// message event.
func (h *Handler) handleComplete(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID, question string) error {
	content, err := h.orchestrator.AnswerComplete(ctx, question, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("answer pipeline failed: %v", err))
		return err
	}

	h.finish(w, flusher, sessionID, content)
	return nil
}

func (h *Handler) finish(w http.ResponseWriter, flusher http.Flusher, sessionID, content string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   content,
	})
	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed response for session=%s", sessionID)
}

// sendSSE sends a Server-Sent Event.
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

// sendSSEError sends an error via Server-Sent Events.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
