package ws

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sodelab/taxchat/backend/internal/service/conversation"
)

// Handler serves the chat loop over a single WebSocket connection, streaming
// answer fragments as they arrive.
type Handler struct {
	orchestrator *conversation.Orchestrator
	upgrader     websocket.Upgrader
}

// New 创建WebSocket聊天处理器
func New(orchestrator *conversation.Orchestrator) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type outboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] connection opened for session=%s", sessionID)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error for session=%s: %v", sessionID, err)
			}
			return
		}

		if frame.Type != "chat" || frame.Message == "" {
			h.writeFrame(conn, outboundFrame{Type: "error", Error: "expected a chat frame with a message"})
			continue
		}

		h.answer(r, conn, sessionID, frame.Message)
	}
}

// answer runs one pipeline turn and relays the fragment stream over the
// socket. When streaming is disabled the answer is sent as a single message
// frame instead.
func (h *Handler) answer(r *http.Request, conn *websocket.Conn, sessionID, question string) {
	if !h.orchestrator.StreamingEnabled() {
		content, err := h.orchestrator.AnswerComplete(r.Context(), question, sessionID)
		if err != nil {
			h.writeFrame(conn, outboundFrame{Type: "error", Error: err.Error()})
			return
		}
		h.writeFrame(conn, outboundFrame{Type: "message", Content: content})
		return
	}

	reader, err := h.orchestrator.Answer(r.Context(), question, sessionID)
	if err != nil {
		h.writeFrame(conn, outboundFrame{Type: "error", Error: err.Error()})
		return
	}
	defer reader.Close()

	var full []byte
	for {
		fragment, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.writeFrame(conn, outboundFrame{Type: "error", Error: recvErr.Error()})
			return
		}
		if fragment == "" {
			continue
		}

		full = append(full, fragment...)
		if !h.writeFrame(conn, outboundFrame{Type: "delta", Content: fragment}) {
			return
		}
	}

	h.writeFrame(conn, outboundFrame{Type: "message", Content: string(full)})
}

func (h *Handler) writeFrame(conn *websocket.Conn, frame outboundFrame) bool {
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("[ws] write failed: %v", err)
		return false
	}
	return true
}
