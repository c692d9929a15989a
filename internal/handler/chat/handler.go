package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sodelab/taxchat/backend/internal/service/session"
	"github.com/sodelab/taxchat/backend/pkg/utils"
)

// Handler 会话与对话记录的HTTP处理器
type Handler struct {
	sessions *session.Store
}

// New 创建聊天处理器
func New(sessions *session.Store) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleGetMessages)
}

// handleCreateSession 发放一个新的会话标识。Transcript 在首次提问时才会创建。
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"id": uuid.NewString(),
	})
}

// handleGetMessages 返回会话的完整对话记录。
func (h *Handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	transcript := h.sessions.GetOrCreate(sessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  transcript.Turns(),
	})
}
