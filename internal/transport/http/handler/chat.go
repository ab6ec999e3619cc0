package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wazir-realty/api/internal/application/chat"
	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/transport/http/middleware"
)

// ChatHandler serves chat history over plain HTTP for clients catching up
// before (or instead of) opening a WebSocket.
type ChatHandler struct {
	hub *chat.Hub
}

func NewChatHandler(hub *chat.Hub) *ChatHandler {
	return &ChatHandler{hub: hub}
}

// History returns the ordered message log between the authenticated user and
// the peer in the path.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	peerID, err := strconv.ParseInt(chi.URLParam(r, "peer"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid peer id")
		return
	}

	room := domain.RoomKey(claims.UserID, peerID)
	writeJSON(w, http.StatusOK, struct {
		ChatID   string           `json:"chat_id"`
		Messages []domain.Message `json:"messages"`
	}{room, h.hub.History(room)})
}
