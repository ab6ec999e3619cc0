// Package ws upgrades chat clients to WebSocket and bridges them into the hub.
package ws

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/wazir-realty/api/internal/application/chat"
	"github.com/wazir-realty/api/internal/domain"
	jwtinfra "github.com/wazir-realty/api/internal/infrastructure/jwt"
)

// Handler serves the chat WebSocket endpoint. Each connection joins its
// owner's user room; message logs are keyed by the canonical two-party room.
type Handler struct {
	hub      *chat.Hub
	jwt      *jwtinfra.Provider
	upgrader websocket.Upgrader
}

func NewHandler(hub *chat.Hub, jwt *jwtinfra.Provider) *Handler {
	return &Handler{
		hub: hub,
		jwt: jwt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the rendered pages of the same
			// deployment; origin policy is enforced by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Chat handles GET /ws/chat/{token}. The token authenticates the user the way
// the mobile client does it: in the path, since WebSocket clients cannot set
// an Authorization header.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	claims, err := h.jwt.Verify(chi.URLParam(r, "token"))
	if err != nil || claims.UserID == 0 {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	conn := newConn(ws, claims.UserID)
	room := strconv.FormatInt(claims.UserID, 10)
	h.hub.Connect(conn, room)
	slog.Info("chat client connected", "conn", conn.ID(), "user_id", claims.UserID)

	defer func() {
		h.hub.Disconnect(conn, room)
		_ = conn.Close()
		slog.Info("chat client disconnected", "conn", conn.ID(), "user_id", claims.UserID)
	}()

	for {
		var ev domain.InboundEvent
		if err := ws.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "conn", conn.ID(), "err", err)
			}
			return
		}
		if ev.Type != domain.EventMessage {
			continue
		}

		msg, err := h.hub.SaveMessage(claims.UserID, ev.ReceiverID, ev.Content)
		if err != nil {
			slog.Error("failed to persist message", "conn", conn.ID(), "err", err)
			_ = conn.WriteJSON(domain.OutboundEvent{Type: domain.EventMessageSent, Error: "message not saved"})
			continue
		}

		// The log write above completes before this ack goes out.
		if err := conn.WriteJSON(domain.OutboundEvent{Type: domain.EventMessageSent, Message: &msg}); err != nil {
			return
		}

		receiverRoom := strconv.FormatInt(ev.ReceiverID, 10)
		h.hub.Broadcast(domain.OutboundEvent{Type: domain.EventNewMessage, Message: &msg}, receiverRoom, conn)
	}
}
