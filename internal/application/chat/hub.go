// Package chat tracks live duplex connections grouped by room, fans out
// broadcasts, and owns the durable per-room message log.
package chat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wazir-realty/api/internal/domain"
)

// Conn is the duplex connection handle the hub manages. The websocket
// transport satisfies it; tests inject fakes.
type Conn interface {
	ID() string
	WriteJSON(v interface{}) error
	Close() error
}

// Log is the durable backing for the message log map.
type Log interface {
	Load() map[string][]domain.Message
	Save(map[string][]domain.Message) error
}

// Hub maintains room -> live connections and room -> ordered message log.
// It is the sole owner of the in-memory log and the only writer of its
// durable snapshot.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string][]Conn
	logs   map[string][]domain.Message
	store  Log
	nextID int64
}

// NewHub loads the durable log eagerly and returns a hub ready for
// connections. Message ids continue from the highest id already on disk.
func NewHub(store Log) *Hub {
	logs := store.Load()
	var maxID int64
	for _, msgs := range logs {
		for _, m := range msgs {
			if m.ID > maxID {
				maxID = m.ID
			}
		}
	}
	return &Hub{
		rooms:  make(map[string][]Conn),
		logs:   logs,
		store:  store,
		nextID: maxID + 1,
	}
}

// Connect registers the connection in the room. Re-adding a connection that is
// already a member is a no-op, not a duplicate.
func (h *Hub) Connect(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, existing := range h.rooms[room] {
		if existing == c {
			return
		}
	}
	h.rooms[room] = append(h.rooms[room], c)
	slog.Debug("connection joined room", "conn", c.ID(), "room", room, "members", len(h.rooms[room]))
}

// Disconnect removes the connection from the room. An emptied room is dropped
// entirely so no stale room keys accumulate.
func (h *Hub) Disconnect(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, room)
}

func (h *Hub) removeLocked(c Conn, room string) {
	conns, ok := h.rooms[room]
	if !ok {
		return
	}
	for i, existing := range conns {
		if existing == c {
			h.rooms[room] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers the event to every connection in the room except
// exclude, in registration order. A failed delivery disconnects that
// connection and never blocks delivery to the rest.
func (h *Hub) Broadcast(ev domain.OutboundEvent, room string, exclude Conn) {
	h.mu.Lock()
	conns := make([]Conn, len(h.rooms[room]))
	copy(conns, h.rooms[room])
	h.mu.Unlock()

	var failed []Conn
	for _, c := range conns {
		if c == exclude {
			continue
		}
		if err := c.WriteJSON(ev); err != nil {
			slog.Warn("broadcast write failed, dropping connection", "conn", c.ID(), "room", room, "err", err)
			failed = append(failed, c)
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, c := range failed {
			h.removeLocked(c, room)
		}
		h.mu.Unlock()
		for _, c := range failed {
			_ = c.Close()
		}
	}
}

// SaveMessage creates a message from an inbound send event, appends it to the
// canonical two-party room log and persists the snapshot before returning.
// The returned message carries its assigned id and timestamp.
func (h *Hub) SaveMessage(senderID, receiverID int64, content string) (domain.Message, error) {
	room := domain.RoomKey(senderID, receiverID)

	h.mu.Lock()
	defer h.mu.Unlock()

	msg := domain.Message{
		ID:         h.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  time.Now().Format(time.RFC3339),
		IsRead:     false,
		ChatID:     room,
	}
	h.nextID++

	h.logs[room] = append(h.logs[room], msg)
	if err := h.store.Save(h.logs); err != nil {
		return msg, fmt.Errorf("persist message log: %w", err)
	}
	return msg, nil
}

// Record appends an already-formed message to a room's log and persists the
// snapshot. Used when the room key is supplied by the caller.
func (h *Hub) Record(room string, msg domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logs[room] = append(h.logs[room], msg)
	return h.store.Save(h.logs)
}

// History returns a copy of the ordered message log for the room.
func (h *Hub) History(room string) []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := h.logs[room]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// RoomSize reports the number of live connections in the room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}
