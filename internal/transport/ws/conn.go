package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/wazir-realty/api/internal/pkg/id"
)

// Conn wraps a websocket connection as the hub's duplex handle. gorilla
// permits one concurrent writer, so writes are serialized here; the read loop
// stays the sole reader.
type Conn struct {
	id     string
	userID int64
	ws     *websocket.Conn
	mu     sync.Mutex
}

func newConn(ws *websocket.Conn, userID int64) *Conn {
	return &Conn{id: id.New(), userID: userID, ws: ws}
}

func (c *Conn) ID() string { return c.id }

// UserID is the authenticated participant this connection belongs to.
func (c *Conn) UserID() int64 { return c.userID }

func (c *Conn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
