package gateway

import (
	"context"
	"sync"
	"time"

	"medichat/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one authenticated live connection. Identity is attached
// exactly once at connect time and never changes for the connection's life.
type Client struct {
	ID          string
	UserID      string
	Role        domain.Role
	DisplayName string

	Conn *websocket.Conn
	Send chan []byte

	rooms map[string]bool
	mu    sync.RWMutex // Protects rooms map and conn writes
}

// NewClient wraps an upgraded connection with its resolved identity
func NewClient(conn *websocket.Conn, userID string, role domain.Role, displayName string) *Client {
	return &Client{
		ID:          uuid.New().String(),
		UserID:      userID,
		Role:        role,
		DisplayName: displayName,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		rooms:       make(map[string]bool),
	}
}

// trackRoom records a room membership (hub internal use only)
func (c *Client) trackRoom(room string) {
	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()
}

// untrackRoom drops a room membership (hub internal use only)
func (c *Client) untrackRoom(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

// InRoom checks whether the client has joined a room
func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}

// Rooms returns a copy of the client's current room memberships
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// WriteLoop drains the Send channel onto the wire and keeps the connection
// alive with pings
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.close()
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.close()
				return
			}
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
		case <-ticker.C:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.PingMessage, []byte("ping"))
			c.mu.Unlock()
		}
	}
}

// close closes the underlying connection
func (c *Client) close() {
	c.mu.Lock()
	_ = c.Conn.Close()
	c.mu.Unlock()
}

// SendMessage queues a frame for the client without blocking the caller.
// A full buffer means a slow consumer; the frame is dropped and the client
// reconciles from the persisted log.
func (c *Client) SendMessage(msg []byte) {
	select {
	case c.Send <- msg:
	default:
		// Channel full, message dropped
	}
}
