package gateway

import (
	"context"
	"sync"
)

// roomRequest represents a room join/leave request
type roomRequest struct {
	client *Client
	room   string
	join   bool
}

// Hub owns the process-local connection registry and room membership.
// One room corresponds to one session; fan-out to a room is best-effort and
// at-most-once per connected member.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client (for cleanup)
	clients map[string]*Client

	// rooms maps room name to the set of clients joined to it
	rooms map[string]map[*Client]struct{}

	// Control channels
	register   chan *Client
	unregister chan *Client
	membership chan roomRequest
}

// NewHub creates a new gateway hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		membership: make(chan roomRequest, 512),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.membership:
			if req.join {
				h.joinRoom(req.client, req.room)
			} else {
				h.leaveRoom(req.client, req.room)
			}
		}
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Join adds a client to a room
func (h *Hub) Join(client *Client, room string) {
	h.membership <- roomRequest{client: client, room: room, join: true}
}

// Leave removes a client from a room
func (h *Hub) Leave(client *Client, room string) {
	h.membership <- roomRequest{client: client, room: room, join: false}
}

// Broadcast sends a payload to every client in a room. A slow or dead
// member drops the frame without affecting the others.
func (h *Hub) Broadcast(room string, payload []byte) {
	h.mu.RLock()
	for c := range h.rooms[room] {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

// BroadcastExcept sends a payload to every room member except one,
// typically the originator of a presence or typing signal.
func (h *Hub) BroadcastExcept(room string, payload []byte, except *Client) {
	h.mu.RLock()
	for c := range h.rooms[room] {
		if c != except {
			c.SendMessage(payload)
		}
	}
	h.mu.RUnlock()
}

// BroadcastToUser sends a payload to all connections of a specific user
func (h *Hub) BroadcastToUser(userID string, payload []byte) {
	h.mu.RLock()
	for _, client := range h.clients {
		if client.UserID == userID {
			client.SendMessage(payload)
		}
	}
	h.mu.RUnlock()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of members in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// addClient adds a new client to the hub (internal)
func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

// removeClient removes a client and all its room memberships (internal)
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)
}

// joinRoom adds a client to a room (internal)
func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.trackRoom(room)
}

// leaveRoom removes a client from a room (internal)
func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.untrackRoom(room)
}
