package gateway

import (
	"testing"

	"medichat/internal/domain"
)

func newTestClient(userID string) *Client {
	return NewClient(nil, userID, domain.RolePatient, "user "+userID)
}

func TestHubRoomMembership(t *testing.T) {
	h := NewHub()
	c1 := newTestClient("u1")
	c2 := newTestClient("u2")

	h.addClient(c1)
	h.addClient(c2)
	if h.ClientCount() != 2 {
		t.Fatalf("client count = %d, want 2", h.ClientCount())
	}

	h.joinRoom(c1, "session:s1")
	h.joinRoom(c2, "session:s1")
	if h.RoomSize("session:s1") != 2 {
		t.Fatalf("room size = %d, want 2", h.RoomSize("session:s1"))
	}
	if !c1.InRoom("session:s1") {
		t.Fatalf("c1 should track its room membership")
	}

	h.leaveRoom(c1, "session:s1")
	if h.RoomSize("session:s1") != 1 {
		t.Fatalf("room size after leave = %d, want 1", h.RoomSize("session:s1"))
	}
	if c1.InRoom("session:s1") {
		t.Fatalf("c1 membership should be untracked after leave")
	}

	// Last member out empties the room entirely.
	h.leaveRoom(c2, "session:s1")
	if h.RoomSize("session:s1") != 0 {
		t.Fatalf("room should be gone after last leave")
	}
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	c1 := newTestClient("u1")
	c2 := newTestClient("u2")
	c3 := newTestClient("u3")

	for _, c := range []*Client{c1, c2, c3} {
		h.addClient(c)
		h.joinRoom(c, "session:s1")
	}

	h.Broadcast("session:s1", []byte("hello"))
	for _, c := range []*Client{c1, c2, c3} {
		select {
		case got := <-c.Send:
			if string(got) != "hello" {
				t.Fatalf("client %s got %q", c.UserID, got)
			}
		default:
			t.Fatalf("client %s received nothing", c.UserID)
		}
	}
}

func TestHubBroadcastExceptSkipsOriginator(t *testing.T) {
	h := NewHub()
	sender := newTestClient("u1")
	peer := newTestClient("u2")

	h.addClient(sender)
	h.addClient(peer)
	h.joinRoom(sender, "session:s1")
	h.joinRoom(peer, "session:s1")

	h.BroadcastExcept("session:s1", []byte("typing"), sender)

	select {
	case <-sender.Send:
		t.Fatalf("originator must not receive its own signal")
	default:
	}
	select {
	case got := <-peer.Send:
		if string(got) != "typing" {
			t.Fatalf("peer got %q", got)
		}
	default:
		t.Fatalf("peer received nothing")
	}
}

func TestHubBroadcastToUserHitsAllConnections(t *testing.T) {
	h := NewHub()
	first := newTestClient("u1")
	second := newTestClient("u1") // same user, second device
	other := newTestClient("u2")

	for _, c := range []*Client{first, second, other} {
		h.addClient(c)
	}

	h.BroadcastToUser("u1", []byte("ping"))
	for _, c := range []*Client{first, second} {
		select {
		case <-c.Send:
		default:
			t.Fatalf("connection %s of u1 received nothing", c.ID)
		}
	}
	select {
	case <-other.Send:
		t.Fatalf("u2 must not receive u1's frame")
	default:
	}
}

func TestHubRemoveClientCleansRooms(t *testing.T) {
	h := NewHub()
	c := newTestClient("u1")

	h.addClient(c)
	h.joinRoom(c, "session:s1")
	h.joinRoom(c, "session:s2")

	h.removeClient(c)
	if h.ClientCount() != 0 {
		t.Fatalf("client still registered after removal")
	}
	if h.RoomSize("session:s1") != 0 || h.RoomSize("session:s2") != 0 {
		t.Fatalf("rooms still hold the removed client")
	}

	// Send channel is closed so the write loop exits.
	if _, ok := <-c.Send; ok {
		t.Fatalf("send channel should be closed")
	}
}

func TestSendMessageDropsWhenFull(t *testing.T) {
	c := newTestClient("u1")
	for i := 0; i < cap(c.Send); i++ {
		c.SendMessage([]byte("x"))
	}
	// A full buffer drops instead of blocking.
	done := make(chan struct{})
	go func() {
		c.SendMessage([]byte("overflow"))
		close(done)
	}()
	<-done
	if len(c.Send) != cap(c.Send) {
		t.Fatalf("buffer length changed: %d", len(c.Send))
	}
}
