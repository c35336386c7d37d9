package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"medichat/internal/events"
)

func TestLocalBroadcasterDeliversToRoomMembers(t *testing.T) {
	h := NewHub()
	member := newTestClient("u1")
	outsider := newTestClient("u2")

	h.addClient(member)
	h.addClient(outsider)
	h.joinRoom(member, events.SessionChannel("s1"))

	b := NewLocalBroadcaster(h)
	env, err := events.NewEnvelope(events.EventTypeMessageCreated, "s1", map[string]string{"id": "m1"})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if err := b.BroadcastToSession(context.Background(), "s1", env); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case raw := <-member.Send:
		var got events.Envelope
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.EventType != events.EventTypeMessageCreated || got.SessionID != "s1" {
			t.Fatalf("envelope = %+v", got)
		}
	default:
		t.Fatalf("room member received nothing")
	}

	select {
	case <-outsider.Send:
		t.Fatalf("non-member must not receive session events")
	default:
	}
}
