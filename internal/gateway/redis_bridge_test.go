package gateway

import (
	"testing"

	"medichat/internal/events"
)

func TestBridgeRoutesUserChannelToUserConnections(t *testing.T) {
	h := NewHub()
	phone := newTestClient("u1")
	laptop := newTestClient("u1")
	other := newTestClient("u2")
	for _, c := range []*Client{phone, laptop, other} {
		h.addClient(c)
	}

	bridge := NewRedisBridge(nil, h)
	payload := []byte(`{"event_type":"presence.online"}`)
	bridge.route(events.UserChannel("u1"), payload)

	for _, c := range []*Client{phone, laptop} {
		select {
		case got := <-c.Send:
			if string(got) != string(payload) {
				t.Fatalf("got %s", got)
			}
		default:
			t.Fatalf("every connection of the addressed user should receive the event")
		}
	}
	select {
	case <-other.Send:
		t.Fatalf("other users must not receive user-channel events")
	default:
	}
}

func TestBridgeRoutesSessionChannelToRoomMembers(t *testing.T) {
	h := NewHub()
	member := newTestClient("u1")
	outsider := newTestClient("u2")
	h.addClient(member)
	h.addClient(outsider)
	h.joinRoom(member, events.SessionChannel("s1"))

	bridge := NewRedisBridge(nil, h)
	bridge.route(events.SessionChannel("s1"), []byte(`{"event_type":"message.created"}`))

	select {
	case <-member.Send:
	default:
		t.Fatalf("room member received nothing")
	}
	select {
	case <-outsider.Send:
		t.Fatalf("non-member must not receive session events")
	default:
	}
}
