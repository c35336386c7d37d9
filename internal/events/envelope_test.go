package events

import (
	"encoding/json"
	"testing"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(EventTypeMessageCreated, "s1", map[string]string{"id": "m1"})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	if env.EventType != EventTypeMessageCreated || env.SessionID != "s1" {
		t.Fatalf("envelope = %+v", env)
	}
	if env.OccurredAt.IsZero() {
		t.Fatalf("envelope must be timestamped")
	}

	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(decoded.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["id"] != "m1" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestNewEnvelopeRejectsUnmarshalablePayload(t *testing.T) {
	if _, err := NewEnvelope(EventTypeMessageCreated, "s1", make(chan int)); err == nil {
		t.Fatalf("channel payload must fail to marshal")
	}
}

func TestSessionChannel(t *testing.T) {
	if got := SessionChannel("abc"); got != "channel:session:abc" {
		t.Fatalf("SessionChannel = %q", got)
	}
}
