package events

import (
	"encoding/json"
	"time"
)

// Envelope is the wire form of every live event, both over Redis pub/sub
// and down the websocket.
type Envelope struct {
	EventType  string          `json:"event_type"`
	SessionID  string          `json:"session_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into an Envelope stamped with the current
// time. Marshal failures are returned to the caller; an envelope is never
// published half-filled.
func NewEnvelope(eventType, sessionID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:  eventType,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Encode renders the envelope for transmission.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
