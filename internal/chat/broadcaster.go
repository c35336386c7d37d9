package chat

import (
	"context"

	"medichat/internal/events"
)

// Broadcaster is the live fan-out contract the service writes through.
// Delivery is best-effort: persistence is authoritative and a failed
// broadcast never fails the originating write.
type Broadcaster interface {
	BroadcastToSession(ctx context.Context, sessionID string, env events.Envelope) error
}

// NopBroadcaster discards every event. Useful for tools and tests that only
// exercise persistence.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToSession(ctx context.Context, sessionID string, env events.Envelope) error {
	return nil
}
