package gateway

import (
	"context"

	"medichat/internal/events"
)

// LocalBroadcaster fans out through this process's hub only. It is the
// single-instance implementation of the chat service's broadcast contract.
type LocalBroadcaster struct {
	hub *Hub
}

func NewLocalBroadcaster(hub *Hub) *LocalBroadcaster {
	return &LocalBroadcaster{hub: hub}
}

func (b *LocalBroadcaster) BroadcastToSession(ctx context.Context, sessionID string, env events.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	b.hub.Broadcast(events.SessionChannel(sessionID), data)
	return nil
}
