package gateway

import (
	"context"
	"strings"

	"medichat/internal/events"
	internalredis "medichat/internal/redis"
)

// RedisBroadcaster publishes session events to Redis pub/sub so every
// gateway instance, not just the one that accepted the write, can fan out
// to its local room members.
type RedisBroadcaster struct {
	publisher *internalredis.Publisher
}

func NewRedisBroadcaster(publisher *internalredis.Publisher) *RedisBroadcaster {
	return &RedisBroadcaster{publisher: publisher}
}

func (b *RedisBroadcaster) BroadcastToSession(ctx context.Context, sessionID string, env events.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return b.publisher.Publish(ctx, events.SessionChannel(sessionID), data)
}

// RedisBridge feeds Redis-published session events into the local hub.
type RedisBridge struct {
	subscriber *internalredis.Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber *internalredis.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

// Run blocks, feeding Redis-published events into the local hub until the
// context is cancelled or the subscription fails.
func (b *RedisBridge) Run(ctx context.Context) error {
	patterns := []string{
		events.ChannelPrefixSession + "*",
		events.ChannelPrefixUser + "*",
	}
	return b.subscriber.Subscribe(ctx, patterns, b.route)
}

// route fans a published event out locally: session channels go to room
// members, user channels to every connection of the addressed user.
func (b *RedisBridge) route(channel string, payload []byte) {
	if strings.HasPrefix(channel, events.ChannelPrefixUser) {
		b.hub.BroadcastToUser(strings.TrimPrefix(channel, events.ChannelPrefixUser), payload)
		return
	}
	b.hub.Broadcast(channel, payload)
}
