package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PresenceStatus is a user's ephemeral connectivity state. It lives in
// Redis only; nothing here is authoritative chat state.
type PresenceStatus struct {
	UserID   string    `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

// PresenceStore tracks who is online across all gateway instances. A user
// with several open connections stays online until the last one drops.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

const (
	presenceKeyPrefix = "presence:"
	presenceOnlineSet = "presence:online"
)

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{client: client, ttl: ttl}
}

// SetOnline records a new connection for the user and marks them online.
func (p *PresenceStore) SetOnline(ctx context.Context, userID, clientID string) error {
	now := time.Now().UTC()

	pipe := p.client.Pipeline()

	status := PresenceStatus{UserID: userID, IsOnline: true, LastSeen: now}
	data, _ := json.Marshal(status)
	pipe.Set(ctx, presenceKeyPrefix+userID, data, p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID)

	connKey := connectionsKey(userID)
	pipe.HSet(ctx, connKey, clientID, now.Format(time.RFC3339))
	pipe.Expire(ctx, connKey, p.ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// SetOffline drops one connection; the user goes offline only when no
// connections remain.
func (p *PresenceStore) SetOffline(ctx context.Context, userID, clientID string) error {
	connKey := connectionsKey(userID)
	if err := p.client.HDel(ctx, connKey, clientID).Err(); err != nil {
		return err
	}

	remaining, err := p.client.HLen(ctx, connKey).Result()
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	now := time.Now().UTC()
	status := PresenceStatus{UserID: userID, IsOnline: false, LastSeen: now}
	data, _ := json.Marshal(status)

	pipe := p.client.Pipeline()
	// Offline status kept longer so last-seen queries still work
	pipe.Set(ctx, presenceKeyPrefix+userID, data, 24*time.Hour)
	pipe.SRem(ctx, presenceOnlineSet, userID)
	_, err = pipe.Exec(ctx)
	return err
}

// Heartbeat refreshes the presence TTL for a connected user.
func (p *PresenceStore) Heartbeat(ctx context.Context, userID string) error {
	pipe := p.client.Pipeline()
	pipe.Expire(ctx, presenceKeyPrefix+userID, p.ttl)
	pipe.Expire(ctx, connectionsKey(userID), p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// GetPresence returns the user's presence, defaulting to offline when
// nothing is recorded.
func (p *PresenceStore) GetPresence(ctx context.Context, userID string) (*PresenceStatus, error) {
	data, err := p.client.Get(ctx, presenceKeyPrefix+userID).Result()
	if err == goredis.Nil {
		return &PresenceStatus{UserID: userID, IsOnline: false}, nil
	}
	if err != nil {
		return nil, err
	}

	var status PresenceStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// IsOnline checks membership of the online set.
func (p *PresenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	return p.client.SIsMember(ctx, presenceOnlineSet, userID).Result()
}

// OnlineCount returns how many users are currently online.
func (p *PresenceStore) OnlineCount(ctx context.Context) (int64, error) {
	return p.client.SCard(ctx, presenceOnlineSet).Result()
}

func connectionsKey(userID string) string {
	return fmt.Sprintf("connections:%s", userID)
}
