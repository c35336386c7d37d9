package repository

import (
	"context"
	"time"

	"medichat/internal/domain"
)

// SessionRepository persists chat sessions and their participants.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (domain.Session, error)
	// GetActivePairSession finds the active patient-doctor session shared by
	// the two users, regardless of which side is passed first.
	GetActivePairSession(ctx context.Context, userID1, userID2 string) (domain.Session, error)
	// GetUserSessions returns the caller's active sessions, most recent
	// message first.
	GetUserSessions(ctx context.Context, userID string) ([]domain.Session, error)
	IsParticipant(ctx context.Context, sessionID, userID string) (bool, error)
	TouchLastSeen(ctx context.Context, sessionID, userID string, at time.Time) error
	Deactivate(ctx context.Context, id string) error
}

// MessageRepository persists the ordered message log and per-message
// delivery/read state.
type MessageRepository interface {
	// AppendWithSummary inserts the message and updates the owning session's
	// last-message summary as one atomic unit. Concurrent appends never
	// leave the summary pointing at an older message.
	AppendWithSummary(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id string) (domain.Message, error)
	// ListBySession pages messages in ascending chronological order using a
	// stable cursor. An empty cursor starts from the beginning.
	ListBySession(ctx context.Context, sessionID string, cursor Cursor, limit int) ([]domain.Message, Cursor, error)
	// MarkAllRead idempotently adds a receipt for readerID to every message
	// in the session sent by someone else that lacks one, advancing those
	// messages to read. Returns the ids that actually changed.
	MarkAllRead(ctx context.Context, sessionID, readerID string, readerRole domain.Role, at time.Time) ([]string, error)
	CountUnread(ctx context.Context, sessionID, userID string) (int64, error)
	// AdvanceDelivery moves the message's delivery state forward to next.
	// Backward moves are silently ignored.
	AdvanceDelivery(ctx context.Context, messageID string, next domain.DeliveryState) error
	UpdateContent(ctx context.Context, messageID, content string, editedAt time.Time) error
	SoftDelete(ctx context.Context, messageID string, at time.Time) error
}
