package domain

import (
	"time"
)

// Session is a persisted two-party conversation between a patient and a
// doctor. It is never hard-deleted; deactivation hides it from listings and
// blocks new messages while keeping history readable.
type Session struct {
	ID   string      `gorm:"type:uuid;primaryKey" json:"id"`
	Type SessionType `gorm:"type:varchar(32);not null;default:'patient-doctor'" json:"type"`

	// PairKey holds the canonical participant pair while the session is
	// active. The unique index limits a pair to one active session; the key
	// is cleared on deactivation so the pair can start over.
	PairKey *string `gorm:"type:varchar(128);uniqueIndex:idx_sessions_active_pair" json:"-"`

	// Denormalized summary of the most recently accepted message, kept in
	// step with message inserts inside the same transaction.
	LastMessageContent *string    `gorm:"type:text" json:"last_message_content,omitempty"`
	LastSenderID       *string    `gorm:"type:uuid" json:"last_sender_id,omitempty"`
	LastSenderRole     *Role      `gorm:"type:varchar(16)" json:"last_sender_role,omitempty"`
	LastMessageAt      *time.Time `gorm:"index:idx_sessions_last_message,sort:desc" json:"last_message_at,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Subject              *string  `gorm:"type:text" json:"subject,omitempty"`
	Priority             Priority `gorm:"type:varchar(16);default:'medium'" json:"priority"`
	RelatedAppointmentID *string  `gorm:"type:uuid" json:"related_appointment_id,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Participants []Participant `gorm:"foreignKey:SessionID" json:"participants,omitempty"`
}

// Participant is one side of a session. Uniqueness is by (UserID, Role)
// within the session; a patient-doctor session has exactly two.
type Participant struct {
	SessionID   string     `gorm:"type:uuid;primaryKey" json:"session_id"`
	UserID      string     `gorm:"type:uuid;primaryKey;index:idx_participants_user" json:"user_id"`
	Role        Role       `gorm:"type:varchar(16);primaryKey" json:"role"`
	DisplayName string     `gorm:"type:text;not null" json:"display_name"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	JoinedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"joined_at"`
}

// SessionPairKey returns the canonical key for a participant pair,
// independent of argument order.
func SessionPairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

func (Session) TableName() string {
	return "sessions"
}

func (Participant) TableName() string {
	return "session_participants"
}

// HasParticipant reports whether userID belongs to the session.
func (s *Session) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ParticipantByID returns the participant entry for userID.
func (s *Session) ParticipantByID(userID string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Counterpart returns the other participant of a two-party session.
func (s *Session) Counterpart(userID string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.UserID != userID {
			return p, true
		}
	}
	return Participant{}, false
}

// CanAcceptMessage reports whether a write from userID is allowed: the
// session must be active and the sender a participant. Reads are gated
// separately since history stays readable after deactivation.
func (s *Session) CanAcceptMessage(userID string) bool {
	return s.IsActive && s.HasParticipant(userID)
}
