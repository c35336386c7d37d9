package domain

import (
	"time"
)

// Message is one unit of conversation content. Messages belong to exactly
// one session for their lifetime and are ordered by creation time; edits and
// receipts never reorder them.
type Message struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string `gorm:"type:uuid;not null;index:idx_messages_session_created,priority:1" json:"session_id"`

	// Sender identity is denormalized at write time so history stays legible
	// even if the profile later changes.
	SenderID          string `gorm:"type:uuid;not null;index" json:"sender_id"`
	SenderRole        Role   `gorm:"type:varchar(16);not null" json:"sender_role"`
	SenderDisplayName string `gorm:"type:text;not null" json:"sender_display_name"`

	Content     string      `gorm:"type:text;not null" json:"content"`
	ContentType ContentType `gorm:"type:varchar(32);default:'text'" json:"content_type"`

	DeliveryState DeliveryState `gorm:"type:varchar(16);default:'sent';index" json:"delivery_state"`

	ReplyToID      *string `gorm:"type:uuid" json:"reply_to_id,omitempty"`
	ReplyToContent *string `gorm:"type:text" json:"reply_to_content,omitempty"`

	IsEdited  bool       `gorm:"default:false" json:"is_edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	IsDeleted bool       `gorm:"default:false" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_messages_session_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Attachments  []Attachment  `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
	ReadReceipts []ReadReceipt `gorm:"foreignKey:MessageID" json:"read_receipts,omitempty"`
}

// Attachment is a file reference carried by a message.
type Attachment struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID string `gorm:"type:uuid;not null;index" json:"message_id"`
	Name      string `gorm:"type:text;not null" json:"name"`
	URL       string `gorm:"type:text;not null" json:"url"`
	Type      string `gorm:"type:varchar(64)" json:"type"`
	Size      int64  `json:"size"`
	Position  int    `gorm:"default:0" json:"position"`
}

// ReadReceipt records that a user has seen a message. Keyed by
// (message, user) so re-marking is a no-op.
type ReadReceipt struct {
	MessageID string    `gorm:"type:uuid;primaryKey" json:"message_id"`
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	UserRole  Role      `gorm:"type:varchar(16);not null" json:"user_role"`
	ReadAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"read_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (Attachment) TableName() string {
	return "message_attachments"
}

func (ReadReceipt) TableName() string {
	return "message_read_receipts"
}

// IsSender reports whether userID authored the message.
func (m *Message) IsSender(userID string) bool {
	return m.SenderID == userID
}

// CanEdit authorizes an edit: original sender only, not deleted, and within
// the edit window measured from creation. The boundary itself is allowed.
func (m *Message) CanEdit(editorID string, now time.Time, window time.Duration) bool {
	if !m.IsSender(editorID) || m.IsDeleted {
		return false
	}
	return now.Sub(m.CreatedAt) <= window
}

// CanDelete authorizes a soft delete: original sender only, and only once.
func (m *Message) CanDelete(requesterID string) bool {
	return m.IsSender(requesterID) && !m.IsDeleted
}

// ReadBy reports whether userID already has a receipt on the message.
func (m *Message) ReadBy(userID string) bool {
	for _, r := range m.ReadReceipts {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
