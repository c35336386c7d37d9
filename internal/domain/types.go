package domain

// Role is the closed set of participant roles in a chat session.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

type SessionType string

const (
	SessionTypePatientDoctor SessionType = "patient-doctor"
)

type ContentType string

const (
	ContentTypeText           ContentType = "text"
	ContentTypeImage          ContentType = "image"
	ContentTypeFile           ContentType = "file"
	ContentTypeStructuredNote ContentType = "structured-note"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeText, ContentTypeImage, ContentTypeFile, ContentTypeStructuredNote:
		return true
	}
	return false
}

// DeliveryState is the per-message progression sent -> delivered -> read.
// It only ever moves forward.
type DeliveryState string

const (
	DeliveryStateSent      DeliveryState = "sent"
	DeliveryStateDelivered DeliveryState = "delivered"
	DeliveryStateRead      DeliveryState = "read"
)

var deliveryRank = map[DeliveryState]int{
	DeliveryStateSent:      0,
	DeliveryStateDelivered: 1,
	DeliveryStateRead:      2,
}

// CanAdvanceTo reports whether moving to next keeps the progression
// monotonically non-decreasing.
func (s DeliveryState) CanAdvanceTo(next DeliveryState) bool {
	cur, ok := deliveryRank[s]
	if !ok {
		return false
	}
	n, ok := deliveryRank[next]
	if !ok {
		return false
	}
	return n >= cur
}

// Advance returns next if it is a forward move, otherwise the current state.
func (s DeliveryState) Advance(next DeliveryState) DeliveryState {
	if s.CanAdvanceTo(next) {
		return next
	}
	return s
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DeletedPlaceholder replaces a message's content on soft delete. The record
// itself is kept for ordering and audit.
const DeletedPlaceholder = "This message was deleted"
