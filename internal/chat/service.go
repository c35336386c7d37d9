package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"medichat/internal/domain"
	"medichat/internal/events"
	"medichat/internal/identity"
	"medichat/internal/repository"
	medichat_errors "medichat/pkg/errors"
	"medichat/pkg/logger"

	"github.com/google/uuid"
)

// Service is the single authority for session and message mutation. Every
// write is validated against session membership before it touches the
// stores, and every accepted write is bridged to the live channel through
// the injected Broadcaster.
type Service struct {
	sessions    repository.SessionRepository
	messages    repository.MessageRepository
	directory   identity.Directory
	broadcaster Broadcaster
	log         *logger.Logger

	editWindow time.Duration
	maxContent int

	now func() time.Time
}

type Options struct {
	EditWindow       time.Duration
	MaxContentLength int
}

func NewService(
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	directory identity.Directory,
	broadcaster Broadcaster,
	log *logger.Logger,
	opts Options,
) *Service {
	if opts.EditWindow <= 0 {
		opts.EditWindow = 15 * time.Minute
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = 1000
	}
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Service{
		sessions:    sessions,
		messages:    messages,
		directory:   directory,
		broadcaster: broadcaster,
		log:         log,
		editWindow:  opts.EditWindow,
		maxContent:  opts.MaxContentLength,
		now:         time.Now,
	}
}

// SessionWithUnread augments a session with the caller's unread count for
// list rendering.
type SessionWithUnread struct {
	domain.Session
	UnreadCount int64 `json:"unread_count"`
}

// GetOrCreateSession returns the active session between the initiating
// patient and the doctor, creating it on first contact. Calling it twice
// with the same pair yields the same session.
func (s *Service) GetOrCreateSession(ctx context.Context, initiator identity.Identity, doctorID string) (domain.Session, error) {
	// Policy: patients initiate contact.
	if initiator.Role != domain.RolePatient {
		return domain.Session{}, medichat_errors.ErrForbidden
	}

	existing, err := s.sessions.GetActivePairSession(ctx, initiator.UserID, doctorID)
	if err == nil {
		return existing, nil
	}
	if err != medichat_errors.ErrNotFound {
		return domain.Session{}, err
	}

	doctor, err := s.directory.LookupUser(ctx, doctorID, domain.RoleDoctor)
	if err != nil {
		return domain.Session{}, medichat_errors.ErrNotFound
	}
	patient, err := s.directory.LookupUser(ctx, initiator.UserID, domain.RolePatient)
	if err != nil {
		return domain.Session{}, medichat_errors.ErrNotFound
	}

	now := s.now().UTC()
	subject := fmt.Sprintf("Consultation with Dr. %s", doctor.DisplayName)
	pairKey := domain.SessionPairKey(patient.UserID, doctor.UserID)
	session := domain.Session{
		ID:        uuid.New().String(),
		Type:      domain.SessionTypePatientDoctor,
		PairKey:   &pairKey,
		IsActive:  true,
		Subject:   &subject,
		Priority:  domain.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
		Participants: []domain.Participant{
			{UserID: patient.UserID, Role: domain.RolePatient, DisplayName: patient.DisplayName, JoinedAt: now},
			{UserID: doctor.UserID, Role: domain.RoleDoctor, DisplayName: doctor.DisplayName, JoinedAt: now},
		},
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		if err == medichat_errors.ErrAlreadyExists {
			// Lost a create race; the winner's session is the session.
			return s.sessions.GetActivePairSession(ctx, initiator.UserID, doctorID)
		}
		return domain.Session{}, err
	}
	return session, nil
}

// ListSessions returns the caller's active sessions, most recent message
// first, each with the caller's unread count.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]SessionWithUnread, error) {
	sessions, err := s.sessions.GetUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]SessionWithUnread, 0, len(sessions))
	for _, sess := range sessions {
		unread, err := s.messages.CountUnread(ctx, sess.ID, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, SessionWithUnread{Session: sess, UnreadCount: unread})
	}
	return out, nil
}

// ListMessages pages a session's messages in chronological order. History
// stays readable on inactive sessions; only membership gates reads.
func (s *Service) ListMessages(ctx context.Context, sessionID, callerID, cursor string, limit int) ([]domain.Message, string, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if !session.HasParticipant(callerID) {
		return nil, "", medichat_errors.ErrForbidden
	}

	cur, err := repository.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, next, err := s.messages.ListBySession(ctx, sessionID, cur, limit)
	if err != nil {
		return nil, "", err
	}
	return messages, next.Encode(), nil
}

type PostMessageInput struct {
	Content     string
	ContentType domain.ContentType
	ReplyToID   string
	Attachments []domain.Attachment
}

// PostMessage appends a message to the session and updates the session
// summary in the same transaction, then emits message.created to the
// session's room. The stored state is `sent`; the sender's live connection
// acknowledges separately to advance it.
func (s *Service) PostMessage(ctx context.Context, sessionID string, sender identity.Identity, in PostMessageInput) (domain.Message, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return domain.Message{}, err
	}
	if !session.CanAcceptMessage(sender.UserID) {
		if !session.HasParticipant(sender.UserID) {
			return domain.Message{}, medichat_errors.ErrForbidden
		}
		return domain.Message{}, medichat_errors.ErrSessionInactive
	}

	if in.ContentType == "" {
		in.ContentType = domain.ContentTypeText
	}
	if err := s.validateContent(in.Content, in.ContentType); err != nil {
		return domain.Message{}, err
	}

	now := s.now().UTC()
	msg := domain.Message{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		SenderID:      sender.UserID,
		SenderRole:    sender.Role,
		Content:       in.Content,
		ContentType:   in.ContentType,
		DeliveryState: domain.DeliveryStateSent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if participant, ok := session.ParticipantByID(sender.UserID); ok {
		msg.SenderDisplayName = participant.DisplayName
	} else {
		msg.SenderDisplayName = sender.DisplayName
	}

	if in.ReplyToID != "" {
		target, err := s.messages.GetByID(ctx, in.ReplyToID)
		if err != nil || target.SessionID != sessionID {
			return domain.Message{}, medichat_errors.ErrInvalidInput
		}
		snapshot := target.Content
		msg.ReplyToID = &target.ID
		msg.ReplyToContent = &snapshot
	}

	for i := range in.Attachments {
		in.Attachments[i].ID = uuid.New().String()
		in.Attachments[i].MessageID = msg.ID
		in.Attachments[i].Position = i
	}
	msg.Attachments = in.Attachments

	if err := s.messages.AppendWithSummary(ctx, &msg); err != nil {
		return domain.Message{}, err
	}

	if err := s.sessions.TouchLastSeen(ctx, sessionID, sender.UserID, now); err != nil {
		s.logErr(ctx, "touch last seen: %v", err)
	}

	s.emit(ctx, sessionID, events.EventTypeMessageCreated, msg)
	return msg, nil
}

// AckDelivered is the sender's self-acknowledgment from its live connection
// that the accepted write arrived back. It advances sent -> delivered and
// never moves the state backward.
func (s *Service) AckDelivered(ctx context.Context, messageID, senderID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.IsSender(senderID) {
		return medichat_errors.ErrForbidden
	}
	return s.messages.AdvanceDelivery(ctx, messageID, domain.DeliveryStateDelivered)
}

// ReadSummary is the payload of a messages.read event: one event per
// markRead call, not one per message.
type ReadSummary struct {
	SessionID  string      `json:"session_id"`
	ReaderID   string      `json:"reader_id"`
	ReaderRole domain.Role `json:"reader_role"`
	MessageIDs []string    `json:"message_ids"`
	ReadAt     time.Time   `json:"read_at"`
}

// MarkRead idempotently adds a read receipt for the reader to every message
// in the session sent by someone else that lacks one.
func (s *Service) MarkRead(ctx context.Context, sessionID string, reader identity.Identity) (ReadSummary, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return ReadSummary{}, err
	}
	if !session.HasParticipant(reader.UserID) {
		return ReadSummary{}, medichat_errors.ErrForbidden
	}

	now := s.now().UTC()
	changed, err := s.messages.MarkAllRead(ctx, sessionID, reader.UserID, reader.Role, now)
	if err != nil {
		return ReadSummary{}, err
	}

	if err := s.sessions.TouchLastSeen(ctx, sessionID, reader.UserID, now); err != nil {
		s.logErr(ctx, "touch last seen: %v", err)
	}

	summary := ReadSummary{
		SessionID:  sessionID,
		ReaderID:   reader.UserID,
		ReaderRole: reader.Role,
		MessageIDs: changed,
		ReadAt:     now,
	}
	if len(changed) > 0 {
		s.emit(ctx, sessionID, events.EventTypeMessagesRead, summary)
	}
	return summary, nil
}

// EditMessage mutates content in place. Only the original sender may edit,
// and only within the edit window; the boundary itself still succeeds.
func (s *Service) EditMessage(ctx context.Context, messageID, editorID, newContent string) (domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if !msg.IsSender(editorID) {
		return domain.Message{}, medichat_errors.ErrForbidden
	}
	now := s.now()
	if !msg.CanEdit(editorID, now, s.editWindow) {
		return domain.Message{}, medichat_errors.ErrMessageTooOld
	}
	if err := s.validateContent(newContent, msg.ContentType); err != nil {
		return domain.Message{}, err
	}

	editedAt := now.UTC()
	if err := s.messages.UpdateContent(ctx, messageID, newContent, editedAt); err != nil {
		return domain.Message{}, err
	}

	msg.Content = newContent
	msg.IsEdited = true
	msg.EditedAt = &editedAt
	msg.UpdatedAt = editedAt

	s.emit(ctx, msg.SessionID, events.EventTypeMessageUpdated, msg)
	return msg, nil
}

// DeleteMessage soft-deletes: content is replaced with a fixed placeholder
// and the record keeps its place in the log.
func (s *Service) DeleteMessage(ctx context.Context, messageID, requesterID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.CanDelete(requesterID) {
		return medichat_errors.ErrForbidden
	}

	at := s.now().UTC()
	if err := s.messages.SoftDelete(ctx, messageID, at); err != nil {
		return err
	}

	s.emit(ctx, msg.SessionID, events.EventTypeMessageDeleted, map[string]any{
		"message_id": messageID,
		"deleted_at": at,
	})
	return nil
}

// CloseSession deactivates a session. History remains queryable; new
// messages are rejected.
func (s *Service) CloseSession(ctx context.Context, sessionID, callerID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.HasParticipant(callerID) {
		return medichat_errors.ErrForbidden
	}
	return s.sessions.Deactivate(ctx, sessionID)
}

// IsParticipant exposes the membership check for the gateway's room-join
// authorization.
func (s *Service) IsParticipant(ctx context.Context, sessionID, userID string) (bool, error) {
	return s.sessions.IsParticipant(ctx, sessionID, userID)
}

// TouchLastSeen records room activity on the participant record.
func (s *Service) TouchLastSeen(ctx context.Context, sessionID, userID string) {
	if err := s.sessions.TouchLastSeen(ctx, sessionID, userID, s.now().UTC()); err != nil {
		s.logErr(ctx, "touch last seen: %v", err)
	}
}

// SessionPartners lists the counterpart participants across the caller's
// sessions, deduplicated. For a doctor this is their patient roster.
func (s *Service) SessionPartners(ctx context.Context, userID string) ([]domain.Participant, error) {
	sessions, err := s.sessions.GetUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var partners []domain.Participant
	for _, sess := range sessions {
		counterpart, ok := sess.Counterpart(userID)
		if !ok {
			continue
		}
		if _, dup := seen[counterpart.UserID]; dup {
			continue
		}
		seen[counterpart.UserID] = struct{}{}
		partners = append(partners, counterpart)
	}
	return partners, nil
}

func (s *Service) validateContent(content string, contentType domain.ContentType) error {
	if !contentType.Valid() {
		return medichat_errors.ErrInvalidInput
	}
	if contentType == domain.ContentTypeText && strings.TrimSpace(content) == "" {
		return medichat_errors.ErrInvalidInput
	}
	if utf8.RuneCountInString(content) > s.maxContent {
		return medichat_errors.ErrInvalidInput
	}
	return nil
}

func (s *Service) emit(ctx context.Context, sessionID, eventType string, payload any) {
	env, err := events.NewEnvelope(eventType, sessionID, payload)
	if err != nil {
		s.logErr(ctx, "encode %s event: %v", eventType, err)
		return
	}
	if err := s.broadcaster.BroadcastToSession(ctx, sessionID, env); err != nil {
		// Broadcast is an optimization over the persisted log; clients
		// reconcile via ListMessages on reconnect.
		s.logErr(ctx, "broadcast %s: %v", eventType, err)
	}
}

func (s *Service) logErr(ctx context.Context, format string, args ...interface{}) {
	if s.log != nil {
		s.log.ErrorfCtx(ctx, format, args...)
	}
}
