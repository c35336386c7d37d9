package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medichat/internal/domain"
	medichat_errors "medichat/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.Session{},
		&domain.Participant{},
		&domain.Message{},
		&domain.Attachment{},
		&domain.ReadReceipt{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedSession(t *testing.T, db *gorm.DB, patientID, doctorID string) domain.Session {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	pairKey := domain.SessionPairKey(patientID, doctorID)
	s := domain.Session{
		ID:        uuid.NewString(),
		Type:      domain.SessionTypePatientDoctor,
		PairKey:   &pairKey,
		IsActive:  true,
		Priority:  domain.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
		Participants: []domain.Participant{
			{UserID: patientID, Role: domain.RolePatient, DisplayName: "Pat", JoinedAt: now},
			{UserID: doctorID, Role: domain.RoleDoctor, DisplayName: "Dr. Doe", JoinedAt: now},
		},
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func newMessage(sessionID, senderID string, at time.Time) domain.Message {
	return domain.Message{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		SenderID:          senderID,
		SenderRole:        domain.RolePatient,
		SenderDisplayName: "Pat",
		Content:           "hello",
		ContentType:       domain.ContentTypeText,
		DeliveryState:     domain.DeliveryStateSent,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
}

// ----- session repository -----

func TestGetActivePairSessionIgnoresOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	seeded := seedSession(t, db, "p1", "d1")

	got, err := repo.GetActivePairSession(ctx, "p1", "d1")
	if err != nil {
		t.Fatalf("pair lookup: %v", err)
	}
	if got.ID != seeded.ID {
		t.Fatalf("got session %s, want %s", got.ID, seeded.ID)
	}

	// Reversed order resolves to the same session.
	got, err = repo.GetActivePairSession(ctx, "d1", "p1")
	if err != nil || got.ID != seeded.ID {
		t.Fatalf("reversed lookup = (%v, %v), want %s", got.ID, err, seeded.ID)
	}
}

func TestGetActivePairSessionExcludesInactive(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")
	if err := repo.Deactivate(ctx, s.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := repo.GetActivePairSession(ctx, "p1", "d1"); err == nil {
		t.Fatalf("inactive session must not be returned as the active pair session")
	}
}

func TestCreateRejectsSecondActivePairSession(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	seedSession(t, db, "p1", "d1")

	// A concurrent creator for the same pair hits the unique pair index.
	now := time.Now().UTC().Truncate(time.Millisecond)
	pairKey := domain.SessionPairKey("d1", "p1")
	dup := domain.Session{
		ID:        uuid.NewString(),
		Type:      domain.SessionTypePatientDoctor,
		PairKey:   &pairKey,
		IsActive:  true,
		Priority:  domain.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
		Participants: []domain.Participant{
			{UserID: "p1", Role: domain.RolePatient, DisplayName: "Pat", JoinedAt: now},
			{UserID: "d1", Role: domain.RoleDoctor, DisplayName: "Dr. Doe", JoinedAt: now},
		},
	}
	if err := repo.Create(ctx, &dup); !errors.Is(err, medichat_errors.ErrAlreadyExists) {
		t.Fatalf("duplicate active pair: got %v, want ErrAlreadyExists", err)
	}

	var active int64
	if err := db.Model(&domain.Session{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 1 {
		t.Fatalf("%d active sessions for the pair, want 1", active)
	}
}

func TestDeactivateReleasesPairSlot(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	closed := seedSession(t, db, "p1", "d1")
	if err := repo.Deactivate(ctx, closed.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	// The pair may open a fresh session once the old one is closed.
	reopened := seedSession(t, db, "p1", "d1")
	got, err := repo.GetActivePairSession(ctx, "p1", "d1")
	if err != nil {
		t.Fatalf("pair lookup after reopen: %v", err)
	}
	if got.ID != reopened.ID {
		t.Fatalf("got session %s, want reopened %s", got.ID, reopened.ID)
	}
}

func TestGetUserSessionsOrdering(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	older := seedSession(t, db, "p1", "d1")
	newer := seedSession(t, db, "p1", "d2")

	base := time.Now().UTC().Truncate(time.Millisecond)
	m1 := newMessage(older.ID, "p1", base.Add(-time.Hour))
	m2 := newMessage(newer.ID, "p1", base)
	if err := messages.AppendWithSummary(ctx, &m1); err != nil {
		t.Fatalf("append m1: %v", err)
	}
	if err := messages.AppendWithSummary(ctx, &m2); err != nil {
		t.Fatalf("append m2: %v", err)
	}

	got, err := sessions.GetUserSessions(ctx, "p1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}
	if got[0].ID != newer.ID {
		t.Fatalf("most recently messaged session should come first")
	}
}

func TestIsParticipant(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")

	ok, err := repo.IsParticipant(ctx, s.ID, "p1")
	if err != nil || !ok {
		t.Fatalf("p1 should be a participant, got (%v, %v)", ok, err)
	}
	ok, err = repo.IsParticipant(ctx, s.ID, "stranger")
	if err != nil || ok {
		t.Fatalf("stranger must not be a participant, got (%v, %v)", ok, err)
	}
}

// ----- message repository -----

func TestAppendWithSummaryUpdatesSession(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")
	at := time.Now().UTC().Truncate(time.Millisecond)

	m := newMessage(s.ID, "p1", at)
	if err := messages.AppendWithSummary(ctx, &m); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := sessions.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.LastMessageContent == nil || *got.LastMessageContent != "hello" {
		t.Fatalf("summary content not updated: %+v", got.LastMessageContent)
	}
	if got.LastMessageAt == nil || !got.LastMessageAt.Equal(at) {
		t.Fatalf("summary timestamp = %v, want %v", got.LastMessageAt, at)
	}
}

func TestAppendWithSummaryNeverRegresses(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")
	base := time.Now().UTC().Truncate(time.Millisecond)

	newer := newMessage(s.ID, "p1", base)
	newer.Content = "newer"
	if err := messages.AppendWithSummary(ctx, &newer); err != nil {
		t.Fatalf("append newer: %v", err)
	}

	// A message with an older timestamp lands after the newer one, as under
	// concurrent posts. The summary must keep pointing at the newer message.
	older := newMessage(s.ID, "d1", base.Add(-time.Minute))
	older.Content = "older"
	if err := messages.AppendWithSummary(ctx, &older); err != nil {
		t.Fatalf("append older: %v", err)
	}

	got, err := sessions.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.LastMessageContent == nil || *got.LastMessageContent != "newer" {
		t.Fatalf("summary regressed to %v", got.LastMessageContent)
	}
}

func TestListBySessionPagination(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		m := newMessage(s.ID, "p1", base.Add(time.Duration(i)*time.Second))
		m.Content = fmt.Sprintf("msg-%d", i)
		if err := messages.AppendWithSummary(ctx, &m); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	page1, next, err := messages.ListBySession(ctx, s.ID, Cursor{}, 3)
	if err != nil {
		t.Fatalf("page1: %v", err)
	}
	if len(page1) != 3 || next.IsZero() {
		t.Fatalf("page1 len=%d next.IsZero=%v, want 3 and a cursor", len(page1), next.IsZero())
	}
	if page1[0].Content != "msg-0" {
		t.Fatalf("page1 should start at the oldest message, got %s", page1[0].Content)
	}

	page2, _, err := messages.ListBySession(ctx, s.ID, next, 3)
	if err != nil {
		t.Fatalf("page2: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("page2 len=%d, want 2", len(page2))
	}
	if page2[0].Content != "msg-3" || page2[1].Content != "msg-4" {
		t.Fatalf("page2 out of order: %s, %s", page2[0].Content, page2[1].Content)
	}
}

func TestMarkAllReadIdempotent(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		m := newMessage(s.ID, "p1", base.Add(time.Duration(i)*time.Second))
		if err := messages.AppendWithSummary(ctx, &m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// One message from the reader themselves; it must never count.
	own := newMessage(s.ID, "d1", base.Add(time.Minute))
	if err := messages.AppendWithSummary(ctx, &own); err != nil {
		t.Fatalf("append own: %v", err)
	}

	changed, err := messages.MarkAllRead(ctx, s.ID, "d1", domain.RoleDoctor, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if len(changed) != 3 {
		t.Fatalf("first mark changed %d messages, want 3", len(changed))
	}

	again, err := messages.MarkAllRead(ctx, s.ID, "d1", domain.RoleDoctor, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second mark changed %d messages, want 0", len(again))
	}

	unread, err := messages.CountUnread(ctx, s.ID, "d1")
	if err != nil || unread != 0 {
		t.Fatalf("unread after mark = (%d, %v), want 0", unread, err)
	}

	// Sender's own message stays unread only for the counterpart.
	unread, err = messages.CountUnread(ctx, s.ID, "p1")
	if err != nil || unread != 1 {
		t.Fatalf("p1 unread = (%d, %v), want 1", unread, err)
	}
}

func TestAdvanceDeliveryIsMonotonic(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")
	m := newMessage(s.ID, "p1", time.Now().UTC())
	if err := messages.AppendWithSummary(ctx, &m); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := messages.AdvanceDelivery(ctx, m.ID, domain.DeliveryStateRead); err != nil {
		t.Fatalf("advance to read: %v", err)
	}
	// A late delivered ack must not pull the state back.
	if err := messages.AdvanceDelivery(ctx, m.ID, domain.DeliveryStateDelivered); err != nil {
		t.Fatalf("late delivered ack: %v", err)
	}

	got, err := messages.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DeliveryState != domain.DeliveryStateRead {
		t.Fatalf("delivery state = %s, want read", got.DeliveryState)
	}
}

func TestSoftDeleteReplacesContent(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")
	m := newMessage(s.ID, "p1", time.Now().UTC())
	if err := messages.AppendWithSummary(ctx, &m); err != nil {
		t.Fatalf("append: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	if err := messages.SoftDelete(ctx, m.ID, at); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	got, err := messages.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("deleted message must stay queryable: %v", err)
	}
	if !got.IsDeleted || got.Content != domain.DeletedPlaceholder {
		t.Fatalf("got (%v, %q), want deleted with placeholder", got.IsDeleted, got.Content)
	}

	// Deleting again finds no live row.
	if err := messages.SoftDelete(ctx, m.ID, at); err == nil {
		t.Fatalf("second delete should fail")
	}
}

func TestUpdateContentRejectsDeleted(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	s := seedSession(t, db, "p1", "d1")
	m := newMessage(s.ID, "p1", time.Now().UTC())
	if err := messages.AppendWithSummary(ctx, &m); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := messages.SoftDelete(ctx, m.ID, time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if err := messages.UpdateContent(ctx, m.ID, "rewritten", time.Now().UTC()); err == nil {
		t.Fatalf("editing a deleted message should fail")
	}
}
