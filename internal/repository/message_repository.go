package repository

import (
	"context"
	"errors"
	"time"

	"medichat/internal/domain"
	medichat_errors "medichat/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) AppendWithSummary(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return medichat_errors.ErrAlreadyExists
			}
			return err
		}

		// Monotonic guard: a concurrent append that committed a newer message
		// first must not have its summary rolled back by this one.
		res := tx.Model(&domain.Session{}).
			Where("id = ? AND (last_message_at IS NULL OR last_message_at <= ?)", m.SessionID, m.CreatedAt).
			Updates(map[string]interface{}{
				"last_message_content": m.Content,
				"last_sender_id":       m.SenderID,
				"last_sender_role":     m.SenderRole,
				"last_message_at":      m.CreatedAt,
				"updated_at":           time.Now(),
			})
		return res.Error
	})
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id string) (domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).
		Preload("ReadReceipts").
		Preload("Attachments").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Message{}, medichat_errors.ErrNotFound
		}
		return domain.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListBySession(ctx context.Context, sessionID string, cursor Cursor, limit int) ([]domain.Message, Cursor, error) {
	var messages []domain.Message

	q := r.db.WithContext(ctx).
		Preload("ReadReceipts").
		Preload("Attachments").
		Where("session_id = ?", sessionID)

	if !cursor.IsZero() {
		q = q.Where("(created_at > ?) OR (created_at = ? AND id > ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, Cursor{}, err
	}

	var next Cursor
	if len(messages) == limit {
		last := messages[len(messages)-1]
		next = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return messages, next, nil
}

func (r *PostgresMessageRepository) MarkAllRead(ctx context.Context, sessionID, readerID string, readerRole domain.Role, at time.Time) ([]string, error) {
	var changed []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Messages from others that the reader has no receipt on yet
		receiptSub := tx.Model(&domain.ReadReceipt{}).
			Select("message_id").
			Where("user_id = ?", readerID)

		var ids []string
		if err := tx.Model(&domain.Message{}).
			Select("id").
			Where("session_id = ? AND sender_id <> ? AND id NOT IN (?)", sessionID, readerID, receiptSub).
			Find(&ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		receipts := make([]domain.ReadReceipt, 0, len(ids))
		for _, id := range ids {
			receipts = append(receipts, domain.ReadReceipt{
				MessageID: id,
				UserID:    readerID,
				UserRole:  readerRole,
				ReadAt:    at,
			})
		}
		// Re-marking by the same user is a no-op
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipts).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.Message{}).
			Where("id IN (?) AND delivery_state <> ?", ids, domain.DeliveryStateRead).
			Update("delivery_state", domain.DeliveryStateRead).Error; err != nil {
			return err
		}

		changed = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (r *PostgresMessageRepository) CountUnread(ctx context.Context, sessionID, userID string) (int64, error) {
	receiptSub := r.db.Model(&domain.ReadReceipt{}).
		Select("message_id").
		Where("user_id = ?", userID)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("session_id = ? AND sender_id <> ? AND id NOT IN (?)", sessionID, userID, receiptSub).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresMessageRepository) AdvanceDelivery(ctx context.Context, messageID string, next domain.DeliveryState) error {
	var lower []domain.DeliveryState
	switch next {
	case domain.DeliveryStateDelivered:
		lower = []domain.DeliveryState{domain.DeliveryStateSent}
	case domain.DeliveryStateRead:
		lower = []domain.DeliveryState{domain.DeliveryStateSent, domain.DeliveryStateDelivered}
	default:
		return medichat_errors.ErrInvalidInput
	}

	// Rows already at or past the target state are left untouched.
	return r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND delivery_state IN (?)", messageID, lower).
		Update("delivery_state", next).Error
}

func (r *PostgresMessageRepository) UpdateContent(ctx context.Context, messageID, content string, editedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND is_deleted = ?", messageID, false).
		Updates(map[string]interface{}{
			"content":    content,
			"is_edited":  true,
			"edited_at":  editedAt,
			"updated_at": editedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return medichat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) SoftDelete(ctx context.Context, messageID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND is_deleted = ?", messageID, false).
		Updates(map[string]interface{}{
			"content":    domain.DeletedPlaceholder,
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return medichat_errors.ErrNotFound
	}
	return nil
}
