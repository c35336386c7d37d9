package repository

import (
	"context"
	"errors"
	"time"

	"medichat/internal/domain"
	medichat_errors "medichat/pkg/errors"

	"gorm.io/gorm"
)

type PostgresSessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	res := r.db.WithContext(ctx).Create(s)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return medichat_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, medichat_errors.ErrNotFound
		}
		return domain.Session{}, err
	}
	return s, nil
}

func (r *PostgresSessionRepository) GetActivePairSession(ctx context.Context, userID1, userID2 string) (domain.Session, error) {
	var s domain.Session

	// Sessions where both users are participants, pair order irrelevant
	subQuery := r.db.Model(&domain.Participant{}).
		Select("session_id").
		Where("user_id IN (?, ?)", userID1, userID2).
		Group("session_id").
		Having("COUNT(DISTINCT user_id) = 2")

	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?) AND type = ? AND is_active = ?", subQuery, domain.SessionTypePatientDoctor, true).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, medichat_errors.ErrNotFound
		}
		return domain.Session{}, err
	}
	return s, nil
}

func (r *PostgresSessionRepository) GetUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	var sessions []domain.Session

	subQuery := r.db.Model(&domain.Participant{}).
		Select("session_id").
		Where("user_id = ?", userID)

	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?) AND is_active = ?", subQuery, true).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresSessionRepository) IsParticipant(ctx context.Context, sessionID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresSessionRepository) TouchLastSeen(ctx context.Context, sessionID, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Update("last_seen_at", at).Error
}

func (r *PostgresSessionRepository) Deactivate(ctx context.Context, id string) error {
	// Clearing pair_key releases the pair's one-active-session slot.
	res := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "pair_key": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return medichat_errors.ErrNotFound
	}
	return nil
}
