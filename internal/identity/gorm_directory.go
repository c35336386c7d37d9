package identity

import (
	"context"
	"errors"
	"time"

	"medichat/internal/domain"
	medichat_errors "medichat/pkg/errors"

	"gorm.io/gorm"
)

// DirectoryUser is a local read model of the clinic's user store. Account
// management lives in the auth service; rows here are synced, not owned.
type DirectoryUser struct {
	ID             string      `gorm:"type:uuid;primaryKey" json:"id"`
	Role           domain.Role `gorm:"type:varchar(16);not null;index" json:"role"`
	DisplayName    string      `gorm:"type:varchar(255);not null" json:"display_name"`
	Email          string      `gorm:"type:varchar(255)" json:"email"`
	Specialization string      `gorm:"type:varchar(255)" json:"specialization"`
	IsActive       bool        `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (DirectoryUser) TableName() string {
	return "directory_users"
}

// GormDirectory serves directory lookups from the synced user table.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) LookupUser(ctx context.Context, userID string, role domain.Role) (Profile, error) {
	var u DirectoryUser
	err := d.db.WithContext(ctx).
		Where("id = ? AND role = ? AND is_active = ?", userID, role, true).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Profile{}, medichat_errors.ErrNotFound
		}
		return Profile{}, err
	}
	return profileFrom(u), nil
}

func (d *GormDirectory) ListDoctors(ctx context.Context) ([]Profile, error) {
	var users []DirectoryUser
	err := d.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", domain.RoleDoctor, true).
		Order("display_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, profileFrom(u))
	}
	return profiles, nil
}

func profileFrom(u DirectoryUser) Profile {
	return Profile{
		UserID:         u.ID,
		Role:           u.Role,
		DisplayName:    u.DisplayName,
		Email:          u.Email,
		Specialization: u.Specialization,
	}
}
