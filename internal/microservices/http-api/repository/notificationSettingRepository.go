package repository

import (
	"context"
	"fmt"

	"animehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationSettingRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.NotificationSetting, error)
	Upsert(ctx context.Context, setting *models.NotificationSetting) error
}

type notificationSettingRepository struct {
	db *gorm.DB
}

func NewNotificationSettingRepository(db *gorm.DB) NotificationSettingRepository {
	return &notificationSettingRepository{db: db}
}

func (r *notificationSettingRepository) ListByUser(ctx context.Context, userID string) ([]models.NotificationSetting, error) {
	var settings []models.NotificationSetting
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("type ASC").
		Find(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("list notification settings: %w", err)
	}
	return settings, nil
}

// Upsert inserts the setting or, when (user_id, type) already exists, overwrites enabled.
// One statement per call; concurrent writers on the same pair resolve last-write-wins.
func (r *notificationSettingRepository) Upsert(ctx context.Context, setting *models.NotificationSetting) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
		}).
		Create(setting).Error
	if err != nil {
		return fmt.Errorf("upsert notification setting: %w", translateError(err))
	}
	return nil
}
