package repository

import (
	"context"

	"animehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// GamificationRepository reads badges and tasks.
type GamificationRepository interface {
	GetBadgeByID(ctx context.Context, id int64) (*models.Badge, error)
	GetTaskByID(ctx context.Context, id int64) (*models.Task, error)
}

type gamificationRepository struct {
	db *gorm.DB
}

func NewGamificationRepository(db *gorm.DB) GamificationRepository {
	return &gamificationRepository{db: db}
}

func (r *gamificationRepository) GetBadgeByID(ctx context.Context, id int64) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).First(&badge, id).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *gamificationRepository) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}
