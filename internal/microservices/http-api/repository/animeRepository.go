package repository

import (
	"context"
	"fmt"

	"animehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type AnimeRepo struct {
	db *gorm.DB
}

func NewAnimeRepo(db *gorm.DB) *AnimeRepo {
	return &AnimeRepo{db: db}
}

func (r *AnimeRepo) GetByID(ctx context.Context, id int64) (*models.Anime, error) {
	var a models.Anime
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AnimeRepo) Create(ctx context.Context, a *models.Anime) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create anime: %w", translateError(err))
	}
	return nil
}
