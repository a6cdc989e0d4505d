package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Little6thingys/lyric-mind/internal/models"
)

// GormStore keeps scores in the database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Save(ctx context.Context, score *models.SavedScore) error {
	if score.PublicID == "" {
		score.PublicID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Save(score).Error; err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.SavedScore, error) {
	var score models.SavedScore
	err := s.db.WithContext(ctx).Where("public_id = ?", id).First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}
	return &score, nil
}

func (s *GormStore) List(ctx context.Context, limit int) ([]models.ScoreSummary, error) {
	var out []models.ScoreSummary
	err := s.db.WithContext(ctx).
		Model(&models.SavedScore{}).
		Select("public_id, title, measures, created_at").
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("public_id = ?", id).Delete(&models.SavedScore{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete score: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}
