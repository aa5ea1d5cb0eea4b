package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	database *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{database: database}
}

// FindByID reports found=false instead of an error when the profile is missing.
func (repo *ProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Profile, bool, error) {
	profile := models.Profile{}
	result := repo.database.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&profile)
	if result.Error != nil {
		return models.Profile{}, false, result.Error
	}
	return profile, result.RowsAffected > 0, nil
}

func (repo *ProfileRepository) FindByEmail(ctx context.Context, email string) (models.Profile, bool, error) {
	profile := models.Profile{}
	result := repo.database.WithContext(ctx).
		Where("lower(trim(email)) = ?", email).
		Order("created_at ASC").
		Limit(1).
		Find(&profile)
	if result.Error != nil {
		return models.Profile{}, false, result.Error
	}
	return profile, result.RowsAffected > 0, nil
}

func (repo *ProfileRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error) {
	profiles := make([]models.Profile, 0, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}
	if err := repo.database.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (repo *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return repo.database.WithContext(ctx).Create(profile).Error
}

func (repo *ProfileRepository) UpdateTelegramChatID(ctx context.Context, id uuid.UUID, chatID string) error {
	result := repo.database.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Update("telegram_chat_id", chatID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
