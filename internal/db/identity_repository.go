package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

type IdentityRepository struct {
	database *gorm.DB
}

func NewIdentityRepository(database *gorm.DB) *IdentityRepository {
	return &IdentityRepository{database: database}
}

func (repo *IdentityRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	var identity models.Identity
	if err := repo.database.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return models.Identity{}, err
	}
	return identity, nil
}

func (repo *IdentityRepository) FindByNormalizedEmail(ctx context.Context, email string) (models.Identity, error) {
	var identity models.Identity
	if err := repo.database.WithContext(ctx).Where("lower(trim(email)) = ?", email).First(&identity).Error; err != nil {
		return models.Identity{}, err
	}
	return identity, nil
}

func (repo *IdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	return repo.database.WithContext(ctx).Create(identity).Error
}

func (repo *IdentityRepository) MarkConfirmed(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	return repo.database.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ? AND confirmed_at IS NULL", id).
		Update("confirmed_at", confirmedAt).Error
}

func (repo *IdentityRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return repo.database.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}
