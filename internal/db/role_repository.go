package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

type RoleRepository struct {
	database *gorm.DB
}

func NewRoleRepository(database *gorm.DB) *RoleRepository {
	return &RoleRepository{database: database}
}

func (repo *RoleRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (models.UserRole, bool, error) {
	entry := models.UserRole{}
	result := repo.database.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&entry)
	if result.Error != nil {
		return models.UserRole{}, false, result.Error
	}
	return entry, result.RowsAffected > 0, nil
}

func (repo *RoleRepository) Create(ctx context.Context, entry *models.UserRole) error {
	return repo.database.WithContext(ctx).Create(entry).Error
}
