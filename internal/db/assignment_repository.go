package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

type AssignmentRepository struct {
	database *gorm.DB
}

func NewAssignmentRepository(database *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{database: database}
}

func (repo *AssignmentRepository) Create(ctx context.Context, assignment *models.StoreAssignment) error {
	return repo.database.WithContext(ctx).Create(assignment).Error
}

func (repo *AssignmentRepository) FindByIDForStore(ctx context.Context, id uuid.UUID, storeID uuid.UUID) (models.StoreAssignment, error) {
	assignment := models.StoreAssignment{}
	err := repo.database.WithContext(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&assignment).Error
	return assignment, err
}

// ListByStore returns the store's assignments newest first. An empty status
// matches every status.
func (repo *AssignmentRepository) ListByStore(ctx context.Context, storeID uuid.UUID, status models.AssignmentStatus) ([]models.StoreAssignment, error) {
	query := repo.database.WithContext(ctx).Where("store_id = ?", storeID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	assignments := make([]models.StoreAssignment, 0)
	if err := query.Order("assigned_at DESC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListByPrescriptionIDs returns assignments oldest first so callers can take
// the first one per prescription.
func (repo *AssignmentRepository) ListByPrescriptionIDs(ctx context.Context, prescriptionIDs []uuid.UUID) ([]models.StoreAssignment, error) {
	assignments := make([]models.StoreAssignment, 0)
	if len(prescriptionIDs) == 0 {
		return assignments, nil
	}
	if err := repo.database.WithContext(ctx).
		Where("prescription_id IN ?", prescriptionIDs).
		Order("assigned_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpdateStatusForStore reports whether a row owned by storeID was changed.
func (repo *AssignmentRepository) UpdateStatusForStore(ctx context.Context, id uuid.UUID, storeID uuid.UUID, status models.AssignmentStatus) (bool, error) {
	result := repo.database.WithContext(ctx).
		Model(&models.StoreAssignment{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
