package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

type MedicineRepository struct {
	database *gorm.DB
}

func NewMedicineRepository(database *gorm.DB) *MedicineRepository {
	return &MedicineRepository{database: database}
}

// CreateBatch inserts all rows in one statement.
func (repo *MedicineRepository) CreateBatch(ctx context.Context, medicines []models.PrescriptionMedicine) error {
	if len(medicines) == 0 {
		return nil
	}
	return repo.database.WithContext(ctx).Create(&medicines).Error
}

func (repo *MedicineRepository) ListByPrescriptionIDs(ctx context.Context, prescriptionIDs []uuid.UUID) ([]models.PrescriptionMedicine, error) {
	medicines := make([]models.PrescriptionMedicine, 0)
	if len(prescriptionIDs) == 0 {
		return medicines, nil
	}
	if err := repo.database.WithContext(ctx).
		Where("prescription_id IN ?", prescriptionIDs).
		Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}

func (repo *MedicineRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.PrescriptionMedicine, error) {
	medicines := make([]models.PrescriptionMedicine, 0, len(ids))
	if len(ids) == 0 {
		return medicines, nil
	}
	if err := repo.database.WithContext(ctx).Where("id IN ?", ids).Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}
