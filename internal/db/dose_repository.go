package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

type DoseRepository struct {
	database *gorm.DB
}

func NewDoseRepository(database *gorm.DB) *DoseRepository {
	return &DoseRepository{database: database}
}

// ListByPatientRange returns records with scheduled_time in [from, to).
func (repo *DoseRepository) ListByPatientRange(ctx context.Context, patientID uuid.UUID, from time.Time, to time.Time) ([]models.DoseRecord, error) {
	records := make([]models.DoseRecord, 0)
	if err := repo.database.WithContext(ctx).
		Where("patient_id = ? AND scheduled_time >= ? AND scheduled_time < ?", patientID, from.UTC(), to.UTC()).
		Order("scheduled_time ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *DoseRepository) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.DoseRecord, error) {
	records := make([]models.DoseRecord, 0)
	if err := repo.database.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("scheduled_time DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *DoseRepository) Create(ctx context.Context, record *models.DoseRecord) error {
	return repo.database.WithContext(ctx).Create(record).Error
}

func (repo *DoseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DoseStatus, takenAt *time.Time) error {
	return repo.database.WithContext(ctx).
		Model(&models.DoseRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   status,
			"taken_at": takenAt,
		}).Error
}
