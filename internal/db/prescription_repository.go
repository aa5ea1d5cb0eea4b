package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

type PrescriptionRepository struct {
	database *gorm.DB
}

func NewPrescriptionRepository(database *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{database: database}
}

func (repo *PrescriptionRepository) Create(ctx context.Context, prescription *models.Prescription) error {
	return repo.database.WithContext(ctx).Create(prescription).Error
}

func (repo *PrescriptionRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.Prescription, error) {
	prescriptions := make([]models.Prescription, 0)
	if err := repo.database.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Find(&prescriptions).Error; err != nil {
		return nil, err
	}
	return prescriptions, nil
}

// ListByPatient returns the patient's prescriptions newest first. With
// doctorIssuedOnly, self-added entries (doctor_id IS NULL) are skipped.
func (repo *PrescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, doctorIssuedOnly bool) ([]models.Prescription, error) {
	query := repo.database.WithContext(ctx).Where("patient_id = ?", patientID)
	if doctorIssuedOnly {
		query = query.Where("doctor_id IS NOT NULL")
	}

	prescriptions := make([]models.Prescription, 0)
	if err := query.Order("created_at DESC").Find(&prescriptions).Error; err != nil {
		return nil, err
	}
	return prescriptions, nil
}

func (repo *PrescriptionRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Prescription, error) {
	prescriptions := make([]models.Prescription, 0, len(ids))
	if len(ids) == 0 {
		return prescriptions, nil
	}
	if err := repo.database.WithContext(ctx).Where("id IN ?", ids).Find(&prescriptions).Error; err != nil {
		return nil, err
	}
	return prescriptions, nil
}
