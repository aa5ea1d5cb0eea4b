package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

type ProfileRepository interface {
	FindByEmail(ctx context.Context, email string) (models.Profile, bool, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, prescription *models.Prescription) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]models.Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, doctorIssuedOnly bool) ([]models.Prescription, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Prescription, error)
}

type MedicineRepository interface {
	CreateBatch(ctx context.Context, medicines []models.PrescriptionMedicine) error
	ListByPrescriptionIDs(ctx context.Context, prescriptionIDs []uuid.UUID) ([]models.PrescriptionMedicine, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.PrescriptionMedicine, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.StoreAssignment) error
	FindByIDForStore(ctx context.Context, id uuid.UUID, storeID uuid.UUID) (models.StoreAssignment, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, status models.AssignmentStatus) ([]models.StoreAssignment, error)
	ListByPrescriptionIDs(ctx context.Context, prescriptionIDs []uuid.UUID) ([]models.StoreAssignment, error)
	UpdateStatusForStore(ctx context.Context, id uuid.UUID, storeID uuid.UUID, status models.AssignmentStatus) (bool, error)
}

type DoseRepository interface {
	ListByPatientRange(ctx context.Context, patientID uuid.UUID, from time.Time, to time.Time) ([]models.DoseRecord, error)
	ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.DoseRecord, error)
	Create(ctx context.Context, record *models.DoseRecord) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.DoseStatus, takenAt *time.Time) error
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Notifier inserts a notification row and pushes it to the user's live bell.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title string, message string, kind string) (models.Notification, error)
}
