package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoseStatus string

const (
	DoseTaken  DoseStatus = "taken"
	DoseMissed DoseStatus = "missed"
)

func (status DoseStatus) Valid() bool {
	return status == DoseTaken || status == DoseMissed
}

// DoseRecord is one tracked occurrence of a scheduled dose. Status stays nil
// until the patient marks it.
type DoseRecord struct {
	ID                     uuid.UUID   `gorm:"primaryKey" json:"id"`
	PrescriptionMedicineID uuid.UUID   `gorm:"not null;index" json:"prescription_medicine_id"`
	PatientID              uuid.UUID   `gorm:"not null;index" json:"patient_id"`
	ScheduledTime          time.Time   `gorm:"not null" json:"scheduled_time"`
	Status                 *DoseStatus `json:"status"`
	TakenAt                *time.Time  `json:"taken_at"`
}

func (DoseRecord) TableName() string {
	return "dose_tracking"
}

func (record *DoseRecord) BeforeCreate(*gorm.DB) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return nil
}

func (record DoseRecord) HasStatus(status DoseStatus) bool {
	return record.Status != nil && *record.Status == status
}
