package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	AssignmentPending AssignmentStatus = "pending"
	AssignmentReady   AssignmentStatus = "ready"
	AssignmentGiven   AssignmentStatus = "given"
)

func (status AssignmentStatus) Valid() bool {
	switch status {
	case AssignmentPending, AssignmentReady, AssignmentGiven:
		return true
	default:
		return false
	}
}

// StoreAssignment links a prescription to the medical store fulfilling it.
type StoreAssignment struct {
	ID             uuid.UUID        `gorm:"primaryKey" json:"id"`
	PrescriptionID uuid.UUID        `gorm:"not null;index" json:"prescription_id"`
	StoreID        uuid.UUID        `gorm:"not null;index" json:"store_id"`
	Status         AssignmentStatus `gorm:"not null;default:pending" json:"status"`
	AssignedAt     time.Time        `gorm:"not null" json:"assigned_at"`
}

func (StoreAssignment) TableName() string {
	return "store_prescriptions"
}

func (assignment *StoreAssignment) BeforeCreate(*gorm.DB) error {
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	if assignment.Status == "" {
		assignment.Status = AssignmentPending
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	return nil
}
