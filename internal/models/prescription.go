package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FrequencyOnceDaily      = "once_daily"
	FrequencyTwiceDaily     = "twice_daily"
	FrequencyThriceDaily    = "thrice_daily"
	FrequencyFourTimesDaily = "four_times_daily"
	FrequencyAsNeeded       = "as_needed"
	FrequencyWeekly         = "weekly"
)

const (
	TimingBeforeFood = "before_food"
	TimingAfterFood  = "after_food"
	TimingWithFood   = "with_food"
	TimingAnyTime    = "any_time"
)

const (
	TimeOfDayMorning   = "morning"
	TimeOfDayAfternoon = "afternoon"
	TimeOfDayEvening   = "evening"
	TimeOfDayNight     = "night"
)

// Prescription has a nil DoctorID when the patient entered it themselves.
type Prescription struct {
	ID               uuid.UUID  `gorm:"primaryKey" json:"id"`
	DoctorID         *uuid.UUID `json:"doctor_id"`
	PatientID        uuid.UUID  `gorm:"not null;index" json:"patient_id"`
	Notes            string     `json:"notes"`
	RemindersEnabled bool       `gorm:"not null;default:false" json:"reminders_enabled"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (prescription *Prescription) BeforeCreate(*gorm.DB) error {
	if prescription.ID == uuid.Nil {
		prescription.ID = uuid.New()
	}
	return nil
}

type PrescriptionMedicine struct {
	ID             uuid.UUID `gorm:"primaryKey" json:"id"`
	PrescriptionID uuid.UUID `gorm:"not null;index" json:"prescription_id"`
	MedicineName   string    `gorm:"not null" json:"medicine_name"`
	Dosage         string    `gorm:"not null" json:"dosage"`
	Frequency      string    `gorm:"not null" json:"frequency"`
	Duration       string    `json:"duration"`
	Timing         string    `gorm:"not null" json:"timing"`
	TimeOfDay      []string  `gorm:"serializer:json" json:"time_of_day"`
}

func (medicine *PrescriptionMedicine) BeforeCreate(*gorm.DB) error {
	if medicine.ID == uuid.Nil {
		medicine.ID = uuid.New()
	}
	return nil
}
