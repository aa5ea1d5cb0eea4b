package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleDoctor       Role = "doctor"
	RoleMedicalStore Role = "medical_store"
	RolePatient      Role = "patient"
)

func (role Role) Valid() bool {
	switch role {
	case RoleDoctor, RoleMedicalStore, RolePatient:
		return true
	default:
		return false
	}
}

// UserRole maps an account to its single role. user_id is unique, so an
// identity never has more than one resolvable role.
type UserRole struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex" json:"user_id"`
	Role      Role      `gorm:"not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

func (entry *UserRole) BeforeCreate(*gorm.DB) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return nil
}
