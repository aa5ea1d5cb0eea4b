package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity is the credential record owned by the session store. Sign-up
// attributes stay here until the account is provisioned with a profile and a
// role.
type Identity struct {
	ID            uuid.UUID  `gorm:"primaryKey"`
	Email         string     `gorm:"uniqueIndex;not null"`
	PasswordHash  string     `gorm:"not null"`
	FullName      string     `gorm:"not null"`
	Phone         string     `gorm:"not null"`
	RequestedRole Role       `gorm:"not null"`
	ConfirmedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

func (identity *Identity) BeforeCreate(*gorm.DB) error {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	return nil
}

func (identity *Identity) Confirmed() bool {
	return identity.ConfirmedAt != nil
}
