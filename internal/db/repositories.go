package db

import "gorm.io/gorm"

type Repositories struct {
	Identities    *IdentityRepository
	Profiles      *ProfileRepository
	Roles         *RoleRepository
	Prescriptions *PrescriptionRepository
	Medicines     *MedicineRepository
	Assignments   *AssignmentRepository
	Doses         *DoseRepository
	Notifications *NotificationRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Identities:    NewIdentityRepository(database),
		Profiles:      NewProfileRepository(database),
		Roles:         NewRoleRepository(database),
		Prescriptions: NewPrescriptionRepository(database),
		Medicines:     NewMedicineRepository(database),
		Assignments:   NewAssignmentRepository(database),
		Doses:         NewDoseRepository(database),
		Notifications: NewNotificationRepository(database),
	}
}
