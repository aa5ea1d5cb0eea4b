package services

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

const (
	FallbackDoctorName = "Unknown Doctor"
	FallbackName       = "Unknown"
)

type PersonSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
}

type StoreStatus struct {
	Status    models.AssignmentStatus `json:"status"`
	StoreName string                  `json:"store_name"`
}

// Dependent lookups log failures and return what they have so the view can
// fall back to placeholder labels.

func profilesByID(ctx context.Context, profiles ProfileRepository, ids []uuid.UUID) map[uuid.UUID]models.Profile {
	byID := make(map[uuid.UUID]models.Profile)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return byID
	}

	rows, err := profiles.ListByIDs(ctx, ids)
	if err != nil {
		log.Printf("views: load profiles failed: %v", err)
		return byID
	}
	for _, row := range rows {
		byID[row.ID] = row
	}
	return byID
}

func medicinesByPrescription(ctx context.Context, medicines MedicineRepository, prescriptionIDs []uuid.UUID) map[uuid.UUID][]models.PrescriptionMedicine {
	byPrescription := make(map[uuid.UUID][]models.PrescriptionMedicine)
	prescriptionIDs = uniqueIDs(prescriptionIDs)
	if len(prescriptionIDs) == 0 {
		return byPrescription
	}

	rows, err := medicines.ListByPrescriptionIDs(ctx, prescriptionIDs)
	if err != nil {
		log.Printf("views: load medicines failed: %v", err)
		return byPrescription
	}
	for _, row := range rows {
		byPrescription[row.PrescriptionID] = append(byPrescription[row.PrescriptionID], row)
	}
	return byPrescription
}

// firstAssignments keeps only the first assignment row per prescription.
func firstAssignments(ctx context.Context, assignments AssignmentRepository, prescriptionIDs []uuid.UUID) map[uuid.UUID]models.StoreAssignment {
	first := make(map[uuid.UUID]models.StoreAssignment)
	prescriptionIDs = uniqueIDs(prescriptionIDs)
	if len(prescriptionIDs) == 0 {
		return first
	}

	rows, err := assignments.ListByPrescriptionIDs(ctx, prescriptionIDs)
	if err != nil {
		log.Printf("views: load store assignments failed: %v", err)
		return first
	}
	for _, row := range rows {
		if _, exists := first[row.PrescriptionID]; !exists {
			first[row.PrescriptionID] = row
		}
	}
	return first
}

func prescriptionIDs(prescriptions []models.Prescription) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(prescriptions))
	for _, prescription := range prescriptions {
		ids = append(ids, prescription.ID)
	}
	return ids
}

func nonNilMedicines(medicines []models.PrescriptionMedicine) []models.PrescriptionMedicine {
	if medicines == nil {
		return []models.PrescriptionMedicine{}
	}
	return medicines
}

func nameOr(profiles map[uuid.UUID]models.Profile, id *uuid.UUID, fallback string) string {
	if id == nil {
		return fallback
	}
	profile, ok := profiles[*id]
	if !ok || strings.TrimSpace(profile.FullName) == "" {
		return fallback
	}
	return profile.FullName
}

func storeStatus(profiles map[uuid.UUID]models.Profile, assignment models.StoreAssignment, ok bool) *StoreStatus {
	if !ok {
		return nil
	}
	return &StoreStatus{
		Status:    assignment.Status,
		StoreName: nameOr(profiles, &assignment.StoreID, ""),
	}
}

func normalizeSearch(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func containsFold(value string, needle string) bool {
	return strings.Contains(strings.ToLower(value), needle)
}

func anyMedicineMatches(medicines []models.PrescriptionMedicine, needle string) bool {
	for _, medicine := range medicines {
		if containsFold(medicine.MedicineName, needle) {
			return true
		}
	}
	return false
}
