package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

const recentPrescriptionWindow = 7 * 24 * time.Hour

type DoctorDashboard struct {
	TotalPrescriptions  int `json:"total_prescriptions"`
	UniquePatients      int `json:"unique_patients"`
	RecentPrescriptions int `json:"recent_prescriptions"`
}

type DoctorHistoryEntry struct {
	ID               uuid.UUID                     `json:"id"`
	Notes            string                        `json:"notes"`
	CreatedAt        time.Time                     `json:"created_at"`
	RemindersEnabled bool                          `json:"reminders_enabled"`
	Patient          *PersonSummary                `json:"patient"`
	Medicines        []models.PrescriptionMedicine `json:"medicines"`
	StoreStatus      *StoreStatus                  `json:"store_status"`
}

type PatientPrescriptionEntry struct {
	ID          uuid.UUID                     `json:"id"`
	DoctorName  string                        `json:"doctor_name"`
	Notes       string                        `json:"notes"`
	CreatedAt   time.Time                     `json:"created_at"`
	Medicines   []models.PrescriptionMedicine `json:"medicines"`
	StoreStatus *StoreStatus                  `json:"store_status"`
}

func (service *PrescriptionService) DoctorDashboard(ctx context.Context, doctorID uuid.UUID) (DoctorDashboard, error) {
	prescriptions, err := service.prescriptions.ListByDoctor(ctx, doctorID)
	if err != nil {
		return DoctorDashboard{}, fmt.Errorf("list doctor prescriptions: %w", err)
	}

	since := service.now().Add(-recentPrescriptionWindow)
	patients := make(map[uuid.UUID]struct{}, len(prescriptions))
	dashboard := DoctorDashboard{TotalPrescriptions: len(prescriptions)}
	for _, prescription := range prescriptions {
		patients[prescription.PatientID] = struct{}{}
		if prescription.CreatedAt.After(since) {
			dashboard.RecentPrescriptions++
		}
	}
	dashboard.UniquePatients = len(patients)
	return dashboard, nil
}

// DoctorHistory filters by patient name or e-mail and medicine name when query
// is non-empty.
func (service *PrescriptionService) DoctorHistory(ctx context.Context, doctorID uuid.UUID, query string) ([]DoctorHistoryEntry, error) {
	prescriptions, err := service.prescriptions.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list doctor prescriptions: %w", err)
	}

	ids := prescriptionIDs(prescriptions)
	medicines := medicinesByPrescription(ctx, service.medicines, ids)
	assignments := firstAssignments(ctx, service.assignments, ids)

	personIDs := make([]uuid.UUID, 0, len(prescriptions)+len(assignments))
	for _, prescription := range prescriptions {
		personIDs = append(personIDs, prescription.PatientID)
	}
	for _, assignment := range assignments {
		personIDs = append(personIDs, assignment.StoreID)
	}
	profiles := profilesByID(ctx, service.profiles, personIDs)

	needle := normalizeSearch(query)
	entries := make([]DoctorHistoryEntry, 0, len(prescriptions))
	for _, prescription := range prescriptions {
		entry := DoctorHistoryEntry{
			ID:               prescription.ID,
			Notes:            prescription.Notes,
			CreatedAt:        prescription.CreatedAt,
			RemindersEnabled: prescription.RemindersEnabled,
			Medicines:        nonNilMedicines(medicines[prescription.ID]),
		}
		if patient, ok := profiles[prescription.PatientID]; ok {
			entry.Patient = &PersonSummary{ID: patient.ID, FullName: patient.FullName, Email: patient.Email}
		}
		assignment, assigned := assignments[prescription.ID]
		entry.StoreStatus = storeStatus(profiles, assignment, assigned)

		if needle != "" && !doctorHistoryMatches(entry, needle) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// doctorHistoryMatches looks at the patient's name and the medicine names.
// E-mail addresses are not searched.
func doctorHistoryMatches(entry DoctorHistoryEntry, needle string) bool {
	if entry.Patient != nil && containsFold(entry.Patient.FullName, needle) {
		return true
	}
	return anyMedicineMatches(entry.Medicines, needle)
}

// PatientPrescriptions lists doctor-issued prescriptions only.
func (service *PrescriptionService) PatientPrescriptions(ctx context.Context, patientID uuid.UUID) ([]PatientPrescriptionEntry, error) {
	prescriptions, err := service.prescriptions.ListByPatient(ctx, patientID, true)
	if err != nil {
		return nil, fmt.Errorf("list patient prescriptions: %w", err)
	}

	ids := prescriptionIDs(prescriptions)
	medicines := medicinesByPrescription(ctx, service.medicines, ids)
	assignments := firstAssignments(ctx, service.assignments, ids)

	personIDs := make([]uuid.UUID, 0, len(prescriptions)+len(assignments))
	for _, prescription := range prescriptions {
		if prescription.DoctorID != nil {
			personIDs = append(personIDs, *prescription.DoctorID)
		}
	}
	for _, assignment := range assignments {
		personIDs = append(personIDs, assignment.StoreID)
	}
	profiles := profilesByID(ctx, service.profiles, personIDs)

	entries := make([]PatientPrescriptionEntry, 0, len(prescriptions))
	for _, prescription := range prescriptions {
		assignment, assigned := assignments[prescription.ID]
		entries = append(entries, PatientPrescriptionEntry{
			ID:          prescription.ID,
			DoctorName:  nameOr(profiles, prescription.DoctorID, FallbackDoctorName),
			Notes:       prescription.Notes,
			CreatedAt:   prescription.CreatedAt,
			Medicines:   nonNilMedicines(medicines[prescription.ID]),
			StoreStatus: storeStatus(profiles, assignment, assigned),
		})
	}
	return entries, nil
}
