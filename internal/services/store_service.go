package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/models"
)

var (
	ErrInvalidAssignmentStatus = errors.New("invalid assignment status")
	ErrAssignmentNotFound      = errors.New("assignment not found")
)

const (
	storeUpdateTitle         = "Prescription Update"
	WarningStatusNotNotified = "Patient could not be notified about the status change"
)

type StoreEntry struct {
	ID             uuid.UUID                     `json:"id"`
	PrescriptionID uuid.UUID                     `json:"prescription_id"`
	Status         models.AssignmentStatus       `json:"status"`
	AssignedAt     time.Time                     `json:"assigned_at"`
	DoctorName     string                        `json:"doctor_name"`
	PatientName    string                        `json:"patient_name"`
	Notes          string                        `json:"notes"`
	Medicines      []models.PrescriptionMedicine `json:"medicines"`
}

type StoreCounts struct {
	Pending int `json:"pending"`
	Ready   int `json:"ready"`
	Given   int `json:"given"`
}

type StoreDashboard struct {
	Counts        StoreCounts  `json:"counts"`
	Prescriptions []StoreEntry `json:"prescriptions"`
}

type StatusUpdateResult struct {
	Assignment models.StoreAssignment `json:"assignment"`
	Message    string                 `json:"message"`
	Warnings   []string               `json:"warnings,omitempty"`
}

type StoreService struct {
	prescriptions PrescriptionRepository
	medicines     MedicineRepository
	assignments   AssignmentRepository
	profiles      ProfileRepository
	notifier      Notifier
}

func NewStoreService(
	prescriptions PrescriptionRepository,
	medicines MedicineRepository,
	assignments AssignmentRepository,
	profiles ProfileRepository,
	notifier Notifier,
) *StoreService {
	return &StoreService{
		prescriptions: prescriptions,
		medicines:     medicines,
		assignments:   assignments,
		profiles:      profiles,
		notifier:      notifier,
	}
}

func (service *StoreService) Dashboard(ctx context.Context, storeID uuid.UUID) (StoreDashboard, error) {
	entries, err := service.entries(ctx, storeID, "")
	if err != nil {
		return StoreDashboard{}, err
	}

	dashboard := StoreDashboard{Prescriptions: entries}
	for _, entry := range entries {
		switch entry.Status {
		case models.AssignmentPending:
			dashboard.Counts.Pending++
		case models.AssignmentReady:
			dashboard.Counts.Ready++
		case models.AssignmentGiven:
			dashboard.Counts.Given++
		}
	}
	return dashboard, nil
}

// History lists given prescriptions, optionally filtered by patient or doctor
// name. Medicine names are not searched here.
func (service *StoreService) History(ctx context.Context, storeID uuid.UUID, query string) ([]StoreEntry, error) {
	entries, err := service.entries(ctx, storeID, models.AssignmentGiven)
	if err != nil {
		return nil, err
	}

	needle := normalizeSearch(query)
	if needle == "" {
		return entries, nil
	}
	filtered := make([]StoreEntry, 0, len(entries))
	for _, entry := range entries {
		if containsFold(entry.PatientName, needle) || containsFold(entry.DoctorName, needle) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

func (service *StoreService) entries(ctx context.Context, storeID uuid.UUID, status models.AssignmentStatus) ([]StoreEntry, error) {
	assignments, err := service.assignments.ListByStore(ctx, storeID, status)
	if err != nil {
		return nil, fmt.Errorf("list store assignments: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.PrescriptionID)
	}
	prescriptions := service.prescriptionsByID(ctx, ids)
	medicines := medicinesByPrescription(ctx, service.medicines, ids)

	personIDs := make([]uuid.UUID, 0, 2*len(prescriptions))
	for _, prescription := range prescriptions {
		if prescription.DoctorID != nil {
			personIDs = append(personIDs, *prescription.DoctorID)
		}
		personIDs = append(personIDs, prescription.PatientID)
	}
	profiles := profilesByID(ctx, service.profiles, personIDs)

	entries := make([]StoreEntry, 0, len(assignments))
	for _, assignment := range assignments {
		entry := StoreEntry{
			ID:             assignment.ID,
			PrescriptionID: assignment.PrescriptionID,
			Status:         assignment.Status,
			AssignedAt:     assignment.AssignedAt,
			DoctorName:     FallbackName,
			PatientName:    FallbackName,
			Medicines:      nonNilMedicines(medicines[assignment.PrescriptionID]),
		}
		if prescription, ok := prescriptions[assignment.PrescriptionID]; ok {
			patientID := prescription.PatientID
			entry.DoctorName = nameOr(profiles, prescription.DoctorID, FallbackName)
			entry.PatientName = nameOr(profiles, &patientID, FallbackName)
			entry.Notes = prescription.Notes
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (service *StoreService) prescriptionsByID(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]models.Prescription {
	byID := make(map[uuid.UUID]models.Prescription)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return byID
	}

	rows, err := service.prescriptions.ListByIDs(ctx, ids)
	if err != nil {
		log.Printf("views: load prescriptions failed: %v", err)
		return byID
	}
	for _, row := range rows {
		byID[row.ID] = row
	}
	return byID
}

// UpdateStatus allows any transition between the three statuses. Only the
// store the prescription was assigned to may change it.
func (service *StoreService) UpdateStatus(ctx context.Context, storeID uuid.UUID, assignmentID uuid.UUID, status models.AssignmentStatus) (StatusUpdateResult, error) {
	if !status.Valid() {
		return StatusUpdateResult{}, ErrInvalidAssignmentStatus
	}

	assignment, err := service.assignments.FindByIDForStore(ctx, assignmentID, storeID)
	if err != nil {
		if db.IsNotFound(err) {
			return StatusUpdateResult{}, ErrAssignmentNotFound
		}
		return StatusUpdateResult{}, fmt.Errorf("load assignment: %w", err)
	}

	changed, err := service.assignments.UpdateStatusForStore(ctx, assignmentID, storeID, status)
	if err != nil {
		return StatusUpdateResult{}, fmt.Errorf("update assignment status: %w", err)
	}
	if !changed {
		return StatusUpdateResult{}, ErrAssignmentNotFound
	}
	assignment.Status = status

	result := StatusUpdateResult{
		Assignment: assignment,
		Message:    fmt.Sprintf("Status updated to %s", status),
	}
	if err := service.notifyPatient(ctx, assignment); err != nil {
		log.Printf("store: notify patient for assignment %s failed: %v", assignment.ID, err)
		result.Warnings = append(result.Warnings, WarningStatusNotNotified)
	}
	return result, nil
}

func (service *StoreService) notifyPatient(ctx context.Context, assignment models.StoreAssignment) error {
	prescriptions, err := service.prescriptions.ListByIDs(ctx, []uuid.UUID{assignment.PrescriptionID})
	if err != nil {
		return err
	}
	if len(prescriptions) == 0 {
		return ErrAssignmentNotFound
	}

	_, err = service.notifier.Notify(ctx, prescriptions[0].PatientID, storeUpdateTitle, storeUpdateMessage(assignment.Status), models.NotificationStoreUpdate)
	return err
}

func storeUpdateMessage(status models.AssignmentStatus) string {
	switch status {
	case models.AssignmentReady:
		return "Your prescription is ready for pickup"
	case models.AssignmentGiven:
		return "Your prescription has been handed over"
	default:
		return "Your prescription is pending at the medical store"
	}
}
