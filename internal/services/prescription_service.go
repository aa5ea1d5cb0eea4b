package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

var (
	ErrPatientEmailRequired = errors.New("patient email is required")
	ErrPatientNotFound      = errors.New("patient not found")
)

const (
	MessagePatientNotFound     = "Patient not found with that email"
	MessagePrescriptionCreated = "Prescription created successfully!"
	MessagePrescriptionAdded   = "Prescription added!"

	WarningStoreNotFound         = "Medical store not found, prescription created without store assignment"
	WarningStoreAssignmentFailed = "Store assignment could not be saved"
	WarningPatientNotNotified    = "Patient notification could not be sent"

	newPrescriptionTitle   = "New Prescription"
	newPrescriptionMessage = "You have a new prescription from your doctor"
)

type CreatePrescriptionInput struct {
	PatientEmail     string          `json:"patient_email"`
	StoreEmail       string          `json:"store_email"`
	Notes            string          `json:"notes"`
	RemindersEnabled bool            `json:"reminders_enabled"`
	Medicines        []MedicineInput `json:"medicines"`
}

type AddPrescriptionInput struct {
	Notes     string          `json:"notes"`
	Medicines []MedicineInput `json:"medicines"`
}

type FlowResult struct {
	Prescription models.Prescription `json:"prescription"`
	Message      string              `json:"message"`
	Warnings     []string            `json:"warnings,omitempty"`
}

type PrescriptionService struct {
	profiles      ProfileRepository
	prescriptions PrescriptionRepository
	medicines     MedicineRepository
	assignments   AssignmentRepository
	notifier      Notifier
	now           func() time.Time
}

func NewPrescriptionService(
	profiles ProfileRepository,
	prescriptions PrescriptionRepository,
	medicines MedicineRepository,
	assignments AssignmentRepository,
	notifier Notifier,
) *PrescriptionService {
	return &PrescriptionService{
		profiles:      profiles,
		prescriptions: prescriptions,
		medicines:     medicines,
		assignments:   assignments,
		notifier:      notifier,
		now:           time.Now,
	}
}

// CreatePrescription runs the doctor flow as independent sequential writes.
// Nothing is rolled back: when a write after the prescription insert fails the
// prescription stays and the error is returned alongside the partial result.
func (service *PrescriptionService) CreatePrescription(ctx context.Context, doctorID uuid.UUID, input CreatePrescriptionInput) (FlowResult, error) {
	medicines, err := NormalizeMedicines(input.Medicines)
	if err != nil {
		return FlowResult{}, err
	}
	patientEmail := strings.ToLower(strings.TrimSpace(input.PatientEmail))
	if patientEmail == "" {
		return FlowResult{}, ErrPatientEmailRequired
	}

	patient, found, err := service.profiles.FindByEmail(ctx, patientEmail)
	if err != nil {
		return FlowResult{}, fmt.Errorf("find patient: %w", err)
	}
	if !found {
		return FlowResult{}, ErrPatientNotFound
	}

	prescription := models.Prescription{
		DoctorID:         &doctorID,
		PatientID:        patient.ID,
		Notes:            strings.TrimSpace(input.Notes),
		RemindersEnabled: input.RemindersEnabled,
	}
	if err := service.prescriptions.Create(ctx, &prescription); err != nil {
		return FlowResult{}, fmt.Errorf("insert prescription: %w", err)
	}

	result := FlowResult{Prescription: prescription}
	if err := service.insertMedicines(ctx, prescription.ID, medicines); err != nil {
		return result, err
	}

	storeEmail := strings.ToLower(strings.TrimSpace(input.StoreEmail))
	if storeEmail != "" {
		service.assignStore(ctx, &result, storeEmail)
	}

	if _, err := service.notifier.Notify(ctx, patient.ID, newPrescriptionTitle, newPrescriptionMessage, models.NotificationPrescription); err != nil {
		log.Printf("prescriptions: notify patient %s failed: %v", patient.ID, err)
		result.Warnings = append(result.Warnings, WarningPatientNotNotified)
	}

	result.Message = MessagePrescriptionCreated
	return result, nil
}

// A store lookup failure of any kind only downgrades to a warning.
func (service *PrescriptionService) assignStore(ctx context.Context, result *FlowResult, storeEmail string) {
	store, found, err := service.profiles.FindByEmail(ctx, storeEmail)
	if err != nil {
		log.Printf("prescriptions: find store %q failed: %v", storeEmail, err)
	}
	if err != nil || !found {
		result.Warnings = append(result.Warnings, WarningStoreNotFound)
		return
	}

	assignment := models.StoreAssignment{
		PrescriptionID: result.Prescription.ID,
		StoreID:        store.ID,
	}
	if err := service.assignments.Create(ctx, &assignment); err != nil {
		log.Printf("prescriptions: assign %s to store %s failed: %v", result.Prescription.ID, store.ID, err)
		result.Warnings = append(result.Warnings, WarningStoreAssignmentFailed)
	}
}

// AddPrescription records a patient's own prescription: no doctor, no store,
// no notification, reminders always on.
func (service *PrescriptionService) AddPrescription(ctx context.Context, patientID uuid.UUID, input AddPrescriptionInput) (FlowResult, error) {
	medicines, err := NormalizeMedicines(input.Medicines)
	if err != nil {
		return FlowResult{}, err
	}

	prescription := models.Prescription{
		PatientID:        patientID,
		Notes:            strings.TrimSpace(input.Notes),
		RemindersEnabled: true,
	}
	if err := service.prescriptions.Create(ctx, &prescription); err != nil {
		return FlowResult{}, fmt.Errorf("insert prescription: %w", err)
	}

	result := FlowResult{Prescription: prescription}
	if err := service.insertMedicines(ctx, prescription.ID, medicines); err != nil {
		return result, err
	}

	result.Message = MessagePrescriptionAdded
	return result, nil
}

func (service *PrescriptionService) insertMedicines(ctx context.Context, prescriptionID uuid.UUID, inputs []MedicineInput) error {
	rows := make([]models.PrescriptionMedicine, 0, len(inputs))
	for _, input := range inputs {
		rows = append(rows, models.PrescriptionMedicine{
			PrescriptionID: prescriptionID,
			MedicineName:   input.MedicineName,
			Dosage:         input.Dosage,
			Frequency:      input.Frequency,
			Duration:       input.Duration,
			Timing:         input.Timing,
			TimeOfDay:      input.TimeOfDay,
		})
	}
	if err := service.medicines.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("insert medicines: %w", err)
	}
	return nil
}
