package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

var (
	ErrInvalidDoseStatus = errors.New("invalid dose status")
	ErrMedicineNotFound  = errors.New("medicine not found")
)

const DoseHistoryLimit = 100

type TodayMedicine struct {
	models.PrescriptionMedicine
	DoseTrackingID *uuid.UUID         `json:"dose_tracking_id"`
	DoseStatus     *models.DoseStatus `json:"dose_status"`
}

type TodayStats struct {
	Prescriptions int `json:"prescriptions"`
	Taken         int `json:"taken"`
	Missed        int `json:"missed"`
}

type PatientToday struct {
	Date      string          `json:"date"`
	Medicines []TodayMedicine `json:"medicines"`
	Stats     TodayStats      `json:"stats"`
}

type DoseEntry struct {
	MedicineName  string             `json:"medicine_name"`
	Status        *models.DoseStatus `json:"status"`
	ScheduledTime time.Time          `json:"scheduled_time"`
}

type DoseDay struct {
	Date  string      `json:"date"`
	Doses []DoseEntry `json:"doses"`
}

type DoseHistory struct {
	Adherence int       `json:"adherence"`
	Days      []DoseDay `json:"days"`
}

type TrackDoseResult struct {
	Record  models.DoseRecord `json:"record"`
	Created bool              `json:"created"`
	Message string            `json:"message"`
}

type DoseService struct {
	prescriptions PrescriptionRepository
	medicines     MedicineRepository
	doses         DoseRepository
	location      *time.Location
	now           func() time.Time
}

func NewDoseService(prescriptions PrescriptionRepository, medicines MedicineRepository, doses DoseRepository, location *time.Location) *DoseService {
	if location == nil {
		location = time.UTC
	}
	return &DoseService{
		prescriptions: prescriptions,
		medicines:     medicines,
		doses:         doses,
		location:      location,
		now:           time.Now,
	}
}

func (service *DoseService) Today(ctx context.Context, patientID uuid.UUID) (PatientToday, error) {
	now := service.now()
	dayStart, dayEnd := DayRange(now, service.location)

	prescriptions, err := service.prescriptions.ListByPatient(ctx, patientID, false)
	if err != nil {
		return PatientToday{}, fmt.Errorf("list patient prescriptions: %w", err)
	}
	medicines := medicinesByPrescription(ctx, service.medicines, prescriptionIDs(prescriptions))

	records, err := service.doses.ListByPatientRange(ctx, patientID, dayStart, dayEnd)
	if err != nil {
		return PatientToday{}, fmt.Errorf("list today's doses: %w", err)
	}

	today := PatientToday{
		Date:      dayStart.Format("2006-01-02"),
		Medicines: make([]TodayMedicine, 0),
		Stats:     TodayStats{Prescriptions: len(prescriptions)},
	}
	for _, prescription := range prescriptions {
		for _, medicine := range medicines[prescription.ID] {
			entry := TodayMedicine{PrescriptionMedicine: medicine}
			if record, ok := recordForMedicine(records, medicine.ID); ok {
				id := record.ID
				entry.DoseTrackingID = &id
				entry.DoseStatus = record.Status
			}
			today.Medicines = append(today.Medicines, entry)
		}
	}
	for _, record := range records {
		switch {
		case record.HasStatus(models.DoseTaken):
			today.Stats.Taken++
		case record.HasStatus(models.DoseMissed):
			today.Stats.Missed++
		}
	}
	return today, nil
}

// TrackDose reads today's records and then updates or inserts without any
// lock or unique key, so two concurrent calls for the same medicine can both
// insert. Readers take the first record per medicine.
func (service *DoseService) TrackDose(ctx context.Context, patientID uuid.UUID, medicineID uuid.UUID, status models.DoseStatus) (TrackDoseResult, error) {
	if !status.Valid() {
		return TrackDoseResult{}, ErrInvalidDoseStatus
	}
	if err := service.ensureMedicineOwnedBy(ctx, patientID, medicineID); err != nil {
		return TrackDoseResult{}, err
	}

	now := service.now().UTC()
	dayStart, dayEnd := DayRange(now, service.location)
	records, err := service.doses.ListByPatientRange(ctx, patientID, dayStart, dayEnd)
	if err != nil {
		return TrackDoseResult{}, fmt.Errorf("list today's doses: %w", err)
	}

	var takenAt *time.Time
	if status == models.DoseTaken {
		takenAt = &now
	}
	result := TrackDoseResult{Message: doseMessage(status)}

	if existing, ok := recordForMedicine(records, medicineID); ok {
		if err := service.doses.UpdateStatus(ctx, existing.ID, status, takenAt); err != nil {
			return TrackDoseResult{}, fmt.Errorf("update dose: %w", err)
		}
		existing.Status = &status
		existing.TakenAt = takenAt
		result.Record = existing
		return result, nil
	}

	record := models.DoseRecord{
		PrescriptionMedicineID: medicineID,
		PatientID:              patientID,
		ScheduledTime:          now,
		Status:                 &status,
		TakenAt:                takenAt,
	}
	if err := service.doses.Create(ctx, &record); err != nil {
		return TrackDoseResult{}, fmt.Errorf("insert dose: %w", err)
	}
	result.Record = record
	result.Created = true
	return result, nil
}

func (service *DoseService) ensureMedicineOwnedBy(ctx context.Context, patientID uuid.UUID, medicineID uuid.UUID) error {
	medicines, err := service.medicines.ListByIDs(ctx, []uuid.UUID{medicineID})
	if err != nil {
		return fmt.Errorf("load medicine: %w", err)
	}
	if len(medicines) == 0 {
		return ErrMedicineNotFound
	}

	prescriptions, err := service.prescriptions.ListByIDs(ctx, []uuid.UUID{medicines[0].PrescriptionID})
	if err != nil {
		return fmt.Errorf("load prescription: %w", err)
	}
	if len(prescriptions) == 0 || prescriptions[0].PatientID != patientID {
		return ErrMedicineNotFound
	}
	return nil
}

// History groups the latest records by local calendar day, newest day first.
func (service *DoseService) History(ctx context.Context, patientID uuid.UUID) (DoseHistory, error) {
	records, err := service.doses.ListRecentByPatient(ctx, patientID, DoseHistoryLimit)
	if err != nil {
		return DoseHistory{}, fmt.Errorf("list dose history: %w", err)
	}

	medicineIDs := make([]uuid.UUID, 0, len(records))
	for _, record := range records {
		medicineIDs = append(medicineIDs, record.PrescriptionMedicineID)
	}
	names := service.medicineNames(ctx, medicineIDs)

	history := DoseHistory{Adherence: Adherence(records), Days: make([]DoseDay, 0)}
	dayIndex := make(map[string]int)
	for _, record := range records {
		date := DateAtLocation(record.ScheduledTime, service.location).Format("2006-01-02")
		index, ok := dayIndex[date]
		if !ok {
			index = len(history.Days)
			dayIndex[date] = index
			history.Days = append(history.Days, DoseDay{Date: date, Doses: make([]DoseEntry, 0)})
		}

		name, ok := names[record.PrescriptionMedicineID]
		if !ok || name == "" {
			name = FallbackName
		}
		history.Days[index].Doses = append(history.Days[index].Doses, DoseEntry{
			MedicineName:  name,
			Status:        record.Status,
			ScheduledTime: record.ScheduledTime,
		})
	}
	return history, nil
}

func (service *DoseService) medicineNames(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return names
	}

	rows, err := service.medicines.ListByIDs(ctx, ids)
	if err != nil {
		log.Printf("views: load medicine names failed: %v", err)
		return names
	}
	for _, row := range rows {
		names[row.ID] = row.MedicineName
	}
	return names
}

func recordForMedicine(records []models.DoseRecord, medicineID uuid.UUID) (models.DoseRecord, bool) {
	for _, record := range records {
		if record.PrescriptionMedicineID == medicineID {
			return record, true
		}
	}
	return models.DoseRecord{}, false
}

func doseMessage(status models.DoseStatus) string {
	if status == models.DoseTaken {
		return "Marked as taken ✅"
	}
	return "Marked as missed"
}
