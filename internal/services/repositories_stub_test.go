package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"gorm.io/gorm"
)

var errStubStorage = errors.New("storage unavailable")

// memoryStore backs every repository interface with plain slices.
type memoryStore struct {
	profiles      []models.Profile
	prescriptions []models.Prescription
	medicines     []models.PrescriptionMedicine
	assignments   []models.StoreAssignment
	doses         []models.DoseRecord
	notifications []models.Notification

	failProfileLookup    bool
	failMedicineInsert   bool
	failAssignmentInsert bool
	failNotification     bool
	failProfileList      bool

	writes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (store *memoryStore) addProfile(fullName string, email string) models.Profile {
	profile := models.Profile{ID: uuid.New(), FullName: fullName, Email: email, CreatedAt: time.Now().UTC()}
	store.profiles = append(store.profiles, profile)
	return profile
}

type profileRepoStub struct{ *memoryStore }

func (stub profileRepoStub) FindByEmail(_ context.Context, email string) (models.Profile, bool, error) {
	if stub.failProfileLookup {
		return models.Profile{}, false, errStubStorage
	}
	for _, profile := range stub.profiles {
		if profile.Email == email {
			return profile, true, nil
		}
	}
	return models.Profile{}, false, nil
}

func (stub profileRepoStub) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.Profile, error) {
	if stub.failProfileList {
		return nil, errStubStorage
	}
	rows := make([]models.Profile, 0)
	for _, profile := range stub.profiles {
		if containsID(ids, profile.ID) {
			rows = append(rows, profile)
		}
	}
	return rows, nil
}

type prescriptionRepoStub struct{ *memoryStore }

func (stub prescriptionRepoStub) Create(_ context.Context, prescription *models.Prescription) error {
	if prescription.ID == uuid.Nil {
		prescription.ID = uuid.New()
	}
	if prescription.CreatedAt.IsZero() {
		prescription.CreatedAt = time.Now().UTC()
	}
	stub.prescriptions = append(stub.prescriptions, *prescription)
	stub.writes++
	return nil
}

func (stub prescriptionRepoStub) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]models.Prescription, error) {
	rows := make([]models.Prescription, 0)
	for _, prescription := range stub.prescriptions {
		if prescription.DoctorID != nil && *prescription.DoctorID == doctorID {
			rows = append(rows, prescription)
		}
	}
	return newestFirst(rows), nil
}

func (stub prescriptionRepoStub) ListByPatient(_ context.Context, patientID uuid.UUID, doctorIssuedOnly bool) ([]models.Prescription, error) {
	rows := make([]models.Prescription, 0)
	for _, prescription := range stub.prescriptions {
		if prescription.PatientID != patientID {
			continue
		}
		if doctorIssuedOnly && prescription.DoctorID == nil {
			continue
		}
		rows = append(rows, prescription)
	}
	return newestFirst(rows), nil
}

func (stub prescriptionRepoStub) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.Prescription, error) {
	rows := make([]models.Prescription, 0)
	for _, prescription := range stub.prescriptions {
		if containsID(ids, prescription.ID) {
			rows = append(rows, prescription)
		}
	}
	return rows, nil
}

type medicineRepoStub struct{ *memoryStore }

func (stub medicineRepoStub) CreateBatch(_ context.Context, medicines []models.PrescriptionMedicine) error {
	if stub.failMedicineInsert {
		return errStubStorage
	}
	for _, medicine := range medicines {
		if medicine.ID == uuid.Nil {
			medicine.ID = uuid.New()
		}
		stub.medicines = append(stub.medicines, medicine)
	}
	stub.writes++
	return nil
}

func (stub medicineRepoStub) ListByPrescriptionIDs(_ context.Context, prescriptionIDs []uuid.UUID) ([]models.PrescriptionMedicine, error) {
	rows := make([]models.PrescriptionMedicine, 0)
	for _, medicine := range stub.medicines {
		if containsID(prescriptionIDs, medicine.PrescriptionID) {
			rows = append(rows, medicine)
		}
	}
	return rows, nil
}

func (stub medicineRepoStub) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.PrescriptionMedicine, error) {
	rows := make([]models.PrescriptionMedicine, 0)
	for _, medicine := range stub.medicines {
		if containsID(ids, medicine.ID) {
			rows = append(rows, medicine)
		}
	}
	return rows, nil
}

type assignmentRepoStub struct{ *memoryStore }

func (stub assignmentRepoStub) Create(_ context.Context, assignment *models.StoreAssignment) error {
	if stub.failAssignmentInsert {
		return errStubStorage
	}
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	if assignment.Status == "" {
		assignment.Status = models.AssignmentPending
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	stub.assignments = append(stub.assignments, *assignment)
	stub.writes++
	return nil
}

func (stub assignmentRepoStub) FindByIDForStore(_ context.Context, id uuid.UUID, storeID uuid.UUID) (models.StoreAssignment, error) {
	for _, assignment := range stub.assignments {
		if assignment.ID == id && assignment.StoreID == storeID {
			return assignment, nil
		}
	}
	return models.StoreAssignment{}, gorm.ErrRecordNotFound
}

func (stub assignmentRepoStub) ListByStore(_ context.Context, storeID uuid.UUID, status models.AssignmentStatus) ([]models.StoreAssignment, error) {
	rows := make([]models.StoreAssignment, 0)
	for _, assignment := range stub.assignments {
		if assignment.StoreID != storeID {
			continue
		}
		if status != "" && assignment.Status != status {
			continue
		}
		rows = append(rows, assignment)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].AssignedAt.After(rows[j].AssignedAt) })
	return rows, nil
}

func (stub assignmentRepoStub) ListByPrescriptionIDs(_ context.Context, prescriptionIDs []uuid.UUID) ([]models.StoreAssignment, error) {
	rows := make([]models.StoreAssignment, 0)
	for _, assignment := range stub.assignments {
		if containsID(prescriptionIDs, assignment.PrescriptionID) {
			rows = append(rows, assignment)
		}
	}
	return rows, nil
}

func (stub assignmentRepoStub) UpdateStatusForStore(_ context.Context, id uuid.UUID, storeID uuid.UUID, status models.AssignmentStatus) (bool, error) {
	for index := range stub.assignments {
		if stub.assignments[index].ID == id && stub.assignments[index].StoreID == storeID {
			stub.assignments[index].Status = status
			stub.writes++
			return true, nil
		}
	}
	return false, nil
}

type doseRepoStub struct{ *memoryStore }

func (stub doseRepoStub) ListByPatientRange(_ context.Context, patientID uuid.UUID, from time.Time, to time.Time) ([]models.DoseRecord, error) {
	rows := make([]models.DoseRecord, 0)
	for _, record := range stub.doses {
		if record.PatientID != patientID || record.ScheduledTime.Before(from) || !record.ScheduledTime.Before(to) {
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func (stub doseRepoStub) ListRecentByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]models.DoseRecord, error) {
	rows := make([]models.DoseRecord, 0)
	for _, record := range stub.doses {
		if record.PatientID == patientID {
			rows = append(rows, record)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ScheduledTime.After(rows[j].ScheduledTime) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (stub doseRepoStub) Create(_ context.Context, record *models.DoseRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	stub.doses = append(stub.doses, *record)
	stub.writes++
	return nil
}

func (stub doseRepoStub) UpdateStatus(_ context.Context, id uuid.UUID, status models.DoseStatus, takenAt *time.Time) error {
	for index := range stub.doses {
		if stub.doses[index].ID == id {
			value := status
			stub.doses[index].Status = &value
			stub.doses[index].TakenAt = takenAt
		}
	}
	stub.writes++
	return nil
}

type notificationRepoStub struct{ *memoryStore }

func (stub notificationRepoStub) Create(_ context.Context, notification *models.Notification) error {
	if stub.failNotification {
		return errStubStorage
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	stub.notifications = append(stub.notifications, *notification)
	stub.writes++
	return nil
}

func containsID(ids []uuid.UUID, needle uuid.UUID) bool {
	for _, id := range ids {
		if id == needle {
			return true
		}
	}
	return false
}

func newestFirst(rows []models.Prescription) []models.Prescription {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows
}

func (store *memoryStore) notificationService() *NotificationService {
	return NewNotificationService(notificationRepoStub{store}, nil)
}

func (store *memoryStore) prescriptionService() *PrescriptionService {
	return NewPrescriptionService(profileRepoStub{store}, prescriptionRepoStub{store}, medicineRepoStub{store}, assignmentRepoStub{store}, store.notificationService())
}

func (store *memoryStore) doseService(location *time.Location) *DoseService {
	return NewDoseService(prescriptionRepoStub{store}, medicineRepoStub{store}, doseRepoStub{store}, location)
}

func (store *memoryStore) storeService() *StoreService {
	return NewStoreService(prescriptionRepoStub{store}, medicineRepoStub{store}, assignmentRepoStub{store}, profileRepoStub{store}, store.notificationService())
}

func doseStatus(status models.DoseStatus) *models.DoseStatus {
	return &status
}
