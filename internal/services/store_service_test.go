package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
)

type storeFixture struct {
	store    *memoryStore
	storeID  uuid.UUID
	patient  models.Profile
	doctor   models.Profile
	assigned []models.StoreAssignment
}

func newStoreFixture() storeFixture {
	store := newMemoryStore()
	pharmacy := store.addProfile("Corner Pharmacy", "store@example.com")
	patient := store.addProfile("Pat Lee", "pat@example.com")
	doctor := store.addProfile("Dr. House", "house@example.com")
	base := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

	statuses := []models.AssignmentStatus{models.AssignmentPending, models.AssignmentReady, models.AssignmentGiven, models.AssignmentGiven}
	fixture := storeFixture{store: store, storeID: pharmacy.ID, patient: patient, doctor: doctor}
	for index, status := range statuses {
		prescription := models.Prescription{ID: uuid.New(), DoctorID: &doctor.ID, PatientID: patient.ID, CreatedAt: base}
		store.prescriptions = append(store.prescriptions, prescription)
		store.medicines = append(store.medicines, models.PrescriptionMedicine{ID: uuid.New(), PrescriptionID: prescription.ID, MedicineName: "Medicine"})
		assignment := models.StoreAssignment{
			ID:             uuid.New(),
			PrescriptionID: prescription.ID,
			StoreID:        pharmacy.ID,
			Status:         status,
			AssignedAt:     base.Add(time.Duration(index) * time.Hour),
		}
		store.assignments = append(store.assignments, assignment)
		fixture.assigned = append(fixture.assigned, assignment)
	}
	return fixture
}

func TestStoreDashboardCounts(t *testing.T) {
	fixture := newStoreFixture()
	otherStore := uuid.New()
	fixture.store.assignments = append(fixture.store.assignments, models.StoreAssignment{
		ID: uuid.New(), PrescriptionID: uuid.New(), StoreID: otherStore, Status: models.AssignmentPending,
	})

	dashboard, err := fixture.store.storeService().Dashboard(context.Background(), fixture.storeID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	expected := StoreCounts{Pending: 1, Ready: 1, Given: 2}
	if dashboard.Counts != expected {
		t.Fatalf("expected counts %+v, got %+v", expected, dashboard.Counts)
	}
	if len(dashboard.Prescriptions) != 4 {
		t.Fatalf("expected four entries, got %d", len(dashboard.Prescriptions))
	}
	first := dashboard.Prescriptions[0]
	if first.ID != fixture.assigned[3].ID {
		t.Fatal("expected newest assignment first")
	}
	if first.DoctorName != "Dr. House" || first.PatientName != "Pat Lee" {
		t.Fatalf("expected resolved names, got %q / %q", first.DoctorName, first.PatientName)
	}
}

func TestStoreEntriesFallBackToUnknown(t *testing.T) {
	store := newMemoryStore()
	storeID := uuid.New()
	store.assignments = []models.StoreAssignment{{ID: uuid.New(), PrescriptionID: uuid.New(), StoreID: storeID, Status: models.AssignmentPending}}

	dashboard, err := store.storeService().Dashboard(context.Background(), storeID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	entry := dashboard.Prescriptions[0]
	if entry.DoctorName != FallbackName || entry.PatientName != FallbackName {
		t.Fatalf("expected fallback names, got %q / %q", entry.DoctorName, entry.PatientName)
	}
	if entry.Medicines == nil {
		t.Fatal("expected empty medicine list")
	}
}

func TestStoreHistoryListsGivenAndFiltersByName(t *testing.T) {
	fixture := newStoreFixture()
	fixture.store.medicines[2].MedicineName = "Warfarin"
	service := fixture.store.storeService()

	all, err := service.History(context.Background(), fixture.storeID, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected only given entries, got %d", len(all))
	}
	for _, entry := range all {
		if entry.Status != models.AssignmentGiven {
			t.Fatalf("expected given status, got %s", entry.Status)
		}
	}

	byMedicine, err := service.History(context.Background(), fixture.storeID, "warf")
	if err != nil {
		t.Fatalf("history search: %v", err)
	}
	if len(byMedicine) != 0 {
		t.Fatalf("expected medicine names to be ignored by store search, got %d", len(byMedicine))
	}

	byPatient, err := service.History(context.Background(), fixture.storeID, "LEE")
	if err != nil {
		t.Fatalf("history search: %v", err)
	}
	if len(byPatient) != 2 {
		t.Fatalf("expected patient search to match both entries, got %d", len(byPatient))
	}

	byDoctor, err := service.History(context.Background(), fixture.storeID, "house")
	if err != nil {
		t.Fatalf("history search: %v", err)
	}
	if len(byDoctor) != 2 {
		t.Fatalf("expected doctor search to match both entries, got %d", len(byDoctor))
	}

	none, err := service.History(context.Background(), fixture.storeID, "nobody")
	if err != nil {
		t.Fatalf("history search: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %d", len(none))
	}
}

func TestStoreUpdateStatusNotifiesPatient(t *testing.T) {
	fixture := newStoreFixture()
	target := fixture.assigned[0]

	result, err := fixture.store.storeService().UpdateStatus(context.Background(), fixture.storeID, target.ID, models.AssignmentReady)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if result.Message != "Status updated to ready" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if fixture.store.assignments[0].Status != models.AssignmentReady {
		t.Fatalf("expected stored status ready, got %s", fixture.store.assignments[0].Status)
	}
	if len(fixture.store.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(fixture.store.notifications))
	}
	notification := fixture.store.notifications[0]
	if notification.UserID != fixture.patient.ID || notification.Type != models.NotificationStoreUpdate {
		t.Fatalf("expected store_update notification for patient, got %+v", notification)
	}
}

func TestStoreUpdateStatusAllowsBackwardTransition(t *testing.T) {
	fixture := newStoreFixture()
	target := fixture.assigned[2]

	if _, err := fixture.store.storeService().UpdateStatus(context.Background(), fixture.storeID, target.ID, models.AssignmentPending); err != nil {
		t.Fatalf("expected given -> pending to be allowed, got %v", err)
	}
	if fixture.store.assignments[2].Status != models.AssignmentPending {
		t.Fatalf("expected pending, got %s", fixture.store.assignments[2].Status)
	}
}

func TestStoreUpdateStatusScopedToStore(t *testing.T) {
	fixture := newStoreFixture()
	target := fixture.assigned[0]
	service := fixture.store.storeService()

	if _, err := service.UpdateStatus(context.Background(), uuid.New(), target.ID, models.AssignmentGiven); !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("expected ErrAssignmentNotFound for other store, got %v", err)
	}
	if fixture.store.assignments[0].Status != models.AssignmentPending {
		t.Fatal("expected foreign store update to leave status unchanged")
	}
	if _, err := service.UpdateStatus(context.Background(), fixture.storeID, target.ID, models.AssignmentStatus("lost")); !errors.Is(err, ErrInvalidAssignmentStatus) {
		t.Fatalf("expected ErrInvalidAssignmentStatus, got %v", err)
	}
}

func TestStoreUpdateStatusNotificationFailureIsWarning(t *testing.T) {
	fixture := newStoreFixture()
	fixture.store.failNotification = true

	result, err := fixture.store.storeService().UpdateStatus(context.Background(), fixture.storeID, fixture.assigned[1].ID, models.AssignmentGiven)
	if err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != WarningStatusNotNotified {
		t.Fatalf("expected notification warning, got %v", result.Warnings)
	}
}
