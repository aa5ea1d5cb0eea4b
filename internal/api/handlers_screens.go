package api

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/auth"
	"github.com/terraincognita07/medremind/internal/models"
	"github.com/terraincognita07/medremind/internal/services"
)

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Root sends the caller to the home screen of their role.
func (handler *Handler) Root(c *fiber.Ctx) error {
	state := currentState(c)
	if state.Loading {
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"loading": true})
	}
	if !state.Authenticated() {
		return c.Redirect(auth.AuthPath, fiber.StatusSeeOther)
	}
	return c.Redirect(auth.HomePath(state.Role), fiber.StatusSeeOther)
}

func (handler *Handler) AuthScreen(c *fiber.Ctx) error {
	state := currentState(c)
	if !state.Loading && state.Authenticated() {
		if home := auth.HomePath(state.Role); home != auth.AuthPath {
			return c.Redirect(home, fiber.StatusSeeOther)
		}
	}
	return c.JSON(fiber.Map{
		"screen":    "auth",
		"confirmed": c.Query("confirmed") == "1",
		"roles": []services.Option{
			{Value: string(models.RoleDoctor), Label: "Doctor"},
			{Value: string(models.RoleMedicalStore), Label: "Medical Store"},
			{Value: string(models.RolePatient), Label: "Patient"},
		},
	})
}

func (handler *Handler) DoctorDashboard(c *fiber.Ctx) error {
	dashboard, err := handler.prescriptions.DoctorDashboard(c.UserContext(), currentUserID(c))
	if err != nil {
		return screenError(c, "doctor dashboard", err)
	}
	return c.JSON(withProfile(c, fiber.Map{"screen": "doctor_dashboard", "stats": dashboard}))
}

func (handler *Handler) DoctorPrescribe(c *fiber.Ctx) error {
	return c.JSON(withProfile(c, fiber.Map{"screen": "doctor_prescribe", "form": services.NewPrescriptionForm()}))
}

func (handler *Handler) DoctorHistory(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	entries, err := handler.prescriptions.DoctorHistory(c.UserContext(), currentUserID(c), query)
	if err != nil {
		return screenError(c, "doctor history", err)
	}
	return c.JSON(withProfile(c, fiber.Map{"screen": "doctor_history", "query": query, "prescriptions": entries}))
}

func (handler *Handler) StoreDashboard(c *fiber.Ctx) error {
	dashboard, err := handler.stores.Dashboard(c.UserContext(), currentUserID(c))
	if err != nil {
		return screenError(c, "store dashboard", err)
	}
	return c.JSON(withProfile(c, fiber.Map{
		"screen":        "store_dashboard",
		"counts":        dashboard.Counts,
		"prescriptions": dashboard.Prescriptions,
	}))
}

func (handler *Handler) StoreHistory(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	entries, err := handler.stores.History(c.UserContext(), currentUserID(c), query)
	if err != nil {
		return screenError(c, "store history", err)
	}
	return c.JSON(withProfile(c, fiber.Map{"screen": "store_history", "query": query, "prescriptions": entries}))
}

func (handler *Handler) PatientToday(c *fiber.Ctx) error {
	today, err := handler.doses.Today(c.UserContext(), currentUserID(c))
	if err != nil {
		return screenError(c, "patient dashboard", err)
	}
	return c.JSON(withProfile(c, fiber.Map{
		"screen":    "patient_dashboard",
		"date":      today.Date,
		"medicines": today.Medicines,
		"stats":     today.Stats,
	}))
}

func (handler *Handler) PatientPrescriptions(c *fiber.Ctx) error {
	entries, err := handler.prescriptions.PatientPrescriptions(c.UserContext(), currentUserID(c))
	if err != nil {
		return screenError(c, "patient prescriptions", err)
	}
	return c.JSON(withProfile(c, fiber.Map{"screen": "patient_prescriptions", "prescriptions": entries}))
}

func (handler *Handler) PatientAdd(c *fiber.Ctx) error {
	return c.JSON(withProfile(c, fiber.Map{"screen": "patient_add", "form": services.NewPrescriptionForm()}))
}

func (handler *Handler) PatientHistory(c *fiber.Ctx) error {
	history, err := handler.doses.History(c.UserContext(), currentUserID(c))
	if err != nil {
		return screenError(c, "dose history", err)
	}
	return c.JSON(withProfile(c, fiber.Map{
		"screen":    "patient_history",
		"adherence": history.Adherence,
		"days":      history.Days,
	}))
}

func currentUserID(c *fiber.Ctx) uuid.UUID {
	state := currentState(c)
	if state.Session == nil {
		return uuid.Nil
	}
	return state.Session.UserID
}

func withProfile(c *fiber.Ctx, payload fiber.Map) fiber.Map {
	state := currentState(c)
	payload["role"] = state.Role
	payload["profile"] = state.Profile
	return payload
}

func screenError(c *fiber.Ctx, screen string, err error) error {
	log.Printf("api: load %s failed: %v", screen, err)
	return apiError(c, fiber.StatusInternalServerError, "failed to load "+screen)
}
