package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medremind/internal/models"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	registerScreenRoutes(app, handler)
	registerAPIRoutes(app, handler)
}

func registerScreenRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/favicon.ico", sendNoContent)

	app.Get("/", handler.Authenticate, handler.Root)
	app.Get("/auth", handler.Authenticate, handler.AuthScreen)

	doctor := app.Group("/doctor", handler.Authenticate, handler.RequireRole(models.RoleDoctor))
	doctor.Get("", handler.DoctorDashboard)
	doctor.Get("/prescribe", handler.DoctorPrescribe)
	doctor.Get("/history", handler.DoctorHistory)

	store := app.Group("/store", handler.Authenticate, handler.RequireRole(models.RoleMedicalStore))
	store.Get("", handler.StoreDashboard)
	store.Get("/history", handler.StoreHistory)

	patient := app.Group("/patient", handler.Authenticate, handler.RequireRole(models.RolePatient))
	patient.Get("", handler.PatientToday)
	patient.Get("/prescriptions", handler.PatientPrescriptions)
	patient.Get("/add", handler.PatientAdd)
	patient.Get("/history", handler.PatientHistory)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api", handler.Authenticate)

	auth := api.Group("/auth")
	auth.Post("/sign-up", handler.SignUp)
	auth.Post("/sign-in", handler.SignIn)
	auth.Get("/confirm", handler.ConfirmEmail)
	auth.Get("/me", handler.Me)
	auth.Post("/sign-out", handler.SessionRequired, handler.SignOut)
	auth.Post("/refresh", handler.SessionRequired, handler.Refresh)

	doctor := api.Group("/doctor", handler.RequireRole(models.RoleDoctor))
	doctor.Post("/prescriptions", handler.CreatePrescription)

	patient := api.Group("/patient", handler.RequireRole(models.RolePatient))
	patient.Post("/prescriptions", handler.AddPrescription)
	patient.Post("/doses", handler.TrackDose)

	store := api.Group("/store", handler.RequireRole(models.RoleMedicalStore))
	store.Patch("/assignments/:id", handler.UpdateAssignmentStatus)

	notifications := api.Group("/notifications", handler.SessionRequired)
	notifications.Get("", handler.ListNotifications)
	notifications.Get("/stream", handler.StreamNotifications)
	notifications.Post("/read-all", handler.MarkAllNotificationsRead)
	notifications.Post("/:id/read", handler.MarkNotificationRead)
}

func sendNoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
