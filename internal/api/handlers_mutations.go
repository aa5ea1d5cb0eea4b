package api

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/models"
	"github.com/terraincognita07/medremind/internal/services"
)

type trackDoseInput struct {
	MedicineID string `json:"medicine_id" form:"medicine_id"`
	Status     string `json:"status" form:"status"`
}

type assignmentStatusInput struct {
	Status string `json:"status" form:"status"`
}

func (handler *Handler) CreatePrescription(c *fiber.Ctx) error {
	input := services.CreatePrescriptionInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	result, err := handler.prescriptions.CreatePrescription(c.UserContext(), currentUserID(c), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPatientNotFound):
			return apiError(c, fiber.StatusNotFound, services.MessagePatientNotFound)
		case errors.Is(err, services.ErrPatientEmailRequired), services.IsPrescriptionValidationError(err):
			return apiError(c, fiber.StatusBadRequest, err.Error())
		}
		return flowError(c, "Failed to create prescription", result, err)
	}

	return okMessage(c, fiber.StatusCreated, result.Message, withWarnings(fiber.Map{
		"prescription": result.Prescription,
	}, result.Warnings))
}

func (handler *Handler) AddPrescription(c *fiber.Ctx) error {
	input := services.AddPrescriptionInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	result, err := handler.prescriptions.AddPrescription(c.UserContext(), currentUserID(c), input)
	if err != nil {
		if services.IsPrescriptionValidationError(err) {
			return apiError(c, fiber.StatusBadRequest, err.Error())
		}
		return flowError(c, "Failed to add prescription", result, err)
	}

	return okMessage(c, fiber.StatusCreated, result.Message, fiber.Map{"prescription": result.Prescription})
}

func (handler *Handler) TrackDose(c *fiber.Ctx) error {
	input := trackDoseInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	medicineID, err := uuid.Parse(input.MedicineID)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid medicine id")
	}

	result, err := handler.doses.TrackDose(c.UserContext(), currentUserID(c), medicineID, models.DoseStatus(input.Status))
	switch {
	case errors.Is(err, services.ErrInvalidDoseStatus):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrMedicineNotFound):
		return apiError(c, fiber.StatusNotFound, err.Error())
	case err != nil:
		log.Printf("api: track dose failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "Failed to update dose")
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return okMessage(c, status, result.Message, fiber.Map{"record": result.Record})
}

func (handler *Handler) UpdateAssignmentStatus(c *fiber.Ctx) error {
	assignmentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid assignment id")
	}
	input := assignmentStatusInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	result, err := handler.stores.UpdateStatus(c.UserContext(), currentUserID(c), assignmentID, models.AssignmentStatus(input.Status))
	switch {
	case errors.Is(err, services.ErrInvalidAssignmentStatus):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAssignmentNotFound):
		return apiError(c, fiber.StatusNotFound, err.Error())
	case err != nil:
		log.Printf("api: update assignment %s failed: %v", assignmentID, err)
		return apiError(c, fiber.StatusInternalServerError, "Failed to update status")
	}

	return okMessage(c, fiber.StatusOK, result.Message, withWarnings(fiber.Map{
		"assignment": result.Assignment,
	}, result.Warnings))
}

// flowError reports a write failure. When the prescription row already
// exists it is returned so the caller knows what was kept.
func flowError(c *fiber.Ctx, message string, result services.FlowResult, err error) error {
	log.Printf("api: %s: %v", message, err)
	payload := fiber.Map{"error": message}
	if result.Prescription.ID != uuid.Nil {
		payload["prescription"] = result.Prescription
	}
	return c.Status(fiber.StatusInternalServerError).JSON(payload)
}
