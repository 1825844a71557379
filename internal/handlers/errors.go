package handlers

import (
	"errors"
	"log"

	"pcbuilder/internal/services"
	"pcbuilder/internal/store"

	"github.com/gofiber/fiber/v2"
)

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

func validationFailed(c *fiber.Ctx, fields ...services.FieldError) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "Validation error",
		"details": fields,
	})
}

// respondError maps a service error onto the HTTP taxonomy. Anything that is
// not validation, not-found, duplicate or compatibility is logged under tag
// and answered with a generic 500 carrying fallback.
func respondError(c *fiber.Ctx, tag string, err error, fallback string) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return validationFailed(c, verr.Fields...)
	}

	var cerr *services.CompatibilityError
	if errors.As(err, &cerr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Build has compatibility issues",
			"issues": cerr.Issues,
		})
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, services.ErrBuildNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Build not found"})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Component not found"})
	case errors.Is(err, store.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A component with this model name already exists",
		})
	}

	log.Printf("❌ [%s] %s: %v", tag, fallback, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fallback,
	})
}
