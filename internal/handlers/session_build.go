package handlers

import (
	"fmt"
	"strings"

	"pcbuilder/internal/models"
	"pcbuilder/internal/services"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SessionBuildHandler serves the builds saved under a session
type SessionBuildHandler struct {
	sessions   *services.SessionBuildService
	validation *services.ValidationService
	export     *services.ExportService
}

// NewSessionBuildHandler creates a new session build handler
func NewSessionBuildHandler(sessions *services.SessionBuildService, validation *services.ValidationService, export *services.ExportService) *SessionBuildHandler {
	return &SessionBuildHandler{
		sessions:   sessions,
		validation: validation,
		export:     export,
	}
}

// List returns the builds of a session
// GET /api/sessions/:sessionId/builds
func (h *SessionBuildHandler) List(c *fiber.Ctx) error {
	builds, err := h.sessions.ListBuilds(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		return respondError(c, "BUILDS", err, "Error fetching builds")
	}
	return c.JSON(builds)
}

// Get returns one build
// GET /api/sessions/:sessionId/builds/:buildId
func (h *SessionBuildHandler) Get(c *fiber.Ctx) error {
	build, err := h.sessions.GetBuild(c.UserContext(), c.Params("sessionId"), c.Params("buildId"))
	if err != nil {
		return respondError(c, "BUILDS", err, "Error fetching build")
	}
	return c.JSON(build)
}

// CreateOrUpdate saves a build, replacing one with the same buildId
// POST /api/sessions/:sessionId/builds
func (h *SessionBuildHandler) CreateOrUpdate(c *fiber.Ctx) error {
	var input services.BuildInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.sessions.CreateOrUpdate(c.UserContext(), c.Params("sessionId"), input)
	if err != nil {
		return respondError(c, "BUILDS", err, "Error creating or updating build")
	}
	return c.JSON(session)
}

// Delete removes one build
// DELETE /api/sessions/:sessionId/builds/:buildId
func (h *SessionBuildHandler) Delete(c *fiber.Ctx) error {
	if err := h.sessions.DeleteBuild(c.UserContext(), c.Params("sessionId"), c.Params("buildId")); err != nil {
		return respondError(c, "BUILDS", err, "Error deleting build")
	}
	return c.JSON(fiber.Map{"message": "Build deleted successfully"})
}

// DeleteSession removes a session and all of its builds
// DELETE /api/sessions/:sessionId
func (h *SessionBuildHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.sessions.DeleteSession(c.UserContext(), c.Params("sessionId")); err != nil {
		return respondError(c, "BUILDS", err, "Error deleting session")
	}
	return c.JSON(fiber.Map{"message": "Session deleted successfully"})
}

// Validate checks every build of the session. Responds 422 when any build
// has an issue.
// POST /api/sessions/:sessionId/builds/validate
func (h *SessionBuildHandler) Validate(c *fiber.Ctx) error {
	reports, err := h.validation.ValidateSession(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		return respondError(c, "VALIDATE", err, "Error validating builds")
	}

	for _, report := range reports {
		if !report.Compatible {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":      "Build has compatibility issues",
				"compatible": false,
				"builds":     reports,
			})
		}
	}
	return c.JSON(fiber.Map{
		"message":    "Build is fully compatible!",
		"compatible": true,
		"builds":     reports,
	})
}

type stepRequest struct {
	BuildID   string            `json:"buildId"`
	Component *models.Component `json:"component"`
}

// ValidateStep reports the issues a proposed part would add to a build
// POST /api/sessions/:sessionId/builds/step/validate
func (h *SessionBuildHandler) ValidateStep(c *fiber.Ctx) error {
	var req stepRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Component == nil {
		return validationFailed(c, services.FieldError{Field: "component", Message: "is required"})
	}

	step := services.StepCandidate{BuildID: strings.TrimSpace(req.BuildID)}
	if len(req.Component.Specs) > 0 || req.Component.Socket != "" {
		step.Component = req.Component
	} else {
		step.Type = req.Component.Type
		step.ModelName = req.Component.ModelName
	}

	issues, err := h.validation.ValidateStep(c.UserContext(), c.Params("sessionId"), step)
	if err != nil {
		return respondError(c, "VALIDATE", err, "Error validating component")
	}
	return c.JSON(fiber.Map{
		"compatible": len(issues) == 0,
		"issues":     issues,
	})
}

// Export downloads a build as an XLSX workbook
// GET /api/sessions/:sessionId/builds/:buildId/export
func (h *SessionBuildHandler) Export(c *fiber.Ctx) error {
	buildID := c.Params("buildId")
	data, err := h.export.ExportBuild(c.UserContext(), c.Params("sessionId"), buildID)
	if err != nil {
		return respondError(c, "EXPORT", err, "Error exporting build")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="build-%s.xlsx"`, buildID))
	return c.Send(data)
}
