package handlers

import (
	"pcbuilder/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AutoBuildHandler runs the automatic build pipeline
type AutoBuildHandler struct {
	assembler *services.BuildAssembler
}

// NewAutoBuildHandler creates a new automatic build handler
func NewAutoBuildHandler(assembler *services.BuildAssembler) *AutoBuildHandler {
	return &AutoBuildHandler{assembler: assembler}
}

// Generate asks for a recommended build, checks it and saves it to the session
// POST /api/automatic-build
func (h *AutoBuildHandler) Generate(c *fiber.Ctx) error {
	var req services.AutoBuildRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	build, err := h.assembler.Generate(c.UserContext(), req)
	if err != nil {
		return respondError(c, "AUTO-BUILD", err, "Failed to generate automatic build")
	}

	return c.JSON(fiber.Map{
		"message": "Automatic build created and saved",
		"build":   build,
	})
}
