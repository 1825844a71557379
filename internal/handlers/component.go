package handlers

import (
	"log"
	"strconv"
	"strings"

	"pcbuilder/internal/models"
	"pcbuilder/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ComponentHandler serves the component catalog
type ComponentHandler struct {
	catalog    *services.CatalogService
	validation *services.ValidationService
	source     services.RecommendationSource
}

// NewComponentHandler creates a new component handler
func NewComponentHandler(catalog *services.CatalogService, validation *services.ValidationService, source services.RecommendationSource) *ComponentHandler {
	return &ComponentHandler{
		catalog:    catalog,
		validation: validation,
		source:     source,
	}
}

// List returns every component
// GET /api/components
func (h *ComponentHandler) List(c *fiber.Ctx) error {
	components, err := h.catalog.List(c.UserContext())
	if err != nil {
		return respondError(c, "COMPONENTS", err, "Error fetching components")
	}
	return c.JSON(components)
}

// Search filters the catalog through the query cache
// GET /api/components/search?type=&brand=&price_min=&price_max=
func (h *ComponentHandler) Search(c *fiber.Ctx) error {
	filter := models.ComponentFilter{
		Type:  strings.TrimSpace(c.Query("type")),
		Brand: strings.TrimSpace(c.Query("brand")),
	}

	verr := &services.ValidationError{}
	filter.PriceMin = parsePriceQuery(c, "price_min", verr)
	filter.PriceMax = parsePriceQuery(c, "price_max", verr)
	if len(verr.Fields) > 0 {
		return validationFailed(c, verr.Fields...)
	}

	components, hit, err := h.catalog.Search(c.UserContext(), filter)
	if err != nil {
		return respondError(c, "COMPONENTS", err, "Error searching components")
	}

	if hit {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	return c.JSON(components)
}

func parsePriceQuery(c *fiber.Ctx, name string, verr *services.ValidationError) *float64 {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		verr.Add(name, "must be a non-negative number")
		return nil
	}
	return &v
}

// Create adds a component to the catalog
// POST /api/components
func (h *ComponentHandler) Create(c *fiber.Ctx) error {
	var component models.Component
	if err := c.BodyParser(&component); err != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := h.catalog.Create(c.UserContext(), &component)
	if err != nil {
		return respondError(c, "COMPONENTS", err, "Error adding component")
	}

	log.Printf("✅ [COMPONENTS] Added %s %s", created.Type, created.ModelName)
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Update patches a component
// PUT /api/components/:id
func (h *ComponentHandler) Update(c *fiber.Ctx) error {
	var patch models.ComponentPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updated, err := h.catalog.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respondError(c, "COMPONENTS", err, "Error updating component")
	}
	return c.JSON(updated)
}

// Delete removes a component
// DELETE /api/components/:id
func (h *ComponentHandler) Delete(c *fiber.Ctx) error {
	if err := h.catalog.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, "COMPONENTS", err, "Error deleting component")
	}
	return c.JSON(fiber.Map{"message": "Component deleted successfully"})
}

// Compatible lists catalog parts of a type that fit a saved build
// GET /api/components/compatible?type=&sessionId=&buildId=
func (h *ComponentHandler) Compatible(c *fiber.Ctx) error {
	verr := &services.ValidationError{}
	componentType := strings.TrimSpace(c.Query("type"))
	sessionID := strings.TrimSpace(c.Query("sessionId"))
	buildID := strings.TrimSpace(c.Query("buildId"))
	if componentType == "" {
		verr.Add("type", "is required")
	}
	if sessionID == "" {
		verr.Add("sessionId", "is required")
	}
	if buildID == "" {
		verr.Add("buildId", "is required")
	}
	if len(verr.Fields) > 0 {
		return validationFailed(c, verr.Fields...)
	}

	components, err := h.validation.CompatibleCandidates(c.UserContext(), sessionID, buildID, componentType)
	if err != nil {
		return respondError(c, "COMPONENTS", err, "Error filtering compatible components")
	}
	return c.JSON(components)
}

type replacementRequest struct {
	Type         string `json:"type"`
	CurrentModel string `json:"currentModel"`
	Issue        string `json:"issue"`
}

// Replacement asks the recommendation source for a part that resolves an issue
// POST /api/components/replacement
func (h *ComponentHandler) Replacement(c *fiber.Ctx) error {
	var req replacementRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	verr := &services.ValidationError{}
	if strings.TrimSpace(req.Type) == "" {
		verr.Add("type", "is required")
	}
	if strings.TrimSpace(req.CurrentModel) == "" {
		verr.Add("currentModel", "is required")
	}
	if strings.TrimSpace(req.Issue) == "" {
		verr.Add("issue", "is required")
	}
	if len(verr.Fields) > 0 {
		return validationFailed(c, verr.Fields...)
	}

	suggestion, err := h.source.SuggestReplacement(c.UserContext(), req.Type, req.CurrentModel, req.Issue)
	if err != nil {
		return respondError(c, "REPLACEMENT", err, "Failed to suggest a replacement")
	}
	return c.JSON(fiber.Map{
		"type":      req.Type,
		"current":   req.CurrentModel,
		"modelName": suggestion,
	})
}
