package handlers

import "github.com/gofiber/fiber/v2"

// Routes groups the handlers mounted under /api.
type Routes struct {
	Components *ComponentHandler
	Builds     *SessionBuildHandler
	AutoBuild  *AutoBuildHandler

	// AutoBuildGuards run before the automatic build handler
	AutoBuildGuards []fiber.Handler
}

// Register mounts every API route on router.
func (r *Routes) Register(router fiber.Router) {
	components := router.Group("/components")
	components.Get("/", r.Components.List)
	components.Get("/search", r.Components.Search)
	components.Get("/compatible", r.Components.Compatible)
	components.Post("/", r.Components.Create)
	components.Post("/replacement", r.Components.Replacement)
	components.Put("/:id", r.Components.Update)
	components.Delete("/:id", r.Components.Delete)

	sessions := router.Group("/sessions/:sessionId")
	sessions.Delete("/", r.Builds.DeleteSession)
	sessions.Get("/builds", r.Builds.List)
	sessions.Post("/builds", r.Builds.CreateOrUpdate)
	sessions.Post("/builds/validate", r.Builds.Validate)
	sessions.Post("/builds/step/validate", r.Builds.ValidateStep)
	sessions.Get("/builds/:buildId", r.Builds.Get)
	sessions.Delete("/builds/:buildId", r.Builds.Delete)
	sessions.Get("/builds/:buildId/export", r.Builds.Export)

	autoBuild := append(append([]fiber.Handler{}, r.AutoBuildGuards...), r.AutoBuild.Generate)
	router.Post("/automatic-build", autoBuild...)
}
