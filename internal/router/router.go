package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/submitech/submitech-api/internal/config"
	"github.com/submitech/submitech-api/internal/handler"
	"github.com/submitech/submitech-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	PlagiarismHandler   *handler.PlagiarismHandler
	NotificationHandler *handler.NotificationHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	if deps.AssignmentHandler != nil {
		assignmentGroup := api.Group("/assignments")
		deps.AssignmentHandler.Register(assignmentGroup)

		if deps.PlagiarismHandler != nil {
			deps.PlagiarismHandler.Register(assignmentGroup)
		}
	}

	if deps.SubmissionHandler != nil {
		submissionGroup := api.Group("/submissions")
		deps.SubmissionHandler.Register(submissionGroup)
	}

	if deps.NotificationHandler != nil {
		notificationGroup := api.Group("/notifications")
		deps.NotificationHandler.Register(notificationGroup)
	}
}
