// Package api is the HTTP surface of the chat backend, built on Fiber.
package api

import (
	"chat-backend/errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// NewApp assembles the Fiber application with the shared error handler.
// Application-layer failures come out as problem+json with their title and
// details map; everything else keeps Fiber's default behavior.
func NewApp(log *slog.Logger, handler *Handler, requireUser fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "chat-backend",
		ErrorHandler: newErrorHandler(log),
	})
	app.Use(recover.New())

	handler.SetupRoutes(app, requireUser)
	return app
}

func newErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		var appErr *errors.ApplicationError
		if e, ok := err.(*errors.ApplicationError); ok {
			appErr = e
		}
		if appErr != nil {
			content := fiber.Map{"title": appErr.Title}
			for key, value := range appErr.Details {
				content[key] = value
			}
			return c.Status(appErr.Status).JSON(content, "application/problem+json")
		}

		if e, ok := err.(*fiber.Error); ok {
			return c.Status(e.Code).JSON(fiber.Map{"detail": e.Message})
		}

		log.Error("Unhandled error", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Internal server error.",
		})
	}
}
