package api

import (
	"strings"

	"chat-backend/auth"

	"github.com/gofiber/fiber/v3"
)

const userIDLocal = "user_id"

// RequireUser resolves the bearer credential to a user id and stores it in
// the request locals. Missing or invalid credentials end the request with a
// 401.
func RequireUser(verifier auth.Verifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "No token was provided.",
			})
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid authorization header format.",
			})
		}

		userID, err := verifier.UserID(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid or expired token.",
			})
		}

		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

func requestUserID(c fiber.Ctx) int64 {
	userID, _ := c.Locals(userIDLocal).(int64)
	return userID
}
