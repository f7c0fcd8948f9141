package auth

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	r.Get("/jwt/verify", authMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(User{ID: UserID(c), Email: UserEmail(c)})
	})
}
