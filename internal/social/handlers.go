package social

import (
	"github.com/gofiber/fiber/v2"

	"backend-routeshare/internal/auth"
)

// RegisterUserRoutes mounts the caller's profile endpoints.
func RegisterUserRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		profile, err := svc.Profile(c.UserContext(), auth.UserID(c), auth.UserEmail(c))
		if err != nil {
			return err
		}
		return c.JSON(profile)
	})

	r.Put("/me", authMiddleware, func(c *fiber.Ctx) error {
		var req ProfileUpdate
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		profile, err := svc.UpdateProfile(c.UserContext(), auth.UserID(c), auth.UserEmail(c), req)
		if err != nil {
			return err
		}
		return c.JSON(profile)
	})
}

// RegisterFriendRoutes mounts friend request endpoints.
func RegisterFriendRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Use(authMiddleware)

	r.Get("/", func(c *fiber.Ctx) error {
		friends, err := svc.Friends(c.UserContext(), auth.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(friends)
	})

	r.Get("/requests", func(c *fiber.Ctx) error {
		requests, err := svc.PendingRequests(c.UserContext(), auth.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(requests)
	})

	r.Post("/requests", func(c *fiber.Ctx) error {
		var req FriendRequestInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		created, err := svc.SendFriendRequest(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Post("/requests/:id/accept", func(c *fiber.Ctx) error {
		req, err := svc.AcceptFriendRequest(c.UserContext(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(req)
	})

	r.Post("/requests/:id/decline", func(c *fiber.Ctx) error {
		req, err := svc.DeclineFriendRequest(c.UserContext(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(req)
	})
}
