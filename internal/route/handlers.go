package route

import (
	"github.com/gofiber/fiber/v2"

	"backend-routeshare/internal/auth"
)

// FeedFilters echoes the filters applied to a listing. Geographic filters are
// accepted but not applied, so they are always null.
type FeedFilters struct {
	Lat     *float64  `json:"lat"`
	Lng     *float64  `json:"lng"`
	Radius  *float64  `json:"radius"`
	DestLat *float64  `json:"dest_lat"`
	DestLng *float64  `json:"dest_lng"`
	Tags    *string   `json:"tags"`
	Sort    SortOrder `json:"sort"`
}

type FeedResponse struct {
	Data    []RouteSummary `json:"data"`
	Count   int            `json:"count"`
	Filters FeedFilters    `json:"filters"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRouteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		id, err := svc.CreateRoute(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"route_id": id})
	})

	r.Get("/", func(c *fiber.Ctx) error {
		order := ParseSort(c.Query("sort"))
		tags := c.Query("tags")
		routes, err := svc.ListRoutes(c.UserContext(), tags, order)
		if err != nil {
			return err
		}

		filters := FeedFilters{Sort: order}
		if tags != "" {
			filters.Tags = &tags
		}
		return c.JSON(FeedResponse{Data: routes, Count: len(routes), Filters: filters})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		detail, err := svc.GetRoute(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(detail)
	})

	r.Get("/:id/geojson", func(c *fiber.Ctx) error {
		feature, err := svc.RouteGeoJSON(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		body, err := feature.MarshalJSON()
		if err != nil {
			return err
		}
		return c.Send(body)
	})

	r.Post("/:id/vote", authMiddleware, func(c *fiber.Ctx) error {
		var req VoteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		result, err := svc.CastVote(c.UserContext(), c.Params("id"), auth.UserID(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	r.Post("/:id/comments", authMiddleware, func(c *fiber.Ctx) error {
		var req CommentRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		comment, err := svc.AddComment(c.UserContext(), c.Params("id"), auth.UserID(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	})

	r.Get("/:id/comments", func(c *fiber.Ctx) error {
		comments, err := svc.Comments(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(comments)
	})
}

func RegisterTagRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		tags, err := svc.Tags(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(tags)
	})
}
