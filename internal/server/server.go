package server

import (
	"backend-routeshare/internal/auth"
	"backend-routeshare/internal/config"
	"backend-routeshare/internal/db"
	"backend-routeshare/internal/metrics"
	"backend-routeshare/internal/route"
	"backend-routeshare/internal/shared/apperr"
	"backend-routeshare/internal/social"
	"backend-routeshare/internal/stream"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Auth   auth.Provider
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.FiberErrorHandler(cfg.ExposeErrorDetails),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
		Auth:   auth.NewJWTProvider(cfg.JWTSecret),
	}

	registerRoutes(s)
	return s
}

// querier falls back to db.Unavailable when no pool is configured, so
// storage-backed endpoints answer with a storage error.
func (s *Server) querier() db.Querier {
	if s.DB == nil {
		return db.Unavailable{}
	}
	return s.DB
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", metrics.Handler())

	jwtMiddleware := auth.JWTMiddleware(s.Auth, s.Cfg.EmailDomains())

	routes := route.NewService(route.NewPostgresStore(s.querier()), s.Stream, s.Cfg.FeedLimit)
	people := social.NewService(s.querier())

	auth.RegisterRoutes(s.App.Group("/auth"), jwtMiddleware)
	route.RegisterRoutes(s.App.Group("/routes"), routes, jwtMiddleware)
	route.RegisterTagRoutes(s.App.Group("/tags"), routes)
	social.RegisterUserRoutes(s.App.Group("/users"), people, jwtMiddleware)
	social.RegisterFriendRoutes(s.App.Group("/friends"), people, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
