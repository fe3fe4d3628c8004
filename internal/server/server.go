// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"log"
	"log/slog"
	"time"

	_ "ravencube/docs" // swagger docs
	"ravencube/internal/auth"
	"ravencube/internal/config"
	"ravencube/internal/featureflags"
	"ravencube/internal/imagestore"
	"ravencube/internal/middleware"
	"ravencube/internal/models"
	"ravencube/internal/notifications"
	"ravencube/internal/repository"
	"ravencube/internal/service"
	"ravencube/internal/shield"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	verifier     auth.Verifier
	resolver     *service.IdentityResolver
	shield       middleware.ShieldEvaluator
	images       imagestore.Store
	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager

	graph         *service.GraphService
	content       *service.ContentService
	coordinator   *service.Coordinator
	notifications *service.NotificationEmitter
}

// Option overrides a collaborator built by NewServer.
type Option func(*Server)

// WithVerifier replaces the JWT verifier built from config.
func WithVerifier(v auth.Verifier) Option {
	return func(s *Server) { s.verifier = v }
}

// WithImageStore replaces the disk image store.
func WithImageStore(store imagestore.Store) Option {
	return func(s *Server) { s.images = store }
}

// WithShield replaces the abuse shield.
func WithShield(evaluator middleware.ShieldEvaluator) Option {
	return func(s *Server) { s.shield = evaluator }
}

// WithoutMetrics skips the Prometheus HTTP middleware and /metrics route.
func WithoutMetrics() Option {
	return func(s *Server) { s.promMiddleware = nil }
}

// NewServer wires repositories and services around already-initialized
// handles. The database is required; a nil Redis client disables caching,
// pub/sub and rate limiting.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) *Server {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("ravencube-api"),
		verifier:       auth.NewJWTVerifier(cfg.JWTSecret, cfg.AuthIssuer, cfg.AuthAudience),
		images:         imagestore.NewDiskStore(cfg),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
	}
	s.shield = shield.New(redisClient, shield.Config{
		Capacity:       cfg.ShieldCapacity,
		RefillRate:     cfg.ShieldRefillRate,
		RefillInterval: time.Duration(cfg.ShieldRefillIntervalSeconds) * time.Second,
	}, nil)

	for _, opt := range opts {
		opt(s)
	}

	uow := repository.NewUnitOfWork(db)
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	likes := repository.NewLikeRepository(db)
	follows := repository.NewFollowRepository(db)

	var publisher service.Publisher
	if s.notifier != nil {
		publisher = s.notifier
	}
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second

	s.resolver = service.NewIdentityResolver(users)
	s.notifications = service.NewNotificationEmitter(repository.NewNotificationRepository(db), publisher)
	s.graph = service.NewGraphService(uow, users, follows, s.notifications, redisClient, cacheTTL)
	s.content = service.NewContentService(users, posts, comments, s.images, s.notifications, s.featureFlags, redisClient,
		service.ContentOptions{ImageFolder: cfg.ImageFolder, CacheTTL: cacheTTL})
	s.coordinator = service.NewCoordinator(uow, users, posts, comments, likes, s.notifications, s.images, s.featureFlags, redisClient)

	return s
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	bodyLimit := s.config.ImageMaxUploadSizeMB
	if bodyLimit <= 0 {
		bodyLimit = 5
	}
	app := fiber.New(fiber.Config{
		AppName:   "RavenCube API",
		BodyLimit: (bodyLimit + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: models.CodeForStatus(fe.Code)})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs before the context middleware so the trace ID reaches logs.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so browser clients
	// still see CORS headers on shield rejections.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if store, ok := s.images.(*imagestore.DiskStore); ok {
		app.Static("/media", store.Dir(), fiber.Static{MaxAge: 86400})
	}

	api := app.Group("/api")
	api.Use(middleware.Shield(s.shield, s.config.ShieldMode == "DRY_RUN"))

	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "RavenCube Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := middleware.AuthRequired(s.verifier, s.resolver)

	// Posts. Specific /:id/:resource routes go before the generic /:id.
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/user/:username", s.GetUserPosts)
	posts.Post("/", authRequired, middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", authRequired, s.ToggleLike)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", authRequired, s.DeletePost)

	comments := api.Group("/comments")
	comments.Get("/post/:postId", s.GetComments)
	comments.Post("/post/:postId", authRequired, middleware.RateLimit(
		s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	comments.Delete("/:id", authRequired, s.DeleteComment)

	notifs := api.Group("/notifications", authRequired)
	notifs.Get("/", s.GetNotifications)
	notifs.Delete("/:id", s.DeleteNotification)

	users := api.Group("/users")
	users.Get("/profile/:username", s.GetUserProfile)
	users.Put("/profile", authRequired, s.UpdateProfile)
	users.Post("/sync", authRequired, s.SyncUser)
	users.Get("/me", authRequired, s.GetMe)
	users.Post("/me", authRequired, s.GetMe)
	users.Get("/me/features", authRequired, s.GetFeatureFlags)
	users.Post("/follow/:targetId", authRequired, middleware.RateLimit(
		s.redis, 30, time.Minute, "follow"), s.ToggleFollow)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports the database and Redis. Only the database gates
// readiness; Redis backs optional features.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start listens on the configured port until the app is shut down.
func (s *Server) Start() error {
	app := s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests. The database and Redis handles belong
// to the caller that opened them.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		log.Printf("error shutting down HTTP server: %v", err)
		return err
	}
	log.Println("Server shutdown complete")
	return nil
}
