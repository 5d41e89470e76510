// Package server contains the HTTP handlers and wiring for the Warbler web app.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/middleware"
	"warbler/internal/repository"
	"warbler/internal/service"
	"warbler/internal/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Per-caller limits on the write endpoints that are worth abusing.
var (
	signupRule      = middleware.RateRule{Name: "signup", Limit: 5, Window: 10 * time.Minute}
	loginRule       = middleware.RateRule{Name: "login", Limit: 10, Window: 5 * time.Minute}
	postMessageRule = middleware.RateRule{Name: "create_message", Limit: 30, Window: time.Minute}
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *middleware.SessionManager
	userRepo       repository.UserRepository
	followRepo     repository.FollowRepository
	messageRepo    repository.MessageRepository
	likeRepo       repository.LikeRepository
	userService    *service.UserService
	followService  *service.FollowService
	messageService *service.MessageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config, opts bootstrap.Options) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limiting and session revocation then
// degrade to no-ops.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("warbler"),
		sessions:       middleware.NewSessionManager(cfg.JWTSecret, ttl, cfg.IsProduction(), redisClient),
		userRepo:       userRepo,
		followRepo:     followRepo,
		messageRepo:    messageRepo,
		likeRepo:       likeRepo,
		userService:    service.NewUserService(userRepo, cfg.BcryptCost),
		followService:  service.NewFollowService(followRepo, userRepo),
		messageService: service.NewMessageService(messageRepo, likeRepo),
	}, nil
}

// NewApp builds a Fiber app with views, middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Warbler",
		Views:        web.NewEngine(),
		ViewsLayout:  web.Layout,
		ErrorHandler: s.errorHandler,
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	app.Use(middleware.Tracing())
	app.Use(middleware.RequestContext())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Profile images may live on other hosts.
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.AccessLog())
	app.Use(middleware.NoCache())

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return s.config.IsTest() || isStaticPath(c.Path())
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests, please try again later.")
		},
	}))

	if s.config.CSRFEnabled {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:" + csrfFormField,
			CookieName:     "warbler_csrf",
			CookieSameSite: "Lax",
			CookieHTTPOnly: true,
			CookieSecure:   s.config.IsProduction(),
			Expiration:     time.Hour,
			ContextKey:     csrfContextKey,
		}))
	}

	app.Use(s.sessions.Load())
	app.Use(s.loadCurrentUser)
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Use("/static", filesystem.New(filesystem.Config{
		Root: web.Static(),
	}))

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Warbler Metrics Dashboard",
	}))

	app.Get("/", s.Home)

	app.Get("/signup", s.SignupForm)
	app.Post("/signup", middleware.RateLimit(s.redis, signupRule), s.Signup)
	app.Get("/login", s.LoginForm)
	app.Post("/login", middleware.RateLimit(s.redis, loginRule), s.Login)
	app.Get("/logout", s.Logout)

	messages := app.Group("/messages")
	messages.Get("/new", middleware.LoginRequired, s.NewMessageForm)
	messages.Post("/new", middleware.LoginRequired,
		middleware.RateLimit(s.redis, postMessageRule), s.CreateMessage)
	messages.Post("/:id/delete", middleware.LoginRequired, s.DeleteMessage)
	messages.Get("/:id", s.ShowMessage)

	users := app.Group("/users")
	users.Get("/", s.ListUsers)
	// Fixed paths are registered before the generic /:id routes.
	users.Get("/profile", middleware.LoginRequired, s.EditProfileForm)
	users.Post("/profile", middleware.LoginRequired, s.UpdateProfile)
	users.Post("/delete", middleware.LoginRequired, s.DeleteUser)
	users.Post("/add_like/:id", middleware.LoginRequired, s.ToggleLike)
	users.Post("/follow/:id", middleware.LoginRequired, s.Follow)
	users.Post("/stop-following/:id", middleware.LoginRequired, s.StopFollowing)
	users.Get("/:id/following", middleware.LoginRequired, s.ShowFollowing)
	users.Get("/:id/followers", middleware.LoginRequired, s.ShowFollowers)
	users.Get("/:id/likes", middleware.LoginRequired, s.ShowLikes)
	users.Get("/:id", s.ShowUser)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so a
// missing client is reported but does not fail the probe.
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

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// Start builds the app and blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
