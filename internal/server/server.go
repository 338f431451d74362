// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	_ "whereismypet/docs" // swagger docs
	"whereismypet/internal/cache"
	"whereismypet/internal/config"
	"whereismypet/internal/database"
	"whereismypet/internal/featureflags"
	"whereismypet/internal/jobs"
	"whereismypet/internal/location"
	"whereismypet/internal/media"
	"whereismypet/internal/middleware"
	"whereismypet/internal/models"
	"whereismypet/internal/notifications"
	"whereismypet/internal/observability"
	"whereismypet/internal/repository"
	"whereismypet/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// imageUploader pushes one image to the image host and returns its URL.
type imageUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	auth         *middleware.Authenticator
	cache        *cache.Store
	featureFlags *featureflags.Manager

	userRepo         repository.UserRepository
	postRepo         repository.PostRepository
	commentRepo      repository.CommentRepository
	notificationRepo repository.NotificationRepository
	reportRepo       repository.ReportRepository
	accountRepo      repository.AccountRepository
	maintenanceRepo  repository.MaintenanceRepository

	notifier  *notifications.Notifier
	hub       *notifications.CatalogHub
	locations location.Lister
	uploader  imageUploader
	views     *service.ViewCounter
	scheduler *jobs.Scheduler

	postService    *service.PostService
	catalogService *service.CatalogService
	reportService  *service.ReportService
	commentService *service.CommentService
	accountService *service.AccountService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// nil when Redis is unreachable; cache and pub/sub degrade to local.
	redisClient := cache.Connect(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store := cache.New(redisClient)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("whereismypet-api"),
		auth: middleware.NewAuthenticator(middleware.AuthConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
		}),
		cache:            store,
		featureFlags:     featureflags.NewManager(cfg.FeatureFlags),
		userRepo:         repository.NewUserRepository(db),
		postRepo:         repository.NewPostRepository(db, store),
		commentRepo:      repository.NewCommentRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		reportRepo:       repository.NewReportRepository(db),
		accountRepo:      repository.NewAccountRepository(db),
		maintenanceRepo:  repository.NewMaintenanceRepository(db),
		locations: location.NewDirectory(cfg.GeoAPIBaseURL,
			&http.Client{Timeout: cfg.GeoAPITimeout()}, nil),
		uploader: media.NewUploader(media.Config{
			UploadURL: cfg.ImageHostUploadURL,
			Preset:    cfg.ImageHostUploadPreset,
			MaxBytes:  cfg.ImageMaxUploadBytes(),
			Timeout:   cfg.ImageHostTimeout(),
		}, nil),
	}

	server.notifier = notifications.NewNotifier(redisClient)
	server.hub = notifications.NewCatalogHub(server.notifier)

	scheduler, err := jobs.NewScheduler(server.maintenanceRepo, cfg.OrphanSweepSchedule)
	if err != nil {
		return nil, err
	}
	server.scheduler = scheduler

	server.wireServices()
	return server, nil
}

// wireServices builds the services from whatever repositories are set, so
// tests can swap a repository for a mock before calling it.
func (s *Server) wireServices() {
	s.postService = service.NewPostService(s.postRepo, s.userRepo, s.featureFlags, s.publisher(), s.config.CatalogRecentLimit)
	s.catalogService = service.NewCatalogService(s.postService)
	s.reportService = service.NewReportService(s.reportRepo, s.postRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.notificationRepo, s.postRepo, s.publisher())
	s.accountService = service.NewAccountService(s.userRepo, s.accountRepo, s.publisher())
	s.views = service.NewViewCounter(s.postRepo, s.config.ViewCounterWorkers, s.config.ViewCounterQueueSize)
}

func (s *Server) publisher() service.EventPublisher {
	if s.hub == nil {
		return nil
	}
	return s.hub
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Request ID and user ID into context.Context for logging
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))
}

// newApp builds the Fiber app with middleware and routes but does not listen.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "whereismypet API",
		BodyLimit: int(2*s.config.ImageMaxUploadBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
			return models.RespondWithAppError(c, err)
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the background workers and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	s.views.Start()
	s.scheduler.Start()

	if err := s.hub.Start(s.shutdownCtx); err != nil {
		observability.GlobalLogger.Error("failed to start catalog hub wiring", "error", err)
	}

	observability.GlobalLogger.Info("Server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server: HTTP first, then cron, the view
// counter drain, the hub, Redis and finally the database.
func (s *Server) Shutdown(ctx context.Context) error {
	log := observability.GlobalLogger

	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.scheduler.Stop(ctx); err != nil {
		log.Error("error stopping scheduler", "error", err)
	}

	if err := s.views.Stop(ctx); err != nil {
		log.Error("error draining view counter", "error", err)
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error("error closing redis", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Error("error closing sql DB", "error", cerr)
		}
	}

	log.Info("Server shutdown complete")
	return nil
}
