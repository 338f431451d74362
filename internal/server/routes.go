package server

import (
	"context"
	"time"

	"whereismypet/internal/featureflags"
	"whereismypet/internal/middleware"
	"whereismypet/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/swagger"
)

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := s.auth.Required()
	syncIdentity := s.SyncIdentity()

	// Location directory (public, fail-soft)
	locations := api.Group("/locations")
	locations.Get("/provinces", s.ListProvinces)
	locations.Get("/provinces/:id/districts", s.ListDistricts)
	locations.Get("/districts/:id/neighborhoods", s.ListNeighborhoods)

	posts := api.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", authRequired, syncIdentity, middleware.RateLimitWithPolicy(
		s.redis, 20, time.Hour, middleware.FailClosed, "create_post"), s.CreatePost)
	// Specific /:id/:resource routes BEFORE generic /:id route
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", authRequired, syncIdentity, s.CreateComment)
	// Rate limited before identification so anonymous and signed-in
	// reporters share the per-IP budget.
	posts.Post("/:id/reports", middleware.RateLimit(
		s.redis, 10, time.Minute, "report"), s.auth.Optional(), s.SubmitReport)
	posts.Post("/:id/view", s.RecordView)
	posts.Post("/:id/status", authRequired, syncIdentity, s.SetPostStatus)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", authRequired, syncIdentity, s.UpdatePost)
	posts.Delete("/:id", authRequired, syncIdentity, s.DeletePost)

	uploads := api.Group("/uploads", authRequired, syncIdentity)
	uploads.Post("/images", middleware.RateLimit(
		s.redis, 30, time.Hour, "upload"), s.UploadImage)

	users := api.Group("/users", authRequired, syncIdentity)
	users.Get("/me", s.GetMe)
	users.Delete("/me", s.DeleteMe)
	users.Get("/me/posts", s.GetMyPosts)
	users.Get("/me/notifications", s.GetMyNotifications)
	users.Post("/me/notifications/:id/read", s.MarkNotificationRead)

	api.Get("/ws/catalog", tokenFromQuery(), s.auth.Optional(), s.LiveCatalogEnabled(), s.CatalogWebSocketHandler())

	admin := api.Group("/admin", authRequired, syncIdentity, s.AdminRequired())
	admin.Get("/posts", s.AdminListPosts)
	admin.Post("/posts/:id/status", s.SetPostStatus)
	admin.Delete("/posts/:id", s.DeletePost)
	admin.Get("/reports", s.AdminListReports)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/maintenance/orphans", s.SweepOrphans)
	admin.Get("/monitor", monitor.New(monitor.Config{
		Title: "whereismypet API Metrics",
	}))
}

// LivenessCheck handles liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness checks. Redis is optional, so
// only the database decides readiness.
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

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "disabled"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overallStatus = "degraded"
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

// SyncIdentity mirrors the verified token into the users table and keeps the
// stored row on the request. Must be placed after the auth middleware.
func (s *Server) SyncIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := middleware.CurrentIdentity(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}

		user, err := s.accountService.Sync(c.UserContext(), id.UserID, id.Email, id.EmailVerified)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		c.Locals("user", user)
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after SyncIdentity.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !currentActor(c).IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// LiveCatalogEnabled hides the live catalog stream when the flag is off for
// the caller.
func (s *Server) LiveCatalogEnabled() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.EnabledOr(featureflags.LiveCatalog, userIDFrom(c), true) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("stream", "catalog"))
		}
		return c.Next()
	}
}

// tokenFromQuery lets browser websocket clients, which cannot set headers,
// pass their bearer token as ?token=.
func tokenFromQuery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			if token := c.Query("token"); token != "" {
				c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
			}
		}
		return c.Next()
	}
}
