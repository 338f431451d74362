package server

import (
	"whereismypet/internal/catalog"
	"whereismypet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AdminListPosts handles GET /api/admin/posts?q=&sort=. Unlike the public
// catalog it searches every post, not only the recent window.
// @Summary List all posts
// @Tags admin
// @Produce json
// @Param q query string false "Search"
// @Param sort query string false "newest (default) or oldest"
// @Success 200 {object} server.postsPage
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/posts [get]
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListAll(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(newPostsPage(catalog.Apply(posts, catalogParams(c))))
}

// AdminListReports handles GET /api/admin/reports?post_id=
// @Summary List reports
// @Tags admin
// @Produce json
// @Param post_id query string false "Only reports for this post"
// @Success 200 {array} models.Report
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports [get]
func (s *Server) AdminListReports(c *fiber.Ctx) error {
	reports, err := s.reportService.ListReports(c.UserContext(), c.Query("post_id"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return c.JSON(reports)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Tags admin
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Security BearerAuth
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userIDFrom(c)),
	})
}

// SweepOrphans handles POST /api/admin/maintenance/orphans, running the
// scheduled sweep on demand.
// @Summary Sweep orphaned rows
// @Tags admin
// @Produce json
// @Success 200 {object} object{deleted=map[string]int}
// @Security BearerAuth
// @Router /admin/maintenance/orphans [post]
func (s *Server) SweepOrphans(c *fiber.Ctx) error {
	deleted, err := s.scheduler.SweepOrphans(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}
