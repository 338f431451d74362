package server

import (
	"whereismypet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok || user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}
	return c.JSON(user)
}

// GetMyPosts handles GET /api/users/me/posts with the catalog query string.
// @Summary My posts
// @Tags users
// @Produce json
// @Param q query string false "Search"
// @Param sort query string false "newest (default) or oldest"
// @Success 200 {object} server.postsPage
// @Security BearerAuth
// @Router /users/me/posts [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.catalogService.BrowseOwner(c.UserContext(), userIDFrom(c), catalogParams(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(newPostsPage(posts))
}

// DeleteMe handles DELETE /api/users/me, removing the account and all it owns.
// @Summary Delete account
// @Tags users
// @Produce json
// @Success 200 {object} object{deleted_posts=[]string}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [delete]
func (s *Server) DeleteMe(c *fiber.Ctx) error {
	removed, err := s.accountService.Delete(c.UserContext(), userIDFrom(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"deleted_posts": removed})
}

// GetMyNotifications handles GET /api/users/me/notifications
// @Summary My notifications
// @Tags users
// @Produce json
// @Success 200 {array} models.Notification
// @Security BearerAuth
// @Router /users/me/notifications [get]
func (s *Server) GetMyNotifications(c *fiber.Ctx) error {
	items, err := s.commentService.ListNotifications(c.UserContext(), userIDFrom(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return c.JSON(items)
}

// MarkNotificationRead handles POST /api/users/me/notifications/:id/read
// @Summary Mark notification read
// @Tags users
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} object{id=string,read=bool}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me/notifications/{id}/read [post]
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.commentService.MarkNotificationRead(c.UserContext(), id, userIDFrom(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "read": true})
}
