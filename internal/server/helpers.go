package server

import (
	"errors"
	"strings"

	"whereismypet/internal/catalog"
	"whereismypet/internal/lifecycle"
	"whereismypet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// userIDFrom returns the authenticated user id, or "" for anonymous callers.
func userIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// currentActor describes the caller for lifecycle guards. The admin flag
// comes from the row SyncIdentity stored.
func currentActor(c *fiber.Ctx) lifecycle.Actor {
	actor := lifecycle.Actor{ID: userIDFrom(c)}
	if user, ok := c.Locals("user").(*models.User); ok && user != nil {
		actor.IsAdmin = user.IsAdmin
	}
	return actor
}

// parseLocationID extracts a positive numeric route parameter. On failure it
// writes a 400 JSON response and returns errResponseWritten.
func parseLocationID(c *fiber.Ctx, param string) (int, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return id, nil
}

// requirePostID rejects a blank :id before any store access.
func requirePostID(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid post ID"))
		return "", errResponseWritten
	}
	return id, nil
}

// catalogParams reads the catalog query string.
func catalogParams(c *fiber.Ctx) catalog.Params {
	return catalog.Params{
		Search:       c.Query("q"),
		City:         c.Query("city"),
		District:     c.Query("district"),
		Neighborhood: c.Query("neighborhood"),
		Sort:         catalog.ParseSortOrder(c.Query("sort")),
	}
}

// postsPage is the listing envelope. posts is never null.
type postsPage struct {
	Posts []models.Post `json:"posts"`
	Total int           `json:"total"`
}

func newPostsPage(posts []models.Post) postsPage {
	if posts == nil {
		posts = []models.Post{}
	}
	return postsPage{Posts: posts, Total: len(posts)}
}
