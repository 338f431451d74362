package server

import (
	"strconv"
	"strings"

	"whereismypet/internal/location"
	"whereismypet/internal/models"
	"whereismypet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// createPostRequest is the create body. Directory ids, when present, take
// precedence over the free-text location names.
type createPostRequest struct {
	service.CreatePostInput
	location.IDs
}

// ListPosts handles GET /api/posts?q=&city=&district=&neighborhood=&sort=
// @Summary List posts
// @Description Browse the recent catalog window with search, location filters and ordering.
// @Tags posts
// @Produce json
// @Param q query string false "Case-insensitive search over title and description"
// @Param city query string false "Exact city"
// @Param district query string false "Exact district"
// @Param neighborhood query string false "Exact neighborhood"
// @Param sort query string false "newest (default) or oldest"
// @Success 200 {object} server.postsPage
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.catalogService.Browse(c.UserContext(), catalogParams(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(newPostsPage(posts))
}

// GetPost handles GET /api/posts/:id. Reading a post does not count a view;
// clients call RecordView once per visit.
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := requirePostID(c)
	if err != nil {
		return nil
	}

	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// RecordView handles POST /api/posts/:id/view
// @Summary Record a post view
// @Description Counts one visit in the background. Always accepted.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 202 {object} object{status=string}
// @Router /posts/{id}/view [post]
func (s *Server) RecordView(c *fiber.Ctx) error {
	id, err := requirePostID(c)
	if err != nil {
		return nil
	}
	s.views.RecordView(id)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// CreatePost handles POST /api/posts. It accepts JSON with image URLs, or a
// multipart form whose image and passport_image files are uploaded first.
// @Summary Create post
// @Description JSON with image URLs, or multipart/form-data with image and passport_image files.
// @Description province_id, district_id and neighborhood_id are resolved against the location directory.
// @Tags posts
// @Accept json
// @Accept mpfd
// @Produce json
// @Param request body server.createPostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in, err := s.parseCreatePost(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	post, err := s.postService.Create(c.UserContext(), in, userIDFrom(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (s *Server) parseCreatePost(c *fiber.Ctx) (service.CreatePostInput, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		var req createPostRequest
		if err := c.BodyParser(&req); err != nil {
			return req.CreatePostInput, models.NewValidationError("Invalid request body")
		}
		return s.resolveLocation(c, req.CreatePostInput, req.IDs)
	}

	in := service.CreatePostInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Location: models.Location{
			City:         c.FormValue("city"),
			District:     c.FormValue("district"),
			Neighborhood: c.FormValue("neighborhood"),
			Street:       c.FormValue("street"),
		},
		PetName:     c.FormValue("pet_name"),
		PetType:     c.FormValue("pet_type"),
		ContactInfo: c.FormValue("contact_info"),
	}
	ids, err := formLocationIDs(c)
	if err != nil {
		return in, err
	}
	if in, err = s.resolveLocation(c, in, ids); err != nil {
		return in, err
	}

	// Reject a bad form before anything reaches the image host.
	if err := s.postService.ValidateDetails(in, userIDFrom(c)); err != nil {
		return in, err
	}

	if in.ImageURL, err = s.uploadFormFile(c, "image", c.FormValue("image_url")); err != nil {
		return in, err
	}
	if in.PassportImageURL, err = s.uploadFormFile(c, "passport_image", c.FormValue("passport_image_url")); err != nil {
		return in, err
	}
	return in, nil
}

// resolveLocation replaces the location names with the directory's when ids
// were sent. The street line is kept.
func (s *Server) resolveLocation(c *fiber.Ctx, in service.CreatePostInput, ids location.IDs) (service.CreatePostInput, error) {
	if ids.Empty() {
		return in, nil
	}
	sel, err := location.Resolve(c.UserContext(), s.locations, ids, in.Location.Street)
	if err != nil {
		return in, err
	}
	in.Location = sel.Location()
	return in, nil
}

func formLocationIDs(c *fiber.Ctx) (location.IDs, error) {
	var ids location.IDs
	fields := []struct {
		name string
		dst  *int
	}{
		{"province_id", &ids.ProvinceID},
		{"district_id", &ids.DistrictID},
		{"neighborhood_id", &ids.NeighborhoodID},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(c.FormValue(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return ids, models.NewValidationError("Invalid " + f.name)
		}
		*f.dst = n
	}
	return ids, nil
}

// uploadFormFile uploads the named file and returns its hosted URL. Without
// a file it returns fallback and leaves validation to the service.
func (s *Server) uploadFormFile(c *fiber.Ctx, field, fallback string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return fallback, nil
	}
	src, err := fh.Open()
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	return s.uploader.Upload(c.UserContext(), fh.Filename, src)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update post
// @Description Owner-only partial edit. Status and view count are never changed here.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body service.UpdatePostInput true "Fields to change"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := requirePostID(c)
	if err != nil {
		return nil
	}

	var in service.UpdatePostInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Update(c.UserContext(), id, userIDFrom(c), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// SetPostStatus handles POST /api/posts/:id/status and its admin twin.
// @Summary Change post status
// @Description The owner marks a post found. Admins reopen found posts through /admin/posts/{id}/status.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body object{status=string} true "active or found"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/status [post]
func (s *Server) SetPostStatus(c *fiber.Ctx) error {
	id, err := requirePostID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	status := models.PostStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	post, err := s.postService.SetStatus(c.UserContext(), id, currentActor(c), status)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id and DELETE /api/admin/posts/:id
// @Summary Delete post
// @Description Removes the post with its comments, notifications and reports.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{deleted=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := requirePostID(c)
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(c.UserContext(), id, currentActor(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// UploadImage handles POST /api/uploads/images
// @Summary Upload image
// @Description Normalises the image to WebP and stores it on the image host.
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Param image formData file true "JPEG, PNG or WebP"
// @Success 201 {object} object{url=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /uploads/images [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	src, err := fh.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	url, err := s.uploader.Upload(c.UserContext(), fh.Filename, src)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
