package server

import (
	"whereismypet/internal/models"
	"whereismypet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitReport handles POST /api/posts/:id/reports. Anonymous callers are
// accepted; a signed-in reporter is recorded.
// @Summary Report post
// @Description Records a moderation report. Rate limited per IP.
// @Tags reports
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body object{reason_code=string} true "spam, commercial, inappropriate or other"
// @Success 202 {object} object{id=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /posts/{id}/reports [post]
func (s *Server) SubmitReport(c *fiber.Ctx) error {
	id, err := requirePostID(c)
	if err != nil {
		return nil
	}

	var req struct {
		ReasonCode string `json:"reason_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var reporter *string
	if uid := userIDFrom(c); uid != "" {
		reporter = &uid
	}

	report, err := s.reportService.Submit(c.UserContext(), service.SubmitReportInput{
		PostID:     id,
		ReasonCode: models.ReasonCode(req.ReasonCode),
	}, reporter)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": report.ID})
}
