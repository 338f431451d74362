package service

import (
	"context"
	"fmt"
	"strings"

	"whereismypet/internal/models"
	"whereismypet/internal/observability"
	"whereismypet/internal/repository"
)

type ReportService struct {
	reports repository.ReportRepository
	posts   repository.PostRepository
}

type SubmitReportInput struct {
	PostID     string            `json:"post_id"`
	ReasonCode models.ReasonCode `json:"reason_code"`
}

func NewReportService(reports repository.ReportRepository, posts repository.PostRepository) *ReportService {
	return &ReportService{reports: reports, posts: posts}
}

// Submit files one report per call. Duplicate reports are kept on purpose so
// moderators see the volume. reporterID is nil for anonymous reports.
func (s *ReportService) Submit(ctx context.Context, in SubmitReportInput, reporterID *string) (*models.Report, error) {
	reason := models.ReasonCode(strings.ToLower(strings.TrimSpace(string(in.ReasonCode))))
	if !reason.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf(
			"reason_code must be one of: %s, %s, %s, %s",
			models.ReasonCommercial, models.ReasonInappropriate, models.ReasonSpam, models.ReasonOther))
	}
	if strings.TrimSpace(in.PostID) == "" {
		return nil, models.NewValidationError("post_id is required")
	}
	if _, err := s.posts.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	if reporterID != nil && *reporterID == "" {
		reporterID = nil
	}
	report := &models.Report{
		PostID:     in.PostID,
		ReasonCode: reason,
		ReporterID: reporterID,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	observability.ReportsSubmitted.WithLabelValues(string(reason)).Inc()
	return report, nil
}

// ListReports returns reports for one post, or all reports for an empty id.
func (s *ReportService) ListReports(ctx context.Context, postID string) ([]models.Report, error) {
	return s.reports.List(ctx, strings.TrimSpace(postID))
}
