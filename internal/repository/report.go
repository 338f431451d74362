package repository

import (
	"context"

	"whereismypet/internal/models"
	"whereismypet/internal/observability"

	"gorm.io/gorm"
)

// ReportRepository stores moderation reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	List(ctx context.Context, postID string) ([]models.Report, error)
}

type reportRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db, log: observability.NewRepoLogger("reports")}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return storeErr(err, "Report", report.ID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"report_id": report.ID, "post_id": report.PostID, "reason": report.ReasonCode})
	return nil
}

// List returns reports newest first. An empty postID lists every report.
func (r *reportRepository) List(ctx context.Context, postID string) ([]models.Report, error) {
	reports := []models.Report{}
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if postID != "" {
		q = q.Where("post_id = ?", postID)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, storeErr(err, "Report", postID)
	}
	return reports, nil
}
