package repository

import (
	"context"

	"whereismypet/internal/models"

	"gorm.io/gorm"
)

// MaintenanceRepository runs housekeeping queries.
type MaintenanceRepository interface {
	// DeleteOrphans removes dependent rows whose post no longer exists and
	// returns the count per table.
	DeleteOrphans(ctx context.Context) (map[string]int64, error)
}

type maintenanceRepository struct {
	db *gorm.DB
}

func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

func (r *maintenanceRepository) DeleteOrphans(ctx context.Context) (map[string]int64, error) {
	db := r.db.WithContext(ctx)
	live := db.Model(&models.Post{}).Select("id")

	deleted := make(map[string]int64, 3)

	res := db.Where("post_id NOT IN (?)", live).Delete(&models.Comment{})
	if res.Error != nil {
		return deleted, storeErr(res.Error, "Comment", "orphans")
	}
	deleted["comments"] = res.RowsAffected

	// Notifications without a post are account-level and stay.
	res = db.Where("post_id <> '' AND post_id NOT IN (?)", live).Delete(&models.Notification{})
	if res.Error != nil {
		return deleted, storeErr(res.Error, "Notification", "orphans")
	}
	deleted["notifications"] = res.RowsAffected

	res = db.Where("post_id NOT IN (?)", live).Delete(&models.Report{})
	if res.Error != nil {
		return deleted, storeErr(res.Error, "Report", "orphans")
	}
	deleted["reports"] = res.RowsAffected

	return deleted, nil
}
