package repository

import (
	"context"

	"whereismypet/internal/models"
	"whereismypet/internal/observability"

	"gorm.io/gorm"
)

// AccountRepository removes everything a user owns.
type AccountRepository interface {
	// DeleteUserCascade returns the ids of the posts it removed.
	DeleteUserCascade(ctx context.Context, userID string) ([]string, error)
}

type accountRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *accountRepository) DeleteUserCascade(ctx context.Context, userID string) ([]string, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "DeleteUserCascade", "users")
	defer span.End()

	var postIDs []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("owner_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		for _, id := range postIDs {
			if _, err := deletePostTx(tx, id); err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Report{}).Where("reporter_id = ?", userID).Update("reporter_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&models.User{}).Error
	})
	if err != nil {
		observability.RecordSpanError(span, err)
		r.log.LogError(ctx, err, "delete_user_cascade")
		return nil, storeErr(err, "User", userID)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"user_id": userID, "posts": len(postIDs)})
	if postIDs == nil {
		postIDs = []string{}
	}
	return postIDs, nil
}
