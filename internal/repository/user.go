package repository

import (
	"context"
	"errors"
	"time"

	"whereismypet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository persists the local mirror of authenticated identities.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	IsAdmin(ctx context.Context, id string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert refreshes the claim-derived columns. The admin flag is never
// written from claims.
func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "email_verified", "updated_at"}),
	}).Omit("is_admin").Create(user).Error
	return storeErr(err, "User", user.ID)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, storeErr(err, "User", id)
	}
	return &user, nil
}

// IsAdmin treats an unknown user as a regular user.
func (r *userRepository) IsAdmin(ctx context.Context, id string) (bool, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("is_admin").Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(err, "User", id)
	}
	return user.IsAdmin, nil
}
