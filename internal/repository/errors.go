// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"whereismypet/internal/models"

	"gorm.io/gorm"
)

// storeErr maps a gorm error onto the application taxonomy. Errors that are
// already classified pass through unchanged.
func storeErr(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStoreError(err)
}
