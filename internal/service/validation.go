package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"whereismypet/internal/models"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns the first failing field into a ValidationError.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return models.NewValidationError(err.Error())
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return models.NewValidationError(fmt.Sprintf("%s is required", fe.Field()))
	case "url", "http_url":
		return models.NewValidationError(fmt.Sprintf("%s must be a valid URL", fe.Field()))
	case "oneof":
		return models.NewValidationError(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	case "max":
		return models.NewValidationError(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	default:
		return models.NewValidationError(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

var locationLevels = []string{"city", "district", "neighborhood", "street"}

func locationValues(loc models.Location) []string {
	return []string{
		strings.TrimSpace(loc.City),
		strings.TrimSpace(loc.District),
		strings.TrimSpace(loc.Neighborhood),
		strings.TrimSpace(loc.Street),
	}
}

// validateLocation enforces the address rules. Strict mode needs every level;
// loose mode accepts a partial address as long as no level skips its parent.
func validateLocation(loc models.Location, strict bool) error {
	values := locationValues(loc)
	if strict {
		for i, v := range values {
			if v == "" {
				return models.NewValidationError(fmt.Sprintf("location.%s is required", locationLevels[i]))
			}
		}
		return nil
	}
	for i := 1; i < len(values); i++ {
		if values[i] != "" && values[i-1] == "" {
			return models.NewValidationError(fmt.Sprintf(
				"location.%s is required when location.%s is set", locationLevels[i-1], locationLevels[i]))
		}
	}
	return nil
}
