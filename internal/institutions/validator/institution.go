package validator

import (
	"errors"
	"fmt"
	"strings"

	"blokmap/pkg/logger"
	"blokmap/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type InstitutionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewInstitutionValidator(log *logger.Logger) *InstitutionValidator {
	return &InstitutionValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *InstitutionValidator) ValidateInstitution(institution *model.Institution) error {
	return v.translate(v.validate.Struct(institution))
}

func (v *InstitutionValidator) ValidateAuthority(authority *model.Authority) error {
	return v.translate(v.validate.Struct(authority))
}

func (v *InstitutionValidator) translate(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var out ValidationErrors
	for _, fieldErr := range validationErrs {
		message := fieldErr.Error()

		switch fieldErr.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", fieldErr.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", fieldErr.Field(), fieldErr.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid object id", fieldErr.Field())
		case "lowercase":
			message = fmt.Sprintf("%s must be lowercase", fieldErr.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", fieldErr.Field(), fieldErr.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", fieldErr.Field(), fieldErr.Param())
		}

		out = append(out, ValidationError{
			Field:   fieldErr.Field(),
			Message: message,
		})
	}

	return out
}
