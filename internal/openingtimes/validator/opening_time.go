package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

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

type OpeningTimeValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewOpeningTimeValidator(log *logger.Logger) *OpeningTimeValidator {
	v := validator.New()

	if err := v.RegisterValidation("wallclock", validateWallClock); err != nil {
		log.Fatal("Failed to register 'wallclock' validator", "error", err)
	}

	log.Info("Opening time validator initialized successfully")

	return &OpeningTimeValidator{
		validate: v,
		logger:   log,
	}
}

// validateWallClock accepts zero-padded 24-hour "HH:MM" values only. The
// padding matters: these strings are compared lexicographically in queries.
func validateWallClock(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) != 5 {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}

func (v *OpeningTimeValidator) Validate(ot *model.OpeningTime) error {
	return v.translate(v.validate.Struct(ot))
}

func (v *OpeningTimeValidator) ValidateUpdate(updates *model.OpeningTimeUpdate) error {
	return v.translate(v.validate.Struct(updates))
}

func (v *OpeningTimeValidator) translate(err error) error {
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
		case "wallclock":
			message = fmt.Sprintf("%s must be a zero-padded 24-hour HH:MM value", fieldErr.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid object id", fieldErr.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", fieldErr.Field(), fieldErr.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", fieldErr.Field(), fieldErr.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", fieldErr.Field(), fieldErr.Param())
		}

		out = append(out, ValidationError{
			Field:   fieldErr.Field(),
			Message: message,
		})
	}

	return out
}
