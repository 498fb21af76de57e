package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"parkly/pkg/model"
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
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, e := range v {
		details[e.Field] = e.Message
	}
	return details
}

type SlotRequestValidator struct {
	validate *validator.Validate
}

func NewSlotRequestValidator() *SlotRequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &SlotRequestValidator{
		validate: v,
	}
}

func (v *SlotRequestValidator) ValidateCreate(in *model.SlotRequestCreate) error {
	return v.check(in)
}

func (v *SlotRequestValidator) ValidateUpdate(in *model.SlotRequestUpdate) error {
	return v.check(in)
}

func (v *SlotRequestValidator) ValidateReject(in *model.RejectInput) error {
	return v.check(in)
}

func (v *SlotRequestValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors
	for _, err := range errs {
		var msg string
		switch err.Tag() {
		case "required":
			msg = "is required"
		case "gt":
			msg = fmt.Sprintf("must be greater than %s", err.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", err.Param())
		default:
			msg = fmt.Sprintf("failed %q validation", err.Tag())
		}
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: msg,
		})
	}
	return validationErrors
}
