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

// Details flattens the errors for an AppError payload.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, e := range v {
		details[e.Field] = e.Message
	}
	return details
}

type ParkingSlotValidator struct {
	validate *validator.Validate
}

func NewParkingSlotValidator() *ParkingSlotValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	return &ParkingSlotValidator{
		validate: v,
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func (v *ParkingSlotValidator) ValidateBulk(in *model.ParkingSlotBulkCreate) error {
	if err := v.check(in); err != nil {
		return err
	}
	return v.validateUniqueSlotNumbers(in.Slots)
}

func (v *ParkingSlotValidator) ValidateUpdate(in *model.ParkingSlotUpdate) error {
	if err := v.check(in); err != nil {
		return err
	}
	if in.SlotNumber == nil && in.Size == nil && in.VehicleType == nil && in.Location == nil {
		return ValidationErrors{{Field: "body", Message: "at least one field must be provided"}}
	}
	return nil
}

func (v *ParkingSlotValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ParkingSlotValidator) validateUniqueSlotNumbers(slots []model.ParkingSlotInput) error {
	seen := make(map[string]int, len(slots))
	var errs ValidationErrors
	for i, s := range slots {
		if first, ok := seen[s.SlotNumber]; ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("slots[%d].slot_number", i),
				Message: fmt.Sprintf("duplicates slots[%d]", first),
			})
			continue
		}
		seen[s.SlotNumber] = i
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors
	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(err.Namespace()),
			Message: message(err),
		})
	}
	return validationErrors
}

// fieldPath drops the root struct name: "ParkingSlotBulkCreate.slots[0].size"
// becomes "slots[0].size".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", err.Param())
		}
		return fmt.Sprintf("must be at least %s characters", err.Param())
	case "max":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", err.Param())
		}
		return fmt.Sprintf("must be at most %s characters", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	default:
		return fmt.Sprintf("failed %q validation", err.Tag())
	}
}
