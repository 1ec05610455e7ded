package till

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// PhoneRegion is the default region used to parse mobile numbers.
const PhoneRegion = "IN"

// ValidationError describes the first rule a record or entity broke.
type ValidationError struct {
	Field   string
	Rule    string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s violates %s", e.Field, e.Rule)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

var entityValidator = newEntityValidator()

func newEntityValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		_, err := libphonenumber.Parse(fl.Field().String(), PhoneRegion)
		return err == nil
	})
	return v
}

// ValidateEntity checks the struct tags of an entity.
func ValidateEntity(v any) error {
	err := entityValidator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Value:   fmt.Sprint(fe.Value()),
			Message: fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()),
		}
	}
	return &ValidationError{Message: err.Error()}
}
