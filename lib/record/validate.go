package record

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(Date); ok && !d.IsZero() {
			return d.String()
		}
		return ""
	}, Date{})
}

// Validate checks that r satisfies every field constraint of a persisted record.
// Repositories call it before writing.
func Validate(r Record) error {
	if err := validate.Struct(r); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("invalid record: %s failed on '%s' (value: %v)",
				strings.ToLower(e.Field()), e.Tag(), e.Value())
		}
		return err
	}
	return nil
}
