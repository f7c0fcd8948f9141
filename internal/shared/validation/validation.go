// Package validation validates request payloads with go-playground/validator
// and translates failures into apperr values keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"backend-routeshare/internal/shared/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v. Every field failing "required" (or "min" on a
// collection) is reported together as missing; otherwise the first invalid
// field is reported.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%s", err.Error())
	}

	var missing []string
	var invalid *apperr.Error
	for _, fe := range verrs {
		name := fieldPath(fe)
		switch {
		case fe.Tag() == "required", fe.Tag() == "min" && isCollection(fe.Kind()):
			missing = append(missing, name)
		case invalid == nil:
			if fe.Tag() == "oneof" {
				invalid = apperr.InvalidField(name, strings.Fields(fe.Param())...)
			} else {
				invalid = apperr.InvalidField(name)
			}
		}
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	return invalid
}

// fieldPath strips the root struct name from the namespace,
// e.g. "createRouteRequest.points[0].lat" -> "points[0].lat".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func isCollection(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map || k == reflect.String
}
