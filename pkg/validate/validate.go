// Package validate holds the request validator shared by the HTTP handlers.
package validate

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	hhmmRe   = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
	mobileRe = regexp.MustCompile(`^(01)[0-46-9]*[0-9]{7,8}$`)
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their wire name.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return hhmmRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return mobileRe.MatchString(fl.Field().String())
		})

		instance = v
	})

	return instance
}

// Struct validates s. A failed check is returned as validator.ValidationErrors.
func Struct(s any) error {
	return get().Struct(s)
}
