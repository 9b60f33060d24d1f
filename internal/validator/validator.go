package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength    = 64
	maxContentLength = 2000
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterValidation("name", func(fl validator.FieldLevel) bool {
		return Name(fl.Field().String()) == nil
	})
	validate.RegisterValidation("content", func(fl validator.FieldLevel) bool {
		return Content(fl.Field().String()) == nil
	})
}

// Name checks a user or channel name.
func Name(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty_name")
	}

	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("long_name")
	}

	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return fmt.Errorf("bad_format")
	}

	return nil
}

func Content(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("empty_content")
	}

	if utf8.RuneCountInString(content) > maxContentLength {
		return fmt.Errorf("long_content")
	}

	return nil
}

// Struct validates the struct tags of v. Besides the built-in rules, "name" and
// "content" apply Name and Content.
func Struct(v any) error {
	return validate.Struct(v)
}

// Fields maps every failing field to the rule it broke. Errors that aren't
// validation errors come back under the "" key.
func Fields(err error) map[string]string {
	fields := make(map[string]string)

	var validateErrs validator.ValidationErrors
	if errors.As(err, &validateErrs) {
		for _, e := range validateErrs {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}

	if err != nil {
		fields[""] = err.Error()
	}
	return fields
}
