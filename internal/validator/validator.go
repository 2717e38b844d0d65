package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report YAML keys instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
})

// Problems validates the struct tags of v and returns one message per failed constraint.
func Problems(v any) []string {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the root type name: "Family.structure[0].name" -> "structure[0].name".
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		msg := fmt.Sprintf("%s: failed on '%s'", field, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed on '%s=%s'", field, fe.Tag(), fe.Param())
		}
		out = append(out, msg)
	}
	return out
}

// Join formats problems as one error, or returns nil when there are none.
func Join(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
}

// Struct validates v and returns all problems as one error.
func Struct(v any) error {
	return Join(Problems(v))
}

// Flatten splits an error built with errors.Join into its messages.
func Flatten(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, Flatten(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
