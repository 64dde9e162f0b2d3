package passport

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TagUsername is the validation tag checking that a value only holds
// letters, digits, "-" and "_".
const TagUsername = "username"

//nolint:gochecknoglobals
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

//nolint:gochecknoinits
func init() {
	DefaultFormValidator.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	if err := DefaultFormValidator.RegisterValidation(TagUsername, func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

var _ error = (*ValidationError)(nil)

// ValidationError reports the input fields that do not satisfy the declared
// shape, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return "passport: invalid input: " + strings.Join(parts, ", ")
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}

	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// ValidateForm normalizes form with DefaultFormModifier and validates it
// with DefaultFormValidator.
//
// Field failures are returned as *ValidationError.
func ValidateForm(ctx context.Context, form any) error {
	if err := DefaultFormModifier.Struct(ctx, form); err != nil {
		return fmt.Errorf("passport: failed to normalize form: %w", err)
	}

	err := DefaultFormValidator.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("passport: failed to validate form: %w", err)
	}

	var result ValidationError
	for _, fe := range verrs {
		result.Add(fe.Field(), fieldMessage(fe))
	}

	return &result
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email address"
	case TagUsername:
		return "Only letters, numbers, - and _ allowed"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	default:
		return "Invalid value"
	}
}
