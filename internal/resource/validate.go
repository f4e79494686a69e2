package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so messages match what clients send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(nullableValue[int64], Nullable[int64]{})
	v.RegisterCustomTypeFunc(nullableValue[float64], Nullable[float64]{})
	v.RegisterCustomTypeFunc(nullableValue[string], Nullable[string]{})

	if err := v.RegisterValidation("pin4", func(fl validator.FieldLevel) bool {
		return pinPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// nullableValue exposes a present value as a pointer so omitempty still
// checks explicit zeros.
func nullableValue[V any](field reflect.Value) any {
	n, ok := field.Interface().(Nullable[V])
	if !ok || !n.Valid {
		return nil
	}
	return n.ptr()
}

// Check validates payload and converts validator failures into a
// ValidationError for kind.
func Check(kind string, payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return &ValidationError{Kind: kind, Fields: fields}
}

func message(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if text {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if text {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return "must be a positive number"
	case "pin4":
		return "must be exactly 4 digits"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// Nullable is a patch field that tells "absent" apart from an explicit null.
// Set is false when the field was not sent; Valid is false for null.
type Nullable[V any] struct {
	Set   bool
	Valid bool
	Value V
}

// Null returns an explicit null.
func Null[V any]() Nullable[V] { return Nullable[V]{Set: true} }

// Value returns a present, non-null field.
func Value[V any](v V) Nullable[V] { return Nullable[V]{Set: true, Valid: true, Value: v} }

func (n *Nullable[V]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Valid = false
		var zero V
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[V]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// IsZero lets omitzero drop fields that were never set.
func (n Nullable[V]) IsZero() bool { return !n.Set }

// column returns the update value for a nullable column.
func (n Nullable[V]) column() any {
	if !n.Valid {
		return nil
	}
	return n.Value
}

// ptr returns the field as a pointer, nil for null.
func (n Nullable[V]) ptr() *V {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// optionalText trims s and turns an empty result into nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
