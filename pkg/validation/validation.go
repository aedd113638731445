// Package validation builds the struct validator shared by request bodies
// and event payloads. Decimal fields validate through their string form.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// QuantityScale is the number of fractional digits the numeric quantity and
// cost columns keep.
const QuantityScale = 4

// FitsScale reports whether d is stored without rounding.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(QuantityScale))
}

// New returns a validator that names fields by their json tag and knows the
// decimal_gt0 and decimal_gte0 rules.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(decimalString, decimal.Decimal{})
	mustRegister(v, "decimal_gt0", decimalRule(decimal.Decimal.IsPositive))
	mustRegister(v, "decimal_gte0", decimalRule(func(d decimal.Decimal) bool { return !d.IsNegative() }))
	v.RegisterTagNameFunc(jsonName)
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

func decimalString(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func decimalRule(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		d, err := decimal.NewFromString(raw)
		return err == nil && FitsScale(d) && ok(d)
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Fields flattens a validation failure into field -> message. It returns
// nil when err is not a validator.ValidationErrors.
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "uuid", "uuid4":
		return "must be a valid uuid"
	case "decimal_gt0", "decimal_gte0":
		return decimalMessage(fe)
	case "gt":
		return "must contain more than " + fe.Param()
	}
	return "is invalid"
}

func decimalMessage(fe validator.FieldError) string {
	var d decimal.Decimal
	switch v := fe.Value().(type) {
	case string:
		d, _ = decimal.NewFromString(v)
	case decimal.Decimal:
		d = v
	}
	if !FitsScale(d) {
		return fmt.Sprintf("must have at most %d decimal places", QuantityScale)
	}
	if fe.Tag() == "decimal_gt0" {
		return "must be greater than zero"
	}
	return "must not be negative"
}
