package instrument

import (
	"fmt"
	"strings"
)

// Validator checks candidate parameter values before they are applied.
type Validator interface {
	// Validate returns nil when value is acceptable. Rejections wrap
	// ErrInvalidValue.
	Validate(value any) error

	// String describes the accepted values, for snapshots and error
	// messages.
	String() string
}

// Numbers returns a validator accepting real numbers in [min, max].
// Integer values are accepted and treated as their float equivalent.
func Numbers(min, max float64) Validator {
	return &numbersValidator{min: min, max: max}
}

type numbersValidator struct {
	min, max float64
}

func (v *numbersValidator) Validate(value any) error {
	f, ok := asFloat(value)
	if !ok {
		return fmt.Errorf("%w: %v (%T) is not a number", ErrInvalidValue, value, value)
	}
	if f < v.min || f > v.max {
		return fmt.Errorf("%w: %v outside %s", ErrInvalidValue, f, v)
	}
	return nil
}

func (v *numbersValidator) String() string {
	return fmt.Sprintf("Numbers[%v, %v]", v.min, v.max)
}

// Ints returns a validator accepting integers in [min, max]. Floats are
// rejected even when integral.
func Ints(min, max int64) Validator {
	return &intsValidator{min: min, max: max}
}

type intsValidator struct {
	min, max int64
}

func (v *intsValidator) Validate(value any) error {
	i, ok := asInt(value)
	if !ok {
		return fmt.Errorf("%w: %v (%T) is not an integer", ErrInvalidValue, value, value)
	}
	if i < v.min || i > v.max {
		return fmt.Errorf("%w: %v outside %s", ErrInvalidValue, i, v)
	}
	return nil
}

func (v *intsValidator) String() string {
	return fmt.Sprintf("Ints[%d, %d]", v.min, v.max)
}

// Enum returns a validator accepting exactly the given string choices.
func Enum(choices ...string) Validator {
	set := make(map[string]struct{}, len(choices))
	for _, c := range choices {
		set[c] = struct{}{}
	}
	return &enumValidator{choices: choices, set: set}
}

type enumValidator struct {
	choices []string
	set     map[string]struct{}
}

func (v *enumValidator) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %v (%T) is not a string", ErrInvalidValue, value, value)
	}
	if _, ok := v.set[s]; !ok {
		return fmt.Errorf("%w: %q not in %s", ErrInvalidValue, s, v)
	}
	return nil
}

func (v *enumValidator) String() string {
	return "Enum{" + strings.Join(v.choices, ", ") + "}"
}

// Bool returns a validator accepting bool values only.
func Bool() Validator {
	return boolValidator{}
}

type boolValidator struct{}

func (boolValidator) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("%w: %v (%T) is not a bool", ErrInvalidValue, value, value)
	}
	return nil
}

func (boolValidator) String() string {
	return "Bool"
}

// Anything returns a validator that accepts every value. It is the
// default for parameters constructed without WithValidator.
func Anything() Validator {
	return anythingValidator{}
}

type anythingValidator struct{}

func (anythingValidator) Validate(any) error { return nil }
func (anythingValidator) String() string     { return "Anything" }

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
