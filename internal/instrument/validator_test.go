package instrument

import (
	"errors"
	"testing"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		validator Validator
		value     any
		wantErr   bool
	}{
		{"numbers in range", Numbers(-10, 10), 2.5, false},
		{"numbers int accepted", Numbers(-10, 10), 3, false},
		{"numbers at bound", Numbers(-10, 10), -10.0, false},
		{"numbers above max", Numbers(-10, 10), 10.001, true},
		{"numbers non-numeric", Numbers(-10, 10), "fast", true},
		{"ints in range", Ints(1, 1023), 512, false},
		{"ints at bound", Ints(1, 1023), int64(1023), false},
		{"ints below min", Ints(1, 1023), 0, true},
		{"ints reject float", Ints(1, 1023), 5.0, true},
		{"enum member", Enum("FAST", "SLOW"), "FAST", false},
		{"enum non-member", Enum("FAST", "SLOW"), "MEDIUM", true},
		{"enum non-string", Enum("FAST", "SLOW"), 1, true},
		{"bool accepted", Bool(), true, false},
		{"bool reject int", Bool(), 1, true},
		{"anything accepts", Anything(), struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator.Validate(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Validate(%v) error = %v, want ErrInvalidValue wrap", tt.value, err)
			}
		})
	}
}

func TestValidatorStrings(t *testing.T) {
	if got := Numbers(-10, 10).String(); got != "Numbers[-10, 10]" {
		t.Errorf("Numbers.String() = %q", got)
	}
	if got := Enum("FAST", "SLOW").String(); got != "Enum{FAST, SLOW}" {
		t.Errorf("Enum.String() = %q", got)
	}
	if got := Ints(1, 5).String(); got != "Ints[1, 5]" {
		t.Errorf("Ints.String() = %q", got)
	}
}
