package b1500

import (
	"fmt"
	"strconv"
)

// Measurement type characters in spot responses.
const (
	TypeVoltage = "V"
	TypeCurrent = "I"
)

// SpotResult is one decoded spot measurement.
type SpotResult struct {
	// Status is the single-character measurement status, "N" for a
	// normal reading.
	Status string

	// Channel is the slot number decoded from the channel letter.
	Channel int

	// Type is TypeVoltage or TypeCurrent.
	Type string

	// Value is the measured value in SI units.
	Value float64
}

// OK reports whether the measurement completed without a status flag.
func (r SpotResult) OK() bool {
	return r.Status == "N"
}

// ParseSpot decodes a fixed-format ASCII spot response such as
// "NAI+1.234560E-06": status character, channel letter, measurement
// type, then the value.
func ParseSpot(s string) (SpotResult, error) {
	if len(s) < 4 {
		return SpotResult{}, fmt.Errorf("spot response %q too short", s)
	}

	status := s[0]
	channel := s[1]
	typ := s[2]

	if channel < 'A' || channel > 'Z' {
		return SpotResult{}, fmt.Errorf("spot response %q: bad channel letter %q", s, channel)
	}
	if typ != 'V' && typ != 'I' {
		return SpotResult{}, fmt.Errorf("spot response %q: bad measurement type %q", s, typ)
	}

	value, err := strconv.ParseFloat(s[3:], 64)
	if err != nil {
		return SpotResult{}, fmt.Errorf("spot response %q: %w", s, err)
	}

	return SpotResult{
		Status:  string(status),
		Channel: int(channel-'A') + 1,
		Type:    string(typ),
		Value:   value,
	}, nil
}
