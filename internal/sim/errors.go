package sim

import "errors"

// Domain errors for the sim package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sim.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrInvalidDescription is returned when a device description file
	// fails structural validation.
	ErrInvalidDescription = errors.New("sim: invalid description")

	// ErrPatternSyntax is returned when a query or response template
	// contains malformed placeholders.
	ErrPatternSyntax = errors.New("sim: pattern syntax")

	// ErrDuplicatePattern is returned when two properties compile to the
	// same query pattern, making resolution ambiguous.
	ErrDuplicatePattern = errors.New("sim: duplicate pattern")

	// ErrDeviceNotFound is returned when a device name does not exist
	// in the registry.
	ErrDeviceNotFound = errors.New("sim: device not found")

	// ErrResourceNotFound is returned when a resource address has no
	// device binding.
	ErrResourceNotFound = errors.New("sim: resource not found")

	// ErrDeviceExists is returned when two descriptions declare the same
	// device name.
	ErrDeviceExists = errors.New("sim: device already exists")

	// ErrResourceExists is returned when two descriptions bind the same
	// resource address.
	ErrResourceExists = errors.New("sim: resource already bound")
)
