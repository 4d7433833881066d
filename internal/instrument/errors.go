package instrument

import "errors"

// Sentinel errors for the instrument layer. Use errors.Is to check.
var (
	// ErrParameterNotFound indicates a parameter name has no binding.
	ErrParameterNotFound = errors.New("instrument: parameter not found")

	// ErrParameterExists indicates a parameter name is already bound.
	ErrParameterExists = errors.New("instrument: parameter already exists")

	// ErrChannelNotFound indicates a channel name has no binding.
	ErrChannelNotFound = errors.New("instrument: channel not found")

	// ErrChannelExists indicates a channel name is already bound.
	ErrChannelExists = errors.New("instrument: channel already exists")

	// ErrNotGettable indicates a parameter has no getter and no cached value.
	ErrNotGettable = errors.New("instrument: parameter is not gettable")

	// ErrNotSettable indicates a parameter has no setter.
	ErrNotSettable = errors.New("instrument: parameter is not settable")

	// ErrInvalidValue indicates a value was rejected by a parameter's
	// validator.
	ErrInvalidValue = errors.New("instrument: invalid value")
)
