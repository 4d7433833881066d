package instrument

import (
	"fmt"
	"sync"
	"time"
)

// GetFunc reads a parameter's value from its instrument.
type GetFunc func() (any, error)

// SetFunc applies a validated value to a parameter's instrument.
type SetFunc func(value any) error

// Parameter is a single named knob or readout. It validates values
// before applying them and caches the last value seen in either
// direction.
//
// A Parameter without get/set functions is a plain in-memory value
// holder, which is useful for station-level settings that have no
// hardware behind them. Bare parameters are valid station components.
//
// Thread Safety: all methods are safe for concurrent use.
type Parameter struct {
	name      string
	label     string
	unit      string
	validator Validator

	get GetFunc
	set SetFunc

	mu        sync.Mutex
	value     any
	timestamp time.Time
}

// ParameterOption configures a Parameter during construction.
type ParameterOption func(*Parameter)

// WithLabel sets the human-readable label. Defaults to the name.
func WithLabel(label string) ParameterOption {
	return func(p *Parameter) { p.label = label }
}

// WithUnit sets the physical unit, e.g. "V" or "A".
func WithUnit(unit string) ParameterOption {
	return func(p *Parameter) { p.unit = unit }
}

// WithValidator sets the value validator. Defaults to Anything.
func WithValidator(v Validator) ParameterOption {
	return func(p *Parameter) { p.validator = v }
}

// WithGetter binds the function used by Get.
func WithGetter(get GetFunc) ParameterOption {
	return func(p *Parameter) { p.get = get }
}

// WithSetter binds the function used by Set.
func WithSetter(set SetFunc) ParameterOption {
	return func(p *Parameter) { p.set = set }
}

// WithInitialValue seeds the cache without calling any setter.
func WithInitialValue(value any) ParameterOption {
	return func(p *Parameter) {
		p.value = value
		p.timestamp = time.Now().UTC()
	}
}

// NewParameter creates a parameter with the given name and options.
func NewParameter(name string, opts ...ParameterOption) (*Parameter, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty parameter name", ErrInvalidValue)
	}

	p := &Parameter{
		name:      name,
		label:     name,
		validator: Anything(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// Label returns the human-readable label.
func (p *Parameter) Label() string { return p.label }

// Unit returns the physical unit, which may be empty.
func (p *Parameter) Unit() string { return p.unit }

// Validator returns the parameter's validator.
func (p *Parameter) Validator() Validator { return p.validator }

// Gettable reports whether Get reaches an instrument.
func (p *Parameter) Gettable() bool { return p.get != nil }

// Settable reports whether Set reaches an instrument.
func (p *Parameter) Settable() bool { return p.set != nil }

// Get returns the current value. With a getter bound it performs a
// fresh read and updates the cache; without one it returns the cached
// value, or ErrNotGettable when nothing was ever set.
func (p *Parameter) Get() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.get == nil {
		if p.timestamp.IsZero() {
			return nil, fmt.Errorf("%w: %q has no getter and no value", ErrNotGettable, p.name)
		}
		return p.value, nil
	}

	value, err := p.get()
	if err != nil {
		return nil, fmt.Errorf("getting %q: %w", p.name, err)
	}
	p.value = value
	p.timestamp = time.Now().UTC()
	return value, nil
}

// Set validates value, applies it through the setter if one is bound,
// and updates the cache. A validation failure leaves the cache
// untouched. Bare parameters accept Set as a pure cache write.
func (p *Parameter) Set(value any) error {
	if err := p.validator.Validate(value); err != nil {
		return fmt.Errorf("setting %q: %w", p.name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.set != nil {
		if err := p.set(value); err != nil {
			return fmt.Errorf("setting %q: %w", p.name, err)
		}
	}
	p.value = value
	p.timestamp = time.Now().UTC()
	return nil
}

// Cached returns the last value seen and its timestamp without touching
// the instrument. The timestamp is zero when no value was ever seen.
func (p *Parameter) Cached() (any, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.timestamp
}

// Snapshot reports the parameter's metadata and cached state. It never
// performs instrument I/O; call Get first for a fresh value.
func (p *Parameter) Snapshot() (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := map[string]any{
		"name":      p.name,
		"label":     p.label,
		"unit":      p.unit,
		"validator": p.validator.String(),
		"value":     p.value,
	}
	if !p.timestamp.IsZero() {
		snap["timestamp"] = p.timestamp.Format(time.RFC3339Nano)
	}
	return snap, nil
}
