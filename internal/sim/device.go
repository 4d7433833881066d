package sim

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// sortedKeys returns the keys of a property map in sorted order.
func sortedKeys(m map[string]PropertySpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Device is the runtime form of a DeviceSpec: a compiled lookup structure
// that resolves request strings to response strings and keeps the mutable
// device state (property values, error queue, status registers).
//
// Resolution order for a request:
//  1. error-queue query (pops FIFO, or returns the empty sentinel)
//  2. status-register queries (return the latched bitmask, no clear)
//  3. fixed dialogues (exact match)
//  4. the built-in *CLS clear (queue and registers zeroed together)
//  5. property getters (exact match after channel binding)
//  6. property setters (pattern match with value extraction)
//  7. fallback: one CommandError record is queued and the command-error
//     bit is latched in every status register
//
// Device errors are queryable state, never Go errors: a rejected setter
// or unknown command responds with nothing and records the failure the
// way a real instrument would.
//
// Thread Safety: all methods are safe for concurrent use. The error
// queue and status registers are updated atomically as a unit under one
// mutex.
type Device struct {
	name string
	eom  map[string]EOMSpec

	mu        sync.Mutex
	dialogues map[string]string
	getters   map[string]*propertyState
	setters   []*setterBinding
	props     map[string]*propertyState
	queue     []string
	queueSpec *ErrorQueueSpec
	registers []*statusRegister
}

// propertyState holds one property instance (per channel when the
// property is channelised) and its current value.
type propertyState struct {
	name     string
	channel  string // empty for root-level properties
	spec     PropertySpec
	getterR  *Pattern // channel-bound response template, nil when get-only is absent
	defValue any
	value    any
}

// setterBinding pairs a channel-bound setter query pattern with its
// property state.
type setterBinding struct {
	state    *propertyState
	pattern  *Pattern
	response *Pattern // nil for pure commands
}

// statusRegister is one latched error bitmask.
type statusRegister struct {
	query        string
	commandError int
	queryError   int
	value        int
}

// NewDevice compiles a DeviceSpec into a runtime Device.
// Compilation fails if templates are malformed or two entries compile to
// the same query, which would make resolution ambiguous.
func NewDevice(name string, spec DeviceSpec) (*Device, error) {
	d := &Device{
		name:      name,
		eom:       spec.EOM,
		dialogues: make(map[string]string, len(spec.Dialogues)),
		getters:   make(map[string]*propertyState),
		props:     make(map[string]*propertyState),
		queueSpec: spec.Error.ErrorQueue,
	}

	for _, reg := range spec.Error.StatusRegisters {
		d.registers = append(d.registers, &statusRegister{
			query:        reg.Q,
			commandError: reg.CommandError,
			queryError:   reg.QueryError,
		})
	}

	for _, dlg := range spec.Dialogues {
		if _, dup := d.dialogues[dlg.Q]; dup {
			return nil, fmt.Errorf("%w: dialogue %q declared twice", ErrDuplicatePattern, dlg.Q)
		}
		d.dialogues[dlg.Q] = dlg.R
	}

	// Compile in sorted name order so setter matching order is
	// deterministic across runs.
	for _, propName := range sortedKeys(spec.Properties) {
		if err := d.compileProperty(propName, "", spec.Properties[propName]); err != nil {
			return nil, err
		}
	}

	if spec.Channels != nil {
		for _, chID := range spec.Channels.IDs {
			for _, propName := range sortedKeys(spec.Channels.Properties) {
				if err := d.compileProperty(propName, chID, spec.Channels.Properties[propName]); err != nil {
					return nil, err
				}
			}
		}
	}

	return d, nil
}

// compileProperty binds one property instance for the given channel
// (empty channel means root level) and registers its getter and setter.
func (d *Device) compileProperty(name, chID string, spec PropertySpec) error {
	defValue, err := coerceDefault(spec.Specs.Type, spec.Default)
	if err != nil {
		return fmt.Errorf("property %q default: %w", name, err)
	}

	state := &propertyState{
		name:     name,
		channel:  chID,
		spec:     spec,
		defValue: defValue,
		value:    defValue,
	}

	key := name
	if chID != "" {
		key = name + "@" + chID
	}
	if _, dup := d.props[key]; dup {
		return fmt.Errorf("%w: property %q declared twice", ErrDuplicatePattern, key)
	}
	d.props[key] = state

	if spec.Getter != nil {
		q, err := ParsePattern(spec.Getter.Q)
		if err != nil {
			return fmt.Errorf("property %q getter: %w", name, err)
		}
		if q.HasValue() {
			return fmt.Errorf("%w: property %q getter query contains a value placeholder",
				ErrPatternSyntax, name)
		}
		r, err := ParsePattern(spec.Getter.R)
		if err != nil {
			return fmt.Errorf("property %q getter response: %w", name, err)
		}

		bound := q.BindChannel(chID).Raw()
		if _, dup := d.getters[bound]; dup {
			return fmt.Errorf("%w: getter query %q declared twice", ErrDuplicatePattern, bound)
		}
		if _, dup := d.dialogues[bound]; dup {
			return fmt.Errorf("%w: getter query %q shadows a dialogue", ErrDuplicatePattern, bound)
		}
		state.getterR = r.BindChannel(chID)
		d.getters[bound] = state
	}

	if spec.Setter != nil {
		q, err := ParsePattern(spec.Setter.Q)
		if err != nil {
			return fmt.Errorf("property %q setter: %w", name, err)
		}
		if !q.HasValue() {
			return fmt.Errorf("%w: property %q setter query has no value placeholder",
				ErrPatternSyntax, name)
		}

		binding := &setterBinding{
			state:   state,
			pattern: q.BindChannel(chID),
		}
		for _, existing := range d.setters {
			if existing.pattern.Raw() == binding.pattern.Raw() {
				return fmt.Errorf("%w: setter query %q declared twice",
					ErrDuplicatePattern, binding.pattern.Raw())
			}
		}
		if spec.Setter.R != "" {
			r, err := ParsePattern(spec.Setter.R)
			if err != nil {
				return fmt.Errorf("property %q setter response: %w", name, err)
			}
			binding.response = r.BindChannel(chID)
		}
		d.setters = append(d.setters, binding)
	}

	return nil
}

// Name returns the device name from the description file.
func (d *Device) Name() string {
	return d.name
}

// EOM returns the end-of-message terminators for an interface type.
func (d *Device) EOM(interfaceType string) (EOMSpec, bool) {
	eom, ok := d.eom[interfaceType]
	return eom, ok
}

// Process resolves one request string to a response.
//
// The returned bool reports whether the device produced a response at
// all: pure commands (setters without a response template) and
// unrecognised requests respond with nothing.
func (d *Device) Process(request string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Malformed request: nothing to parse.
	if request == "" {
		d.recordQueryErrorLocked()
		return "", false
	}

	// Error-queue read pops FIFO; empty queue returns the sentinel.
	if d.queueSpec != nil && request == d.queueSpec.Q {
		if len(d.queue) == 0 {
			return d.queueSpec.Default, true
		}
		record := d.queue[0]
		d.queue = d.queue[1:]
		return record, true
	}

	// Status-register reads return the latched value without clearing.
	for _, reg := range d.registers {
		if request == reg.query {
			return strconv.Itoa(reg.value), true
		}
	}

	if response, ok := d.dialogues[request]; ok {
		return response, true
	}

	// *CLS clears the error queue and status registers together. A
	// declared dialogue with the same query takes precedence above.
	if request == "*CLS" {
		d.queue = nil
		for _, reg := range d.registers {
			reg.value = 0
		}
		return "", false
	}

	if state, ok := d.getters[request]; ok {
		response, err := state.getterR.Render(state.value)
		if err != nil {
			// A render failure means the description and stored value
			// disagree; surface it the instrument way.
			d.recordCommandErrorLocked()
			return "", false
		}
		return response, true
	}

	for _, binding := range d.setters {
		raw, ok := binding.pattern.Match(request)
		if !ok {
			continue
		}

		value, err := parseTypedValue(binding.state.spec.Specs.Type, raw)
		if err != nil {
			// Wrong-type value: rejected, stored value unchanged.
			d.recordCommandErrorLocked()
			return "", false
		}
		if !binding.state.accepts(raw, value) {
			// Out-of-range value: rejected, stored value unchanged.
			d.recordCommandErrorLocked()
			return "", false
		}

		binding.state.value = value

		if binding.response != nil {
			response, err := binding.response.Render(value)
			if err != nil {
				d.recordCommandErrorLocked()
				return "", false
			}
			return response, true
		}
		return "", false
	}

	// Unrecognised request.
	d.recordCommandErrorLocked()
	return "", false
}

// accepts validates a parsed setter value against the property's specs.
func (s *propertyState) accepts(raw string, value any) bool {
	specs := s.spec.Specs

	if len(specs.Valid) > 0 {
		found := false
		for _, v := range specs.Valid {
			if v == raw {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if specs.Min != nil || specs.Max != nil {
		f, err := toFloat(value)
		if err != nil {
			return false
		}
		if specs.Min != nil && f < *specs.Min {
			return false
		}
		if specs.Max != nil && f > *specs.Max {
			return false
		}
	}

	return true
}

// recordCommandErrorLocked queues a command-error record and latches the
// command-error bit in every status register. Queue append and bit set
// happen together under the device mutex.
func (d *Device) recordCommandErrorLocked() {
	if d.queueSpec != nil && d.queueSpec.CommandError != "" {
		d.queue = append(d.queue, d.queueSpec.CommandError)
	}
	for _, reg := range d.registers {
		reg.value |= reg.commandError
	}
}

// recordQueryErrorLocked queues a query-error record and latches the
// query-error bit in every status register.
func (d *Device) recordQueryErrorLocked() {
	if d.queueSpec != nil && d.queueSpec.QueryError != "" {
		d.queue = append(d.queue, d.queueSpec.QueryError)
	}
	for _, reg := range d.registers {
		reg.value |= reg.queryError
	}
}

// Reset clears the error queue, zeroes all status registers, and
// restores every property to its declared default. Clearing is a
// deliberate explicit action; reading a status register never clears it.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queue = nil
	for _, reg := range d.registers {
		reg.value = 0
	}
	for _, state := range d.props {
		state.value = state.defValue
	}
}

// PendingErrors returns the number of unread error records.
func (d *Device) PendingErrors() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// PropertyValue returns the current value of a property. The channel id
// is empty for root-level properties.
func (d *Device) PropertyValue(name, channel string) (any, bool) {
	key := name
	if channel != "" {
		key = name + "@" + channel
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	state, ok := d.props[key]
	if !ok {
		return nil, false
	}
	return state.value, true
}

// Snapshot captures the device's current property values, pending error
// count, and status register values. It satisfies the station component
// contract so simulated devices can be registered directly.
func (d *Device) Snapshot() (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	properties := make(map[string]any, len(d.props))
	for key, state := range d.props {
		properties[key] = state.value
	}

	registers := make(map[string]any, len(d.registers))
	for _, reg := range d.registers {
		registers[reg.query] = reg.value
	}

	return map[string]any{
		"name":           d.name,
		"properties":     properties,
		"pending_errors": len(d.queue),
		"registers":      registers,
	}, nil
}
