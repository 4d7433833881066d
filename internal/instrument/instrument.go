package instrument

import (
	"fmt"
	"sort"
	"sync"
)

// Transport is the write/query surface an instrument needs from a bus
// session. *bus.Session satisfies it.
type Transport interface {
	Write(cmd string) error
	QueryTrimmed(request string) (string, error)
}

// Logger defines the logging interface used by instruments.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Instrument groups parameters and channel sub-instruments behind one
// name. It is a station component: Snapshot recurses into every
// parameter and channel.
//
// Thread Safety: the parameter and channel tables are guarded by a
// RWMutex; parameter I/O itself serialises on each Parameter.
type Instrument struct {
	name      string
	transport Transport
	logger    Logger

	mu       sync.RWMutex
	params   map[string]*Parameter
	channels map[string]*Instrument
	closed   bool
}

// New creates an instrument bound to a transport. A nil transport is
// allowed for purely virtual instruments.
func New(name string, transport Transport) (*Instrument, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty instrument name", ErrInvalidValue)
	}
	return &Instrument{
		name:      name,
		transport: transport,
		logger:    noopLogger{},
		params:    make(map[string]*Parameter),
		channels:  make(map[string]*Instrument),
	}, nil
}

// SetLogger sets the logger for the instrument.
func (ins *Instrument) SetLogger(logger Logger) {
	ins.logger = logger
}

// Name returns the instrument name.
func (ins *Instrument) Name() string { return ins.name }

// Transport returns the bound transport, which may be nil.
func (ins *Instrument) Transport() Transport { return ins.transport }

// AddParameter registers a parameter under its own name.
func (ins *Instrument) AddParameter(p *Parameter) error {
	if p == nil {
		return fmt.Errorf("%w: nil parameter", ErrInvalidValue)
	}

	ins.mu.Lock()
	defer ins.mu.Unlock()

	if _, exists := ins.params[p.Name()]; exists {
		return fmt.Errorf("%w: %q on %q", ErrParameterExists, p.Name(), ins.name)
	}
	ins.params[p.Name()] = p

	ins.logger.Debug("parameter added", "instrument", ins.name, "parameter", p.Name())
	return nil
}

// Parameter looks up a parameter by name.
func (ins *Instrument) Parameter(name string) (*Parameter, error) {
	ins.mu.RLock()
	defer ins.mu.RUnlock()

	p, ok := ins.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", ErrParameterNotFound, name, ins.name)
	}
	return p, nil
}

// ParameterNames returns the registered parameter names, sorted.
func (ins *Instrument) ParameterNames() []string {
	ins.mu.RLock()
	defer ins.mu.RUnlock()

	names := make([]string, 0, len(ins.params))
	for name := range ins.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddChannel registers a sub-instrument under a channel name.
func (ins *Instrument) AddChannel(name string, ch *Instrument) error {
	if name == "" || ch == nil {
		return fmt.Errorf("%w: channel needs a name and an instrument", ErrInvalidValue)
	}

	ins.mu.Lock()
	defer ins.mu.Unlock()

	if _, exists := ins.channels[name]; exists {
		return fmt.Errorf("%w: %q on %q", ErrChannelExists, name, ins.name)
	}
	ins.channels[name] = ch
	return nil
}

// Channel looks up a sub-instrument by channel name.
func (ins *Instrument) Channel(name string) (*Instrument, error) {
	ins.mu.RLock()
	defer ins.mu.RUnlock()

	ch, ok := ins.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", ErrChannelNotFound, name, ins.name)
	}
	return ch, nil
}

// ChannelNames returns the registered channel names, sorted.
func (ins *Instrument) ChannelNames() []string {
	ins.mu.RLock()
	defer ins.mu.RUnlock()

	names := make([]string, 0, len(ins.channels))
	for name := range ins.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot reports the instrument's parameters and channels. Parameter
// snapshots carry cached values only; refresh with Get before
// snapshotting if fresh readings are needed.
func (ins *Instrument) Snapshot() (map[string]any, error) {
	ins.mu.RLock()
	params := make(map[string]*Parameter, len(ins.params))
	for name, p := range ins.params {
		params[name] = p
	}
	channels := make(map[string]*Instrument, len(ins.channels))
	for name, ch := range ins.channels {
		channels[name] = ch
	}
	ins.mu.RUnlock()

	paramSnaps := make(map[string]any, len(params))
	for name, p := range params {
		snap, err := p.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("snapshotting parameter %q: %w", name, err)
		}
		paramSnaps[name] = snap
	}

	channelSnaps := make(map[string]any, len(channels))
	for name, ch := range channels {
		snap, err := ch.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("snapshotting channel %q: %w", name, err)
		}
		channelSnaps[name] = snap
	}

	snap := map[string]any{
		"name":       ins.name,
		"parameters": paramSnaps,
	}
	if len(channelSnaps) > 0 {
		snap["channels"] = channelSnaps
	}
	return snap, nil
}

// Close releases the transport. Further parameter I/O through closures
// capturing the transport is the caller's responsibility to stop; Close
// exists so owners of real connections have a single teardown point.
func (ins *Instrument) Close() error {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	if ins.closed {
		return nil
	}
	ins.closed = true

	if closer, ok := ins.transport.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("closing %q transport: %w", ins.name, err)
		}
	}
	ins.transport = nil
	return nil
}
