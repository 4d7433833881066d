package station

import (
	"fmt"
	"sort"
	"sync"
)

// Snapshotter is the capability every station component provides: a
// recursive, serialisable capture of its current configuration/state.
// Components that aggregate sub-components (instruments with channels,
// nested stations) recurse inside their own Snapshot.
type Snapshotter interface {
	Snapshot() (map[string]any, error)
}

// Logger defines the logging interface used by the Station.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// reservedNames are component names the station claims for its own
// snapshot keys and lookup surface.
var reservedNames = map[string]struct{}{
	"station":    {},
	"components": {},
	"default":    {},
	"snapshot":   {},
}

// Station is a flat, name-keyed registry of measurement components.
//
// Names are unique: re-adding a bound name fails with ErrNameConflict
// and leaves the original binding intact; rebinding requires an explicit
// Remove first. The station holds references only; component lifetime
// is independent and a component may be closed externally while still
// registered.
//
// Thread Safety: all methods are safe for concurrent use.
type Station struct {
	name string

	mu         sync.RWMutex
	components map[string]Snapshotter

	logger Logger
}

// Option configures a Station at construction time.
type Option func(*Station)

// WithLogger sets the station logger.
func WithLogger(logger Logger) Option {
	return func(s *Station) { s.logger = logger }
}

// AsDefault designates the new station as the process-wide default,
// replacing any previous designation.
func AsDefault() Option {
	return func(s *Station) { SetDefault(s) }
}

// New creates a station with zero or more pre-built components.
// Options apply first so construction-time adds go through the
// configured logger; components are then added in sorted name order and
// the first add error aborts construction.
func New(name string, components map[string]Snapshotter, opts ...Option) (*Station, error) {
	s := &Station{
		name:       name,
		components: make(map[string]Snapshotter),
		logger:     noopLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	names := make([]string, 0, len(components))
	for n := range components {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := s.Add(n, components[n]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Name returns the station name.
func (s *Station) Name() string {
	return s.name
}

// Add binds a component under a unique name.
// Fails with ErrNameConflict if the name is bound, ErrReservedName if
// the name collides with the station's own surface.
func (s *Station) Add(name string, component Snapshotter) error {
	if name == "" {
		return ErrInvalidName
	}
	if _, reserved := reservedNames[name]; reserved {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if component == nil {
		return fmt.Errorf("%w: nil component %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.components[name]; exists {
		return fmt.Errorf("%w: %q", ErrNameConflict, name)
	}

	s.components[name] = component
	s.logger.Info("component added", "station", s.name, "name", name)
	return nil
}

// Remove unbinds a component. The component itself is not closed; its
// lifetime is the caller's concern.
func (s *Station) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.components[name]; !exists {
		return fmt.Errorf("%w: %q", ErrNameNotFound, name)
	}

	delete(s.components, name)
	s.logger.Info("component removed", "station", s.name, "name", name)
	return nil
}

// Get returns the component bound to name. The returned reference is
// identical to the one that was added.
func (s *Station) Get(name string) (Snapshotter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	component, exists := s.components[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrNameNotFound, name)
	}
	return component, nil
}

// Names returns the bound component names, sorted.
func (s *Station) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bound components.
func (s *Station) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.components)
}

// Snapshot captures every component's snapshot keyed by registered name.
//
// A component whose Snapshot fails is recorded as a per-component error
// marker {"snapshot_error": "<message>"} under its name; the failure is
// never silently swallowed and never aborts the other components. The
// station itself satisfies Snapshotter, so stations nest.
func (s *Station) Snapshot() (map[string]any, error) {
	s.mu.RLock()
	snapshot := make(map[string]Snapshotter, len(s.components))
	for name, component := range s.components {
		snapshot[name] = component
	}
	s.mu.RUnlock()

	// Snapshot outside the lock: component snapshots may be slow
	// (instrument round trips) and must not block Add/Remove.
	components := make(map[string]any, len(snapshot))
	for name, component := range snapshot {
		data, err := component.Snapshot()
		if err != nil {
			s.logger.Warn("component snapshot failed", "station", s.name, "name", name, "error", err)
			components[name] = map[string]any{"snapshot_error": err.Error()}
			continue
		}
		components[name] = data
	}

	return map[string]any{
		"station":    s.name,
		"components": components,
	}, nil
}
