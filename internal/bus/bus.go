package bus

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ThorvaldLarsen/labstation/internal/sim"
)

// Logger defines the logging interface used by the bus.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Bus is the virtual instrument bus. It resolves resource addresses to
// simulated devices and hands out sessions for synchronous round trips.
//
// Thread Safety: Open may be called concurrently; each Session
// serialises its own round trips against the underlying device.
type Bus struct {
	registry *sim.Registry
	logger   Logger
}

// New creates a bus over a simulation registry.
func New(registry *sim.Registry) *Bus {
	return &Bus{
		registry: registry,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the bus and its sessions.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// Open resolves a resource address and returns a session bound to its
// device. Returns sim.ErrResourceNotFound when the address has no
// binding.
func (b *Bus) Open(address string) (*Session, error) {
	device, err := b.registry.Resource(address)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", address, err)
	}

	iface := InterfaceType(address)
	eom, ok := device.EOM(iface)
	if !ok {
		// No terminators declared for this interface type; fall back to
		// bare strings.
		eom = sim.EOMSpec{}
	}

	b.logger.Debug("session opened", "address", address, "device", device.Name(), "interface", iface)

	return &Session{
		address: address,
		device:  device,
		eom:     eom,
		logger:  b.logger,
	}, nil
}

// Addresses returns all bound resource addresses, sorted.
func (b *Bus) Addresses() []string {
	return b.registry.ResourceAddresses()
}

// Bindings returns a copy of the address → device-name map.
func (b *Bus) Bindings() map[string]string {
	return b.registry.ResourceBindings()
}

// InterfaceType derives the interface type of a VISA-style resource
// address: "GPIB0::17::INSTR" → "GPIB INSTR".
func InterfaceType(address string) string {
	head, _, ok := strings.Cut(address, "::")
	if !ok {
		return address
	}

	// Strip the trailing board index from the interface prefix.
	end := len(head)
	for end > 0 && head[end-1] >= '0' && head[end-1] <= '9' {
		end--
	}

	kind := "INSTR"
	if idx := strings.LastIndex(address, "::"); idx >= 0 {
		kind = address[idx+2:]
	}
	return head[:end] + " " + kind
}

// Session is a synchronous connection to one simulated device.
//
// Every interaction is a blocking round trip; a session never has more
// than one request in flight. There is no timeout, cancellation, or
// retry logic here; that belongs to a real transport.
type Session struct {
	address string
	device  *sim.Device
	eom     sim.EOMSpec
	logger  Logger

	mu sync.Mutex
}

// Address returns the resource address the session was opened with.
func (s *Session) Address() string {
	return s.address
}

// Device returns the underlying simulated device.
func (s *Session) Device() *sim.Device {
	return s.device
}

// Write sends a command that expects no response. A response produced
// anyway (for example a setter with a response template) is discarded
// with a warning.
func (s *Session) Write(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	response, ok := s.device.Process(s.strip(cmd))
	if ok && response != "" {
		s.logger.Warn("write discarded a response", "address", s.address, "command", cmd)
	}
	return nil
}

// Query sends a request and returns the device's response with the
// response terminator appended. Queries the device does not answer
// (pure commands, unrecognised requests) return an empty string; the
// failure, if any, is recorded in the device's own error queue, not
// returned here.
func (s *Session) Query(request string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response, ok := s.device.Process(s.strip(request))
	if !ok {
		return "", nil
	}
	return response + s.eom.R, nil
}

// QueryTrimmed is Query with the response terminator stripped, which is
// what drivers almost always want.
func (s *Session) QueryTrimmed(request string) (string, error) {
	response, err := s.Query(request)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(response, s.eom.R), nil
}

// strip removes the query terminator from an outgoing request.
func (s *Session) strip(request string) string {
	return strings.TrimSuffix(request, s.eom.Q)
}
