package sim

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the compiled simulated devices and their resource
// bindings. Multiple description files can be merged into one registry;
// duplicate device names or resource addresses are a load error.
//
// Thread Safety: all methods are safe for concurrent use. Loading is
// expected at startup, lookups afterwards.
type Registry struct {
	mu        sync.RWMutex
	devices   map[string]*Device
	resources map[string]string // resource address -> device name
}

// NewRegistry creates an empty simulation registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:   make(map[string]*Device),
		resources: make(map[string]string),
	}
}

// Load reads and merges the given description files into a new registry.
func Load(paths ...string) (*Registry, error) {
	r := NewRegistry()
	for _, path := range paths {
		desc, err := LoadDescription(path)
		if err != nil {
			return nil, err
		}
		if err := r.AddDescription(desc); err != nil {
			return nil, fmt.Errorf("merging %s: %w", path, err)
		}
	}
	return r, nil
}

// AddDescription compiles a parsed description and merges its devices
// and resource bindings into the registry.
func (r *Registry) AddDescription(desc *Description) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Compile devices in sorted order for deterministic error reporting.
	names := make([]string, 0, len(desc.Devices))
	for name := range desc.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, dup := r.devices[name]; dup {
			return fmt.Errorf("%w: %q", ErrDeviceExists, name)
		}
		device, err := NewDevice(name, desc.Devices[name])
		if err != nil {
			return fmt.Errorf("compiling device %q: %w", name, err)
		}
		r.devices[name] = device
	}

	for address, res := range desc.Resources {
		if _, dup := r.resources[address]; dup {
			return fmt.Errorf("%w: %q", ErrResourceExists, address)
		}
		r.resources[address] = res.Device
	}

	return nil
}

// Device returns a device by name.
func (r *Registry) Device(name string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}
	return device, nil
}

// Resource returns the device bound to a resource address.
func (r *Registry) Resource(address string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.resources[address]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrResourceNotFound, address)
	}
	return r.devices[name], nil
}

// DeviceNames returns all device names, sorted.
func (r *Registry) DeviceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResourceAddresses returns all bound resource addresses, sorted.
func (r *Registry) ResourceAddresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addresses := make([]string, 0, len(r.resources))
	for address := range r.resources {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// ResourceBindings returns a copy of the address → device-name map.
func (r *Registry) ResourceBindings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bindings := make(map[string]string, len(r.resources))
	for address, name := range r.resources {
		bindings[address] = name
	}
	return bindings
}
