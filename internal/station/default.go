package station

import "sync"

// The default-station holder is an explicit convenience with a
// documented lifecycle: nothing sets it implicitly except the AsDefault
// construction option, and ClearDefault must be called when the
// designated station is torn down. Consumers that can take a *Station
// directly should prefer that over Default.
var (
	defaultMu      sync.RWMutex
	defaultStation *Station
)

// SetDefault designates s as the process-wide default station,
// replacing any previous designation. Passing nil is equivalent to
// ClearDefault.
func SetDefault(s *Station) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultStation = s
}

// Default returns the designated default station, or ErrNoDefault when
// none is set.
func Default() (*Station, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	if defaultStation == nil {
		return nil, ErrNoDefault
	}
	return defaultStation, nil
}

// ClearDefault removes the default designation. It is safe to call when
// no default is set.
func ClearDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultStation = nil
}
