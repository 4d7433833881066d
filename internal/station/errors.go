package station

import "errors"

// Domain errors for the station package.
//
// Registry-level errors are local usage errors: they fail fast and
// synchronously, unlike simulated-device errors which are queryable
// instrument state.
var (
	// ErrNameConflict is returned when adding a component under a name
	// that is already bound. Rebinding requires an explicit Remove first.
	ErrNameConflict = errors.New("station: name already in use")

	// ErrNameNotFound is returned when removing or looking up a name
	// with no binding.
	ErrNameNotFound = errors.New("station: name not found")

	// ErrReservedName is returned when adding a component under a name
	// the station reserves for itself.
	ErrReservedName = errors.New("station: reserved name")

	// ErrInvalidName is returned for empty component names.
	ErrInvalidName = errors.New("station: invalid name")

	// ErrNoDefault is returned by Default when no default station has
	// been designated.
	ErrNoDefault = errors.New("station: no default station set")

	// ErrSnapshotNotFound is returned when a persisted snapshot id does
	// not exist.
	ErrSnapshotNotFound = errors.New("station: snapshot not found")
)
