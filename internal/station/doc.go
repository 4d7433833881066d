// Package station provides the component registry for labstation.
//
// A Station is a flat, name-keyed collection of measurement components
// (instruments, bare parameters, simulated devices, anything
// implementing the Snapshotter capability). It supports add/remove/get
// by name and recursive snapshot collection: Station.Snapshot merges
// every component's own snapshot keyed by its registered name, and a
// station is itself a Snapshotter so stations nest.
//
// # Name rules
//
// Names are unique within a station. Adding a bound name fails with
// ErrNameConflict and leaves the original binding intact; rebinding
// requires an explicit Remove first. A short list of names is reserved
// for the station's own surface.
//
// # Default station
//
// The process-wide default is an explicit convenience holder: nothing
// sets it implicitly except the AsDefault construction option, and it
// must be cleared (ClearDefault) when the designated station is torn
// down. Prefer passing a *Station directly.
//
// # Persistence
//
// SnapshotRepository stores taken snapshots as JSON rows in SQLite,
// keyed by UUID, for later inspection through the HTTP API.
//
// # Usage
//
//	st, err := station.New("bench-1", nil, station.AsDefault())
//	if err != nil {
//	    return err
//	}
//	if err := st.Add("b1500", driver); err != nil {
//	    return err
//	}
//	snap, _ := st.Snapshot()
package station
