// Package bus provides the virtual instrument bus for labstation.
//
// A Bus binds VISA-style resource addresses (as declared in the
// simulation description's resources section) to simulated devices and
// hands out sessions. A Session is a strictly synchronous request/
// response channel: one blocking round trip at a time, end-of-message
// terminators applied per the device's eom declaration for the
// address's interface type.
//
// Device-level failures (unknown command, rejected value) never surface
// as Go errors from a session; they live in the device's error queue
// and status registers and are read back with the declared queries,
// mirroring how real instruments behave.
package bus
