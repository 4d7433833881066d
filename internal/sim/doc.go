// Package sim provides the simulated-instrument engine for labstation.
//
// Devices are declared in YAML description files and compiled into
// request/response resolvers. A description declares, per device:
//
//   - dialogues: literal query/response pairs
//   - properties: gettable/settable values with type and range validation
//   - channels: per-channel property schemas with "{ch_id}" substitution
//   - error: an error queue and latched status registers
//   - eom: end-of-message terminators per interface type
//
// # Resolution model
//
// Every request is resolved in a fixed order: error-queue query, status
// register queries, dialogues, property getters, property setters, then
// a command-error fallback. Device errors are never returned as Go
// errors to the transport caller; they are recorded in the error queue
// and status registers exactly the way a real instrument latches them,
// and read back with the declared queries.
//
// # Usage
//
//	registry, err := sim.Load("configs/sim/keysight_b1500.yaml")
//	if err != nil {
//	    return err
//	}
//	device, _ := registry.Resource("GPIB0::17::INSTR")
//	response, ok := device.Process("*IDN?")
//
// The bus package wraps this with terminator handling and per-device
// request serialisation.
package sim
