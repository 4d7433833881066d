// Package instrument models lab instruments as named collections of
// validated parameters.
//
// A Parameter is one knob or readout: it carries a validator, optional
// get/set functions bound to a bus session, and a cache of the last
// value seen. An Instrument groups parameters and channel
// sub-instruments and snapshots them recursively, so instruments plug
// straight into a station as components. Bare parameters work as
// components too.
//
// Validation happens before any instrument I/O: a rejected value never
// reaches the transport and never disturbs the cache.
//
//	volt, _ := instrument.NewParameter("voltage",
//	    instrument.WithUnit("V"),
//	    instrument.WithValidator(instrument.Numbers(-10, 10)),
//	    instrument.WithSetter(func(v any) error {
//	        return session.Write(fmt.Sprintf("SOUR:VOLT %v", v))
//	    }),
//	)
package instrument
