// Package b1500 drives a Keysight B1500 semiconductor parameter
// analyzer over a bus session.
//
// The B1500 speaks FLEX, a terse command language where a program line
// is a semicolon-joined list of commands ("CN 1,2;DV 1,0,1.5;TV 1").
// MessageBuilder accumulates such lines fluently; Driver wraps the
// common operations (sourcing, spot measurements, triggered
// acquisition and error queue draining) over any Transport.
package b1500
