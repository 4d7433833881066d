package b1500

import (
	"strconv"
	"strings"
)

// MessageBuilder accumulates FLEX commands and renders them as one
// semicolon-joined program line. Builders are cheap; they are not safe
// for concurrent use.
type MessageBuilder struct {
	commands []string
}

// NewMessageBuilder creates an empty builder.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{}
}

// add appends a command with optional arguments.
func (b *MessageBuilder) add(cmd string, args ...string) *MessageBuilder {
	if len(args) > 0 {
		cmd = cmd + " " + strings.Join(args, ",")
	}
	b.commands = append(b.commands, cmd)
	return b
}

// CN enables the given channels, or every channel when none are given.
func (b *MessageBuilder) CN(channels ...int) *MessageBuilder {
	return b.add("CN", intArgs(channels)...)
}

// CL disables the given channels, or every channel when none are given.
func (b *MessageBuilder) CL(channels ...int) *MessageBuilder {
	return b.add("CL", intArgs(channels)...)
}

// DV programs a DC voltage: channel, voltage range, output voltage and
// optional current compliance.
func (b *MessageBuilder) DV(channel, vrange int, voltage float64, compliance ...float64) *MessageBuilder {
	args := []string{
		strconv.Itoa(channel),
		strconv.Itoa(vrange),
		formatNum(voltage),
	}
	for _, c := range compliance {
		args = append(args, formatNum(c))
	}
	return b.add("DV", args...)
}

// DI programs a DC current: channel, current range, output current and
// optional voltage compliance.
func (b *MessageBuilder) DI(channel, irange int, current float64, compliance ...float64) *MessageBuilder {
	args := []string{
		strconv.Itoa(channel),
		strconv.Itoa(irange),
		formatNum(current),
	}
	for _, c := range compliance {
		args = append(args, formatNum(c))
	}
	return b.add("DI", args...)
}

// TV takes a spot voltage measurement on a channel with an optional
// measurement range.
func (b *MessageBuilder) TV(channel int, vrange ...int) *MessageBuilder {
	args := []string{strconv.Itoa(channel)}
	for _, r := range vrange {
		args = append(args, strconv.Itoa(r))
	}
	return b.add("TV", args...)
}

// TI takes a spot current measurement on a channel with an optional
// measurement range.
func (b *MessageBuilder) TI(channel int, irange ...int) *MessageBuilder {
	args := []string{strconv.Itoa(channel)}
	for _, r := range irange {
		args = append(args, strconv.Itoa(r))
	}
	return b.add("TI", args...)
}

// MM selects a measurement mode for the given channels.
func (b *MessageBuilder) MM(mode int, channels ...int) *MessageBuilder {
	args := append([]string{strconv.Itoa(mode)}, intArgs(channels)...)
	return b.add("MM", args...)
}

// XE triggers the configured measurement.
func (b *MessageBuilder) XE() *MessageBuilder {
	return b.add("XE")
}

// AV sets the number of averaging samples with an optional mode.
func (b *MessageBuilder) AV(samples int, mode ...int) *MessageBuilder {
	args := []string{strconv.Itoa(samples)}
	for _, m := range mode {
		args = append(args, strconv.Itoa(m))
	}
	return b.add("AV", args...)
}

// FMT sets the output data format and mode.
func (b *MessageBuilder) FMT(format int, mode ...int) *MessageBuilder {
	args := []string{strconv.Itoa(format)}
	for _, m := range mode {
		args = append(args, strconv.Itoa(m))
	}
	return b.add("FMT", args...)
}

// RST appends an instrument reset.
func (b *MessageBuilder) RST() *MessageBuilder {
	return b.add("*RST")
}

// ERR appends an error queue query.
func (b *MessageBuilder) ERR() *MessageBuilder {
	return b.add("ERR?")
}

// EMG appends an error message query for a specific error code.
func (b *MessageBuilder) EMG(code int) *MessageBuilder {
	return b.add("EMG?", strconv.Itoa(code))
}

// Raw appends an arbitrary command verbatim.
func (b *MessageBuilder) Raw(cmd string) *MessageBuilder {
	return b.add(cmd)
}

// Len returns the number of accumulated commands.
func (b *MessageBuilder) Len() int {
	return len(b.commands)
}

// String renders the accumulated program line.
func (b *MessageBuilder) String() string {
	return strings.Join(b.commands, ";")
}

// Clear discards the accumulated commands.
func (b *MessageBuilder) Clear() *MessageBuilder {
	b.commands = b.commands[:0]
	return b
}

func intArgs(values []int) []string {
	args := make([]string, len(values))
	for i, v := range values {
		args[i] = strconv.Itoa(v)
	}
	return args
}

// formatNum renders a float compactly, the way the instrument accepts
// programmed values: no trailing zeros, scientific only when shorter.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
