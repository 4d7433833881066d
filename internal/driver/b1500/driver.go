package b1500

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Transport is the write/query surface the driver needs from a bus
// session. *bus.Session satisfies it.
type Transport interface {
	Write(cmd string) error
	QueryTrimmed(request string) (string, error)
}

// Logger defines the logging interface used by the driver.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// errorQueueDrainLimit caps ReadErrorQueue round trips so a device that
// never reports "no error" cannot hang the driver.
const errorQueueDrainLimit = 64

// ErrorRecord is one entry drained from the instrument error queue.
type ErrorRecord struct {
	Code    int
	Message string
}

// Driver drives a Keysight B1500 over a bus session using FLEX
// commands.
//
// Thread Safety: the underlying session serialises round trips; driver
// operations that issue several round trips (ReadErrorQueue,
// TriggeredAcquisition) assume they are not interleaved with other
// callers on the same session.
type Driver struct {
	transport Transport
	logger    Logger
}

// New creates a driver over an open session.
func New(transport Transport) *Driver {
	return &Driver{
		transport: transport,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the driver.
func (d *Driver) SetLogger(logger Logger) {
	d.logger = logger
}

// Identify queries the instrument identification string.
func (d *Driver) Identify() (string, error) {
	return d.transport.QueryTrimmed("*IDN?")
}

// EnableChannels switches on the given channels, or all channels when
// none are given.
func (d *Driver) EnableChannels(channels ...int) error {
	return d.transport.Write(NewMessageBuilder().CN(channels...).String())
}

// DisableChannels switches off the given channels, or all channels when
// none are given.
func (d *Driver) DisableChannels(channels ...int) error {
	return d.transport.Write(NewMessageBuilder().CL(channels...).String())
}

// SourceVoltage programs a DC voltage on a channel using auto ranging.
func (d *Driver) SourceVoltage(channel int, voltage float64) error {
	d.logger.Debug("source voltage", "channel", channel, "voltage", voltage)
	return d.transport.Write(NewMessageBuilder().DV(channel, 0, voltage).String())
}

// SourceCurrent programs a DC current on a channel using auto ranging.
func (d *Driver) SourceCurrent(channel int, current float64) error {
	d.logger.Debug("source current", "channel", channel, "current", current)
	return d.transport.Write(NewMessageBuilder().DI(channel, 0, current).String())
}

// MeasureVoltage takes a spot voltage measurement on a channel.
func (d *Driver) MeasureVoltage(channel int) (SpotResult, error) {
	return d.spot(fmt.Sprintf("TV? %d", channel))
}

// MeasureCurrent takes a spot current measurement on a channel.
func (d *Driver) MeasureCurrent(channel int) (SpotResult, error) {
	return d.spot(fmt.Sprintf("TI? %d", channel))
}

func (d *Driver) spot(request string) (SpotResult, error) {
	response, err := d.transport.QueryTrimmed(request)
	if err != nil {
		return SpotResult{}, fmt.Errorf("spot measurement: %w", err)
	}
	result, err := ParseSpot(response)
	if err != nil {
		return SpotResult{}, err
	}
	if !result.OK() {
		d.logger.Warn("spot measurement flagged", "status", result.Status, "channel", result.Channel)
	}
	return result, nil
}

// Execute sends an accumulated FLEX program line and clears the
// builder.
func (d *Driver) Execute(b *MessageBuilder) error {
	if b.Len() == 0 {
		return nil
	}
	line := b.String()
	b.Clear()
	d.logger.Debug("execute", "program", line)
	return d.transport.Write(line)
}

// Reset issues an instrument reset.
func (d *Driver) Reset() error {
	return d.transport.Write("*RST")
}

// ReadErrorQueue drains the instrument error queue until the no-error
// sentinel (code 0) and returns the drained records, oldest first.
func (d *Driver) ReadErrorQueue() ([]ErrorRecord, error) {
	var records []ErrorRecord

	for i := 0; i < errorQueueDrainLimit; i++ {
		response, err := d.transport.QueryTrimmed("ERR?")
		if err != nil {
			return records, fmt.Errorf("reading error queue: %w", err)
		}

		record, err := parseErrorRecord(response)
		if err != nil {
			return records, err
		}
		if record.Code == 0 {
			return records, nil
		}
		records = append(records, record)
	}

	return records, fmt.Errorf("error queue did not drain after %d reads", errorQueueDrainLimit)
}

// TriggeredAcquisition triggers n spot measurements and returns the
// decoded samples. Cancellation via ctx stops between triggers and
// returns the samples collected so far with the context error.
func (d *Driver) TriggeredAcquisition(ctx context.Context, n int) ([]SpotResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("acquisition needs a positive sample count, got %d", n)
	}

	samples := make([]SpotResult, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return samples, ctx.Err()
		default:
		}

		response, err := d.transport.QueryTrimmed("XE")
		if err != nil {
			return samples, fmt.Errorf("trigger %d: %w", i+1, err)
		}
		result, err := ParseSpot(response)
		if err != nil {
			return samples, fmt.Errorf("trigger %d: %w", i+1, err)
		}
		samples = append(samples, result)
	}
	return samples, nil
}

// parseErrorRecord decodes an error queue entry such as
// `102,"Command error"`.
func parseErrorRecord(s string) (ErrorRecord, error) {
	codeText, message, ok := strings.Cut(s, ",")
	if !ok {
		return ErrorRecord{}, fmt.Errorf("error record %q: missing message", s)
	}

	code, err := strconv.Atoi(strings.TrimSpace(codeText))
	if err != nil {
		return ErrorRecord{}, fmt.Errorf("error record %q: %w", s, err)
	}

	return ErrorRecord{
		Code:    code,
		Message: strings.Trim(strings.TrimSpace(message), `"`),
	}, nil
}
