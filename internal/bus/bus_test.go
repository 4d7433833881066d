package bus

import (
	"errors"
	"strings"
	"testing"

	"github.com/ThorvaldLarsen/labstation/internal/sim"
)

const testDescription = `
spec: "1.1"
devices:
  smu:
    eom:
      GPIB INSTR:
        q: "\r\n"
        r: "\n"
    error:
      error_queue:
        q: "ERR?"
        default: "0"
        command_error: "100"
    dialogues:
      - q: "*IDN?"
        r: "labstation,smu,0,1.0"
    properties:
      voltage:
        default: 0.0
        getter:
          q: "V?"
          r: "{:.3f}"
        setter:
          q: "V {}"
        specs:
          type: float
          min: -5
          max: 5
resources:
  GPIB0::5::INSTR:
    device: smu
`

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	desc, err := sim.ParseDescription(strings.NewReader(testDescription))
	if err != nil {
		t.Fatalf("ParseDescription() error = %v", err)
	}
	registry := sim.NewRegistry()
	if err := registry.AddDescription(desc); err != nil {
		t.Fatalf("AddDescription() error = %v", err)
	}
	return New(registry)
}

func TestInterfaceType(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{address: "GPIB0::17::INSTR", want: "GPIB INSTR"},
		{address: "GPIB12::3::INSTR", want: "GPIB INSTR"},
		{address: "TCPIP0::localhost::INSTR", want: "TCPIP INSTR"},
		{address: "ASRL1::INSTR", want: "ASRL INSTR"},
		{address: "USB0::0x0957::0x0607::INSTR", want: "USB INSTR"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			if got := InterfaceType(tt.address); got != tt.want {
				t.Errorf("InterfaceType(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}

func TestBus_Open(t *testing.T) {
	b := newTestBus(t)

	session, err := b.Open("GPIB0::5::INSTR")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if session.Address() != "GPIB0::5::INSTR" {
		t.Errorf("Address() = %q", session.Address())
	}

	_, err = b.Open("GPIB0::9::INSTR")
	if !errors.Is(err, sim.ErrResourceNotFound) {
		t.Errorf("Open() error = %v, want ErrResourceNotFound", err)
	}
}

func TestSession_QueryAppliesTerminators(t *testing.T) {
	b := newTestBus(t)
	session, err := b.Open("GPIB0::5::INSTR")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// Query terminator on the request is stripped before matching;
	// response terminator is appended.
	got, err := session.Query("*IDN?\r\n")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got != "labstation,smu,0,1.0\n" {
		t.Errorf("Query(*IDN?) = %q", got)
	}

	trimmed, err := session.QueryTrimmed("*IDN?")
	if err != nil {
		t.Fatalf("QueryTrimmed() error = %v", err)
	}
	if trimmed != "labstation,smu,0,1.0" {
		t.Errorf("QueryTrimmed(*IDN?) = %q", trimmed)
	}
}

func TestSession_WriteThenQuery(t *testing.T) {
	b := newTestBus(t)
	session, err := b.Open("GPIB0::5::INSTR")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := session.Write("V 2.125"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := session.QueryTrimmed("V?")
	if err != nil {
		t.Fatalf("QueryTrimmed() error = %v", err)
	}
	if got != "2.125" {
		t.Errorf("V? = %q, want 2.125", got)
	}
}

func TestSession_UnknownCommandIsQueryableNotError(t *testing.T) {
	b := newTestBus(t)
	session, err := b.Open("GPIB0::5::INSTR")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// The session call itself succeeds; the failure is instrument state.
	if err := session.Write("BOGUS 1"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	record, err := session.QueryTrimmed("ERR?")
	if err != nil {
		t.Fatalf("QueryTrimmed(ERR?) error = %v", err)
	}
	if record != "100" {
		t.Errorf("ERR? = %q, want 100", record)
	}

	sentinel, _ := session.QueryTrimmed("ERR?")
	if sentinel != "0" {
		t.Errorf("drained ERR? = %q, want 0", sentinel)
	}
}
