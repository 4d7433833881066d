package sim

import (
	"testing"
)

// testDeviceSpec builds a small but complete device: one dialogue, a
// root-level property, a channelised property, an error queue, and a
// status register.
func testDeviceSpec() DeviceSpec {
	minV := -10.0
	maxV := 10.0

	return DeviceSpec{
		EOM: map[string]EOMSpec{
			"GPIB INSTR": {Q: "\r\n", R: "\r\n"},
		},
		Error: ErrorSpec{
			StatusRegisters: []StatusRegisterSpec{
				{Q: "*ESR?", CommandError: 32, QueryError: 4},
			},
			ErrorQueue: &ErrorQueueSpec{
				Q:            "ERR?",
				Default:      `0,"No error"`,
				CommandError: `102,"Command error"`,
				QueryError:   `103,"Query error"`,
			},
		},
		Dialogues: []DialogueSpec{
			{Q: "*IDN?", R: "Agilent Technologies,B1500A,0,A.06.01"},
		},
		Properties: map[string]PropertySpec{
			"voltage": {
				Default: 0.0,
				Getter:  &QueryResponseSpec{Q: "SOUR:VOLT?", R: "{:+.6E}"},
				Setter:  &QueryResponseSpec{Q: "SOUR:VOLT {}"},
				Specs:   ValueSpec{Type: "float", Min: &minV, Max: &maxV},
			},
			"average": {
				Default: 1,
				Getter:  &QueryResponseSpec{Q: "AV?", R: "{:d}"},
				Setter:  &QueryResponseSpec{Q: "AV {}"},
				Specs:   ValueSpec{Type: "int", Min: ptrFloat(1), Max: ptrFloat(1023)},
			},
			"mode": {
				Default: "FAST",
				Getter:  &QueryResponseSpec{Q: "MODE?", R: "{}"},
				Setter:  &QueryResponseSpec{Q: "MODE {}", R: "OK"},
				Specs:   ValueSpec{Type: "str", Valid: []string{"FAST", "SLOW"}},
			},
		},
		Channels: &ChannelSpec{
			IDs: ChannelIDs{"1", "2"},
			Properties: map[string]PropertySpec{
				"current": {
					Default: 0.0,
					Getter:  &QueryResponseSpec{Q: "TI? {ch_id}", R: "NAI{:+.6E}"},
					Setter:  &QueryResponseSpec{Q: "DI {ch_id},0,{}"},
					Specs:   ValueSpec{Type: "float", Min: ptrFloat(-0.1), Max: ptrFloat(0.1)},
				},
			},
		},
	}
}

func ptrFloat(f float64) *float64 { return &f }

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	d, err := NewDevice("b1500", testDeviceSpec())
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	return d
}

func TestDevice_Dialogue(t *testing.T) {
	d := newTestDevice(t)

	got, ok := d.Process("*IDN?")
	if !ok {
		t.Fatal("Process(*IDN?) returned no response")
	}
	want := "Agilent Technologies,B1500A,0,A.06.01"
	if got != want {
		t.Errorf("Process(*IDN?) = %q, want %q", got, want)
	}
	if d.PendingErrors() != 0 {
		t.Errorf("PendingErrors() = %d, want 0", d.PendingErrors())
	}
}

func TestDevice_SetThenGet(t *testing.T) {
	d := newTestDevice(t)

	if _, ok := d.Process("SOUR:VOLT 2.5"); ok {
		t.Error("setter without response template produced a response")
	}

	got, ok := d.Process("SOUR:VOLT?")
	if !ok {
		t.Fatal("getter produced no response")
	}
	if got != "+2.500000E+00" {
		t.Errorf("getter response = %q, want %q", got, "+2.500000E+00")
	}
}

func TestDevice_GetterDefault(t *testing.T) {
	d := newTestDevice(t)

	got, ok := d.Process("SOUR:VOLT?")
	if !ok {
		t.Fatal("getter produced no response")
	}
	if got != "+0.000000E+00" {
		t.Errorf("getter response = %q, want %q", got, "+0.000000E+00")
	}
}

func TestDevice_SetterWithResponse(t *testing.T) {
	d := newTestDevice(t)

	got, ok := d.Process("MODE SLOW")
	if !ok {
		t.Fatal("setter with response template produced no response")
	}
	if got != "OK" {
		t.Errorf("setter response = %q, want %q", got, "OK")
	}

	mode, ok := d.Process("MODE?")
	if !ok || mode != "SLOW" {
		t.Errorf("MODE? = %q (ok=%v), want SLOW", mode, ok)
	}
}

func TestDevice_RejectedValueLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		request string
	}{
		{name: "out of range", request: "SOUR:VOLT 99"},
		{name: "wrong type", request: "AV 1.5"},
		{name: "outside valid set", request: "MODE TURBO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)

			if _, ok := d.Process(tt.request); ok {
				t.Error("rejected setter produced a response")
			}

			if got := d.PendingErrors(); got != 1 {
				t.Errorf("PendingErrors() = %d, want exactly 1", got)
			}

			// Stored values are untouched.
			if v, _ := d.PropertyValue("voltage", ""); v != 0.0 {
				t.Errorf("voltage = %v, want unchanged 0", v)
			}
			if v, _ := d.PropertyValue("average", ""); v != int64(1) {
				t.Errorf("average = %v, want unchanged 1", v)
			}
			if v, _ := d.PropertyValue("mode", ""); v != "FAST" {
				t.Errorf("mode = %v, want unchanged FAST", v)
			}
		})
	}
}

func TestDevice_ChannelProperties(t *testing.T) {
	d := newTestDevice(t)

	if _, ok := d.Process("DI 2,0,0.05"); ok {
		t.Error("channel setter produced a response")
	}

	got, ok := d.Process("TI? 2")
	if !ok {
		t.Fatal("channel getter produced no response")
	}
	if got != "NAI+5.000000E-02" {
		t.Errorf("TI? 2 = %q, want %q", got, "NAI+5.000000E-02")
	}

	// Channel 1 keeps its own independent value.
	got, _ = d.Process("TI? 1")
	if got != "NAI+0.000000E+00" {
		t.Errorf("TI? 1 = %q, want default", got)
	}

	// Undeclared channel id falls through to the command-error path.
	if _, ok := d.Process("TI? 9"); ok {
		t.Error("undeclared channel produced a response")
	}
	if d.PendingErrors() != 1 {
		t.Errorf("PendingErrors() = %d, want 1", d.PendingErrors())
	}
}

func TestDevice_ErrorQueueFIFO(t *testing.T) {
	d := newTestDevice(t)

	// Two distinct failures: unknown command, then out-of-range value.
	d.Process("BOGUS 1")
	d.Process("SOUR:VOLT 99")

	first, ok := d.Process("ERR?")
	if !ok || first != `102,"Command error"` {
		t.Errorf("first ERR? = %q (ok=%v)", first, ok)
	}

	second, _ := d.Process("ERR?")
	if second != `102,"Command error"` {
		t.Errorf("second ERR? = %q", second)
	}

	// Queue drained: sentinel from here on.
	sentinel, ok := d.Process("ERR?")
	if !ok || sentinel != `0,"No error"` {
		t.Errorf("drained ERR? = %q (ok=%v), want sentinel", sentinel, ok)
	}
}

func TestDevice_StatusRegisterLatches(t *testing.T) {
	d := newTestDevice(t)

	if got, _ := d.Process("*ESR?"); got != "0" {
		t.Errorf("initial *ESR? = %q, want 0", got)
	}

	d.Process("BOGUS")

	if got, _ := d.Process("*ESR?"); got != "32" {
		t.Errorf("*ESR? after command error = %q, want 32", got)
	}

	// Reading does not clear.
	if got, _ := d.Process("*ESR?"); got != "32" {
		t.Errorf("repeated *ESR? = %q, want 32 (read must not clear)", got)
	}

	// Malformed (empty) query latches the query-error bit too.
	d.Process("")
	if got, _ := d.Process("*ESR?"); got != "36" {
		t.Errorf("*ESR? after query error = %q, want 36", got)
	}
}

func TestDevice_CLSClearsQueueAndRegisters(t *testing.T) {
	d := newTestDevice(t)

	d.Process("BOGUS")
	d.Process("SOUR:VOLT 3")

	if response, ok := d.Process("*CLS"); ok {
		t.Errorf("*CLS responded %q, want no response", response)
	}

	if got, _ := d.Process("*ESR?"); got != "0" {
		t.Errorf("*ESR? after *CLS = %q, want 0", got)
	}
	if got, _ := d.Process("ERR?"); got != `0,"No error"` {
		t.Errorf("ERR? after *CLS = %q, want sentinel", got)
	}

	// Property values survive a *CLS; only error state is cleared.
	if got, _ := d.Process("SOUR:VOLT?"); got != "+3.000000E+00" {
		t.Errorf("voltage after *CLS = %q, want +3.000000E+00", got)
	}
}

func TestDevice_Reset(t *testing.T) {
	d := newTestDevice(t)

	d.Process("SOUR:VOLT 5")
	d.Process("BOGUS")

	d.Reset()

	if got, _ := d.Process("*ESR?"); got != "0" {
		t.Errorf("*ESR? after Reset = %q, want 0", got)
	}
	if got, _ := d.Process("ERR?"); got != `0,"No error"` {
		t.Errorf("ERR? after Reset = %q, want sentinel", got)
	}
	if got, _ := d.Process("SOUR:VOLT?"); got != "+0.000000E+00" {
		t.Errorf("voltage after Reset = %q, want default", got)
	}
}

func TestDevice_Snapshot(t *testing.T) {
	d := newTestDevice(t)
	d.Process("SOUR:VOLT 1.5")

	snap, err := d.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	props, ok := snap["properties"].(map[string]any)
	if !ok {
		t.Fatal("snapshot has no properties map")
	}
	if props["voltage"] != 1.5 {
		t.Errorf("snapshot voltage = %v, want 1.5", props["voltage"])
	}
	if props["current@1"] != 0.0 {
		t.Errorf("snapshot current@1 = %v, want 0", props["current@1"])
	}
}

func TestNewDevice_DuplicatePatterns(t *testing.T) {
	spec := testDeviceSpec()
	spec.Properties["voltage2"] = PropertySpec{
		Default: 0.0,
		Getter:  &QueryResponseSpec{Q: "SOUR:VOLT?", R: "{}"},
		Specs:   ValueSpec{Type: "float"},
	}

	if _, err := NewDevice("dup", spec); err == nil {
		t.Error("NewDevice() accepted duplicate getter query")
	}
}
