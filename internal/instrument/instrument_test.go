package instrument

import (
	"errors"
	"fmt"
	"testing"
)

// fakeTransport records writes and answers queries from a canned map.
type fakeTransport struct {
	writes    []string
	responses map[string]string
	closed    bool
}

func (f *fakeTransport) Write(cmd string) error {
	f.writes = append(f.writes, cmd)
	return nil
}

func (f *fakeTransport) QueryTrimmed(request string) (string, error) {
	resp, ok := f.responses[request]
	if !ok {
		return "", fmt.Errorf("unexpected query %q", request)
	}
	return resp, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestInstrument_ParameterRegistry(t *testing.T) {
	ins, err := New("smu", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	volt, _ := NewParameter("voltage", WithUnit("V"))
	if err := ins.AddParameter(volt); err != nil {
		t.Fatalf("AddParameter() error = %v", err)
	}

	if err := ins.AddParameter(volt); !errors.Is(err, ErrParameterExists) {
		t.Errorf("AddParameter() duplicate error = %v, want ErrParameterExists", err)
	}

	got, err := ins.Parameter("voltage")
	if err != nil {
		t.Fatalf("Parameter() error = %v", err)
	}
	if got != volt {
		t.Error("Parameter() returned a different reference")
	}

	if _, err := ins.Parameter("ghost"); !errors.Is(err, ErrParameterNotFound) {
		t.Errorf("Parameter(ghost) error = %v, want ErrParameterNotFound", err)
	}
}

func TestInstrument_Channels(t *testing.T) {
	ins, _ := New("b1500", nil)

	ch1, _ := New("smu1", nil)
	if err := ins.AddChannel("smu1", ch1); err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}
	if err := ins.AddChannel("smu1", ch1); !errors.Is(err, ErrChannelExists) {
		t.Errorf("AddChannel() duplicate error = %v, want ErrChannelExists", err)
	}

	got, err := ins.Channel("smu1")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	if got != ch1 {
		t.Error("Channel() returned a different reference")
	}

	if _, err := ins.Channel("smu9"); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("Channel(smu9) error = %v, want ErrChannelNotFound", err)
	}
}

func TestInstrument_SnapshotRecurses(t *testing.T) {
	ins, _ := New("b1500", nil)

	mode, _ := NewParameter("mode", WithValidator(Enum("spot", "sweep")), WithInitialValue("spot"))
	ins.AddParameter(mode)

	ch, _ := New("smu1", nil)
	volt, _ := NewParameter("voltage", WithUnit("V"), WithInitialValue(1.5))
	ch.AddParameter(volt)
	ins.AddChannel("smu1", ch)

	snap, err := ins.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if snap["name"] != "b1500" {
		t.Errorf("snapshot name = %v", snap["name"])
	}

	params := snap["parameters"].(map[string]any)
	modeSnap, ok := params["mode"].(map[string]any)
	if !ok || modeSnap["value"] != "spot" {
		t.Errorf("parameters[mode] = %v", params["mode"])
	}

	channels := snap["channels"].(map[string]any)
	chSnap, ok := channels["smu1"].(map[string]any)
	if !ok {
		t.Fatal("snapshot missing channel smu1")
	}
	chParams := chSnap["parameters"].(map[string]any)
	voltSnap := chParams["voltage"].(map[string]any)
	if voltSnap["value"] != 1.5 {
		t.Errorf("channel voltage snapshot = %v", voltSnap)
	}
}

func TestInstrument_TransportBoundParameter(t *testing.T) {
	transport := &fakeTransport{
		responses: map[string]string{"SOUR:VOLT?": "+2.500000E+00"},
	}
	ins, _ := New("smu", transport)

	volt, _ := NewParameter("voltage",
		WithUnit("V"),
		WithValidator(Numbers(-10, 10)),
		WithGetter(func() (any, error) {
			return ins.Transport().QueryTrimmed("SOUR:VOLT?")
		}),
		WithSetter(func(v any) error {
			return ins.Transport().Write(fmt.Sprintf("SOUR:VOLT %v", v))
		}),
	)
	ins.AddParameter(volt)

	if err := volt.Set(2.5); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if len(transport.writes) != 1 || transport.writes[0] != "SOUR:VOLT 2.5" {
		t.Errorf("writes = %v", transport.writes)
	}

	got, err := volt.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "+2.500000E+00" {
		t.Errorf("Get() = %v", got)
	}
}

func TestInstrument_Close(t *testing.T) {
	transport := &fakeTransport{}
	ins, _ := New("smu", transport)

	if err := ins.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !transport.closed {
		t.Error("Close() did not close the transport")
	}

	// Idempotent.
	if err := ins.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestInstrument_SortedNames(t *testing.T) {
	ins, _ := New("smu", nil)
	for _, name := range []string{"c", "a", "b"} {
		p, _ := NewParameter(name)
		ins.AddParameter(p)
	}

	names := ins.ParameterNames()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("ParameterNames() = %v, want [a b c]", names)
	}
}
