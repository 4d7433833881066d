package sim

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Description is the root of a device description document.
//
// The YAML layout mirrors the on-disk format exactly:
//
//	spec: "1.1"
//	devices:
//	  <device name>:
//	    eom: {...}
//	    error: {...}
//	    dialogues: [...]
//	    properties: {...}
//	    channels: {...}
//	resources:
//	  <address>:
//	    device: <device name>
//
// Unknown keys are rejected at parse time; the format carries no
// implicit defaults beyond those documented on the field types.
type Description struct {
	Spec      string                  `yaml:"spec"`
	Devices   map[string]DeviceSpec   `yaml:"devices"`
	Resources map[string]ResourceSpec `yaml:"resources"`
}

// DeviceSpec declares a single simulated device.
type DeviceSpec struct {
	// EOM maps an interface type ("GPIB INSTR", "TCPIP INSTR", ...) to its
	// end-of-message terminators.
	EOM map[string]EOMSpec `yaml:"eom"`

	// Error declares the error-queue and status-register emulation rules.
	Error ErrorSpec `yaml:"error"`

	// Dialogues are literal query/response pairs, matched by exact
	// string equality before any property patterns are tried.
	Dialogues []DialogueSpec `yaml:"dialogues"`

	// Properties are root-level gettable/settable values.
	Properties map[string]PropertySpec `yaml:"properties"`

	// Channels declares per-channel sub-identifiers and their property
	// schema. "{ch_id}" in a channel property template is substituted
	// with each declared id.
	Channels *ChannelSpec `yaml:"channels"`
}

// EOMSpec holds the query and response terminators for one interface type.
type EOMSpec struct {
	Q string `yaml:"q"`
	R string `yaml:"r"`
}

// ErrorSpec declares error emulation behaviour.
type ErrorSpec struct {
	// StatusRegisters are bitmask registers latched when errors occur.
	// Reading a register does not clear it.
	StatusRegisters []StatusRegisterSpec `yaml:"status_register"`

	// ErrorQueue is the FIFO queue of pending error records.
	ErrorQueue *ErrorQueueSpec `yaml:"error_queue"`
}

// StatusRegisterSpec declares one status register.
type StatusRegisterSpec struct {
	// Q is the exact query string that reads the register.
	Q string `yaml:"q"`

	// CommandError is the bit value latched on an unrecognised or
	// invalid command. Zero disables the bit.
	CommandError int `yaml:"command_error"`

	// QueryError is the bit value latched on a malformed query.
	QueryError int `yaml:"query_error"`
}

// ErrorQueueSpec declares the error queue emulation.
type ErrorQueueSpec struct {
	// Q is the exact query string that pops the queue.
	Q string `yaml:"q"`

	// Default is the sentinel returned when the queue is empty.
	Default string `yaml:"default"`

	// CommandError is the record pushed for unrecognised or invalid
	// commands (including rejected setter values).
	CommandError string `yaml:"command_error"`

	// QueryError is the record pushed for malformed queries.
	QueryError string `yaml:"query_error"`
}

// DialogueSpec is a fixed query/response pair.
type DialogueSpec struct {
	Q string `yaml:"q"`
	R string `yaml:"r"`
}

// PropertySpec declares a named, validated, gettable/settable value.
type PropertySpec struct {
	// Default is the initial value. Its YAML type should agree with
	// Specs.Type.
	Default any `yaml:"default"`

	// Getter declares the query template and response template. The
	// response template renders the stored value through "{}" (or a
	// formatted placeholder such as "{:+.6E}").
	Getter *QueryResponseSpec `yaml:"getter"`

	// Setter declares the query template containing a value
	// placeholder. The response template is optional; when absent the
	// setter is a pure command with no response.
	Setter *QueryResponseSpec `yaml:"setter"`

	// Specs constrains accepted setter values.
	Specs ValueSpec `yaml:"specs"`
}

// QueryResponseSpec is a query template with an optional response template.
type QueryResponseSpec struct {
	Q string `yaml:"q"`
	R string `yaml:"r"`
}

// ValueSpec constrains property values.
type ValueSpec struct {
	// Type is one of "int", "float" or "str". Empty defaults to "str".
	Type string `yaml:"type"`

	// Min and Max bound numeric values inclusively when set.
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`

	// Valid enumerates the accepted raw value strings. Empty means any
	// value passing the type and range checks is accepted.
	Valid []string `yaml:"valid"`
}

// ChannelSpec declares per-channel ids and their property schema.
type ChannelSpec struct {
	IDs        ChannelIDs              `yaml:"ids"`
	Properties map[string]PropertySpec `yaml:"properties"`
}

// ChannelIDs is a list of channel identifiers. YAML integers and strings
// are both accepted; ids are handled as strings throughout.
type ChannelIDs []string

// UnmarshalYAML accepts a sequence of scalars of any YAML type.
func (c *ChannelIDs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: channel ids must be a sequence", ErrInvalidDescription)
	}
	ids := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("%w: channel id must be a scalar", ErrInvalidDescription)
		}
		ids = append(ids, item.Value)
	}
	*c = ids
	return nil
}

// ParseDescription reads a YAML device description from r.
// Unknown document keys are a parse error.
func ParseDescription(r io.Reader) (*Description, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var desc Description
	if err := dec.Decode(&desc); err != nil {
		return nil, fmt.Errorf("decoding description: %w", err)
	}

	if err := desc.validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// LoadDescription reads a YAML device description file.
func LoadDescription(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening description file: %w", err)
	}
	defer f.Close()

	desc, err := ParseDescription(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return desc, nil
}

// validate performs structural checks that the YAML schema alone cannot
// express: resource bindings must point at declared devices, properties
// need getter or setter templates, and valid-value lists must agree with
// the declared type.
func (d *Description) validate() error {
	if len(d.Devices) == 0 {
		return fmt.Errorf("%w: no devices declared", ErrInvalidDescription)
	}

	for name, dev := range d.Devices {
		if err := dev.validate(); err != nil {
			return fmt.Errorf("device %q: %w", name, err)
		}
	}

	for address, res := range d.Resources {
		if res.Device == "" {
			return fmt.Errorf("%w: resource %q has no device", ErrInvalidDescription, address)
		}
		if _, ok := d.Devices[res.Device]; !ok {
			return fmt.Errorf("%w: resource %q references unknown device %q",
				ErrInvalidDescription, address, res.Device)
		}
	}

	return nil
}

func (d *DeviceSpec) validate() error {
	for _, dlg := range d.Dialogues {
		if dlg.Q == "" {
			return fmt.Errorf("%w: dialogue with empty query", ErrInvalidDescription)
		}
	}

	if err := validateProperties(d.Properties); err != nil {
		return err
	}

	if d.Channels != nil {
		if len(d.Channels.IDs) == 0 {
			return fmt.Errorf("%w: channels declared without ids", ErrInvalidDescription)
		}
		if err := validateProperties(d.Channels.Properties); err != nil {
			return err
		}
	}

	if eq := d.Error.ErrorQueue; eq != nil && eq.Q == "" {
		return fmt.Errorf("%w: error queue without query", ErrInvalidDescription)
	}
	for _, reg := range d.Error.StatusRegisters {
		if reg.Q == "" {
			return fmt.Errorf("%w: status register without query", ErrInvalidDescription)
		}
	}

	return nil
}

func validateProperties(props map[string]PropertySpec) error {
	for name, prop := range props {
		if prop.Getter == nil && prop.Setter == nil {
			return fmt.Errorf("%w: property %q has neither getter nor setter",
				ErrInvalidDescription, name)
		}
		if prop.Getter != nil && (prop.Getter.Q == "" || prop.Getter.R == "") {
			return fmt.Errorf("%w: property %q getter needs q and r",
				ErrInvalidDescription, name)
		}
		if prop.Setter != nil && prop.Setter.Q == "" {
			return fmt.Errorf("%w: property %q setter needs q",
				ErrInvalidDescription, name)
		}
		switch prop.Specs.Type {
		case "", "int", "float", "str":
		default:
			return fmt.Errorf("%w: property %q has unknown type %q",
				ErrInvalidDescription, name, prop.Specs.Type)
		}
	}
	return nil
}

// ResourceSpec binds a resource address to a device name.
type ResourceSpec struct {
	Device string `yaml:"device"`
}
