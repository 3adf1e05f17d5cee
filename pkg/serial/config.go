package serial

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// LineEnding selects the terminator appended to outgoing data for a
// port. Incoming data is always framed on '\n' and '\r' regardless of
// this setting, so mixed-discipline devices still produce clean lines.
type LineEnding string

const (
	LineEndingLF   LineEnding = "lf"
	LineEndingCR   LineEnding = "cr"
	LineEndingCRLF LineEnding = "crlf"
)

// ParseLineEnding accepts the symbolic names ("lf", "cr", "crlf") as
// well as the literal byte sequences.
func ParseLineEnding(s string) (LineEnding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lf", "\n":
		return LineEndingLF, nil
	case "cr", "\r":
		return LineEndingCR, nil
	case "crlf", "\r\n":
		return LineEndingCRLF, nil
	default:
		return "", fmt.Errorf("invalid line ending %q (expected: lf|cr|crlf)", s)
	}
}

// Bytes returns the terminator byte sequence.
func (e LineEnding) Bytes() []byte {
	switch e {
	case LineEndingCR:
		return []byte{'\r'}
	case LineEndingCRLF:
		return []byte{'\r', '\n'}
	default:
		return []byte{'\n'}
	}
}

// PortConfig describes one serial endpoint: identity (unique display
// name and system path) plus transport parameters. A config is
// immutable once a session is opened for it; edits require a
// disconnect/connect cycle.
//
// Example YAML (inside the app config's ports list):
//
//	- name: GPS
//	  path: /dev/ttyUSB0
//	  baud_rate: 9600
//	  line_ending: crlf
//	  color: green
type PortConfig struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	BaudRate int    `yaml:"baud_rate,omitempty"`
	DataBits int    `yaml:"data_bits,omitempty"`
	StopBits int    `yaml:"stop_bits,omitempty"`

	// Parity is one of: "" | none | odd | even | mark | space.
	Parity string `yaml:"parity,omitempty"`

	// FlowControl is one of: "" | none | hardware | software. The field
	// is validated and persisted for config fidelity, but the transport
	// layer has no portable way to apply it and opens the port without
	// flow control.
	FlowControl string `yaml:"flow_control,omitempty"`

	// LineEnding is the terminator appended to outgoing data:
	// lf | cr | crlf. Defaults to lf.
	LineEnding string `yaml:"line_ending,omitempty"`

	// Color names the display color for this port's lines in the UI
	// (a terminal color name, an ANSI number, or "#rrggbb").
	Color string `yaml:"color,omitempty"`
}

// WithDefaults returns a copy with zero-valued transport parameters
// filled in: 115200 baud, 8 data bits, 1 stop bit, no parity, no flow
// control, LF line ending.
func (c PortConfig) WithDefaults() PortConfig {
	if c.BaudRate == 0 {
		c.BaudRate = 115200
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if strings.TrimSpace(c.Parity) == "" {
		c.Parity = "none"
	}
	if strings.TrimSpace(c.FlowControl) == "" {
		c.FlowControl = "none"
	}
	if strings.TrimSpace(c.LineEnding) == "" {
		c.LineEnding = string(LineEndingLF)
	}
	return c
}

// Validate performs sanity checks on a single port config. Cross-port
// checks (unique names/paths) belong to the registry owner.
func (c PortConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("port name is required")
	}
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("port %q: path is required", c.Name)
	}
	if c.BaudRate < 0 {
		return fmt.Errorf("port %q: baud_rate must be > 0", c.Name)
	}
	switch c.DataBits {
	case 0, 5, 6, 7, 8:
	default:
		return fmt.Errorf("port %q: invalid data_bits %d (expected: 5|6|7|8)", c.Name, c.DataBits)
	}
	switch c.StopBits {
	case 0, 1, 2:
	default:
		return fmt.Errorf("port %q: invalid stop_bits %d (expected: 1|2)", c.Name, c.StopBits)
	}
	switch strings.ToLower(strings.TrimSpace(c.Parity)) {
	case "", "none", "odd", "even", "mark", "space":
	default:
		return fmt.Errorf("port %q: invalid parity %q (expected: none|odd|even|mark|space)", c.Name, c.Parity)
	}
	switch strings.ToLower(strings.TrimSpace(c.FlowControl)) {
	case "", "none", "hardware", "software":
	default:
		return fmt.Errorf("port %q: invalid flow_control %q (expected: none|hardware|software)", c.Name, c.FlowControl)
	}
	if _, err := ParseLineEnding(c.LineEnding); err != nil {
		return fmt.Errorf("port %q: %w", c.Name, err)
	}
	return nil
}

// Ending returns the parsed line ending, defaulting to LF.
func (c PortConfig) Ending() LineEnding {
	e, err := ParseLineEnding(c.LineEnding)
	if err != nil {
		return LineEndingLF
	}
	return e
}

// Mode maps the config to the transport's open mode.
func (c PortConfig) Mode() (*serial.Mode, error) {
	c = c.WithDefaults()

	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}

	switch strings.ToLower(c.Parity) {
	case "none":
		mode.Parity = serial.NoParity
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("port %q: invalid parity %q", c.Name, c.Parity)
	}

	switch c.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("port %q: invalid stop_bits %d", c.Name, c.StopBits)
	}

	return mode, nil
}
