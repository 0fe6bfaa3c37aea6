package model

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// NetKind distinguishes the two shapes of a Net.
type NetKind uint8

const (
	// NetDirect is a pin on the SoC itself, written as "pin".
	NetDirect NetKind = iota
	// NetDevice is a pin fanned out by an on-board device, written as "device:pin".
	NetDevice
)

// Net is the addressable identity of a physical pin. Device is empty for
// NetDirect nets.
type Net struct {
	Kind   NetKind
	Device string
	Pin    string
}

// DirectNet returns the Net for a SoC pin.
func DirectNet(pin string) Net {
	return Net{Kind: NetDirect, Pin: pin}
}

// DeviceNet returns the Net for a pin exposed by the named device.
func DeviceNet(device, pin string) Net {
	return Net{Kind: NetDevice, Device: device, Pin: pin}
}

// ParseNet parses "pin" or "device:pin". Empty segments and more than one
// colon are rejected.
func ParseNet(s string) (Net, error) {
	parts := strings.Split(s, ":")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return DirectNet(parts[0]), nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return DeviceNet(parts[0], parts[1]), nil
	}
	return Net{}, &FormatError{Input: s, Grammar: GrammarNet}
}

// String returns the canonical encoding of the net.
func (n Net) String() string {
	if n.Kind == NetDevice {
		return n.Device + ":" + n.Pin
	}
	return n.Pin
}

func (n Net) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Net) UnmarshalText(text []byte) error {
	v, err := ParseNet(string(text))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func (n *Net) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return n.UnmarshalText([]byte(s))
}

// FunctionKind distinguishes a bare capability from a peripheral signal.
type FunctionKind uint8

const (
	// FunctionSimple is a capability without signals, e.g. "gpio" or "pwm".
	FunctionSimple FunctionKind = iota
	// FunctionPeripheral is a signal of a peripheral block, e.g. "uart0.txd".
	FunctionPeripheral
)

// Function is a capability a pin can be muxed to. Signal is only meaningful
// for FunctionPeripheral.
type Function struct {
	Kind   FunctionKind
	Name   string
	Signal string
}

// SimpleFunction returns a bare capability such as "gpio".
func SimpleFunction(name string) Function {
	return Function{Kind: FunctionSimple, Name: name}
}

// PeripheralFunction returns the signal of a peripheral such as "uart0.txd".
func PeripheralFunction(name, signal string) Function {
	return Function{Kind: FunctionPeripheral, Name: name, Signal: signal}
}

// ParseFunction splits on the first dot only: "i2c0.sda.extra" is peripheral
// "i2c0" with signal "sda.extra". It never fails.
func ParseFunction(s string) Function {
	if name, signal, ok := strings.Cut(s, "."); ok {
		return PeripheralFunction(name, signal)
	}
	return SimpleFunction(s)
}

// String returns the canonical encoding of the function.
func (f Function) String() string {
	switch f.Kind {
	case FunctionPeripheral:
		return f.Name + "." + f.Signal
	default:
		return f.Name
	}
}

// Peripheral returns the hardware block name for both shapes.
func (f Function) Peripheral() string {
	return f.Name
}

// SignalName returns the signal of a peripheral function. The second result
// is false for simple functions.
func (f Function) SignalName() (string, bool) {
	switch f.Kind {
	case FunctionPeripheral:
		return f.Signal, true
	default:
		return "", false
	}
}

// Is reports whether f belongs to the named peripheral. The signal is ignored.
func (f Function) Is(peripheral string) bool {
	return f.Peripheral() == peripheral
}

func (f Function) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Function) UnmarshalText(text []byte) error {
	*f = ParseFunction(string(text))
	return nil
}

func (f *Function) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return f.UnmarshalText([]byte(s))
}

// Connection attaches a device to a net using one of the net's functions.
type Connection struct {
	Net      Net
	Function Function
}

// ParseConnection parses "net@function". Both halves must be non-empty and
// exactly one "@" is allowed.
func ParseConnection(s string) (Connection, error) {
	parts := strings.Split(s, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Connection{}, &FormatError{Input: s, Grammar: GrammarConnection}
	}
	net, err := ParseNet(parts[0])
	if err != nil {
		return Connection{}, err
	}
	return Connection{Net: net, Function: ParseFunction(parts[1])}, nil
}

// String returns the canonical encoding of the connection.
func (c Connection) String() string {
	return c.Net.String() + "@" + c.Function.String()
}

func (c Connection) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Connection) UnmarshalText(text []byte) error {
	v, err := ParseConnection(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// UnmarshalYAML accepts the compact "net@function" scalar as well as the
// long form mapping {net: ..., function: ...}.
func (c *Connection) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		var long struct {
			Net      string `yaml:"net"`
			Function string `yaml:"function"`
		}
		if err := value.Decode(&long); err != nil {
			return err
		}
		// Both fields must survive the compact form, so neither may hold "@".
		return c.UnmarshalText([]byte(long.Net + "@" + long.Function))
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return c.UnmarshalText([]byte(s))
}
