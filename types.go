package schematic

import "github.com/jward/schematic/internal/model"

// Public type aliases for the internal model used in the QueryBuilder API.
// These are Go type aliases (=), identical to the internal types at compile
// time, so no conversion is needed.

type Soc = model.Soc
type Pin = model.Pin
type Board = model.Board
type Device = model.Device
type Expose = model.Expose
type App = model.App
type Net = model.Net
type Function = model.Function
type Connection = model.Connection
type DeviceStatus = model.DeviceStatus

const (
	StatusFree = model.StatusFree
	StatusUsed = model.StatusUsed
)

var (
	// ErrInvalidFormat is matched by malformed net, function or connection text.
	ErrInvalidFormat = model.ErrInvalidFormat
	// ErrNotFound is matched when a pin, device or peripheral is absent from the board.
	ErrNotFound = model.ErrNotFound
)

// ParseNet parses "pin" or "device:pin".
func ParseNet(s string) (Net, error) { return model.ParseNet(s) }

// ParseFunction parses "name" or "name.signal".
func ParseFunction(s string) Function { return model.ParseFunction(s) }

// ParseConnection parses "net@function".
func ParseConnection(s string) (Connection, error) { return model.ParseConnection(s) }

// DirectNet returns the net of a SoC pin.
func DirectNet(pin string) Net { return model.DirectNet(pin) }

// DeviceNet returns the net of a pin fanned out by device.
func DeviceNet(device, pin string) Net { return model.DeviceNet(device, pin) }
