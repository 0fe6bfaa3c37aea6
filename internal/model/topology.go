package model

// NetPins pairs a net with the pinmux of the pin behind it.
type NetPins struct {
	Net    Net
	Pinmux []Function
}

// DeviceStatus classifies a device relative to an App.
type DeviceStatus uint8

const (
	StatusFree DeviceStatus = iota
	StatusUsed
)

func (s DeviceStatus) String() string {
	if s == StatusUsed {
		return "Used"
	}
	return "Free"
}

func (s DeviceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DeviceWithStatus is one entry of Board.DevicesWithStatus.
type DeviceWithStatus struct {
	Device *Device
	Status DeviceStatus
}

// Nets returns a Direct net for every SoC pin, in declaration order.
// A nil Soc has no nets.
func (s *Soc) Nets() []NetPins {
	if s == nil {
		return nil
	}
	nets := make([]NetPins, 0, len(s.Pins))
	for _, pin := range s.Pins {
		nets = append(nets, NetPins{Net: DirectNet(pin.Name), Pinmux: pin.Pinmux})
	}
	return nets
}

// Nets returns a Device net for every pin the device fans out itself.
func (d *Device) Nets() []NetPins {
	nets := make([]NetPins, 0, len(d.Pins))
	for _, pin := range d.Pins {
		nets = append(nets, NetPins{Net: DeviceNet(d.Name, pin.Name), Pinmux: pin.Pinmux})
	}
	return nets
}

// ConnectionTo returns the first connection attached to net, or nil.
func (d *Device) ConnectionTo(net Net) *Connection {
	for i := range d.Connects {
		if d.Connects[i].Net == net {
			return &d.Connects[i]
		}
	}
	return nil
}

// Connected reports whether some connection sits on net and uses the same
// peripheral as function. Signals are not compared.
func (d *Device) Connected(net Net, function Function) bool {
	for _, conn := range d.Connects {
		if conn.Net == net && conn.Function.Is(function.Peripheral()) {
			return true
		}
	}
	return false
}

// BoardNets is the full addressable net space of a board on a SoC: the SoC
// nets followed by each device's own nets in board order.
func BoardNets(soc *Soc, board *Board) []NetPins {
	nets := soc.Nets()
	for i := range board.Devices {
		nets = append(nets, board.Devices[i].Nets()...)
	}
	return nets
}

// LookupNet returns the pinmux of net in the combined net space, searching the
// SoC first and then devices in board order.
func LookupNet(soc *Soc, board *Board, net Net) ([]Function, bool) {
	for _, np := range BoardNets(soc, board) {
		if np.Net == net {
			return np.Pinmux, true
		}
	}
	return nil, false
}

// DevicesWithStatus returns every device in declaration order, Used when the
// app enables it and Free otherwise.
func (b *Board) DevicesWithStatus(app *App) []DeviceWithStatus {
	enabled := app.DeviceSet()
	out := make([]DeviceWithStatus, 0, len(b.Devices))
	for i := range b.Devices {
		status := StatusFree
		if _, ok := enabled[b.Devices[i].Name]; ok {
			status = StatusUsed
		}
		out = append(out, DeviceWithStatus{Device: &b.Devices[i], Status: status})
	}
	return out
}

// DeviceByName returns the first device with the given name, or nil.
func (b *Board) DeviceByName(name string) *Device {
	for i := range b.Devices {
		if b.Devices[i].Name == name {
			return &b.Devices[i]
		}
	}
	return nil
}

// DeviceSet returns the app's enabled devices as a set.
func (a *App) DeviceSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.Devices))
	for _, name := range a.Devices {
		set[name] = struct{}{}
	}
	return set
}
