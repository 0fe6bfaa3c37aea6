package schematic

import (
	"sort"

	"github.com/jward/schematic/internal/model"
)

// PeripheralSection groups the peripherals offered by one owner: the SoC
// (Owner == "") or a device that fans out its own pins.
type PeripheralSection struct {
	Owner       string            `json:"owner,omitempty"`
	OwnerStatus DeviceStatus      `json:"owner_status"`
	Peripherals []PeripheralUsage `json:"peripherals"`
}

// FromSoc reports whether the section describes the SoC's own pins.
func (s PeripheralSection) FromSoc() bool { return s.Owner == "" }

// PeripheralUsage is a peripheral and the devices connected to any of its
// signals, sorted by device name.
type PeripheralUsage struct {
	Name      string        `json:"name"`
	Consumers []DeviceState `json:"consumers"`
}

// PeripheralConsumers is one pinmux entry of a pin and the devices whose
// connection to the pin uses exactly that function.
type PeripheralConsumers struct {
	Function  Function      `json:"function"`
	Consumers []DeviceState `json:"consumers"`
}

// Peripheral returns the peripheral name of the entry.
func (p PeripheralConsumers) Peripheral() string { return p.Function.Peripheral() }

// Peripherals lists the peripherals reachable through the SoC pins and,
// separately, through every device that fans out pins with a pinmux. The SoC
// section always comes first.
func (q *QueryBuilder) Peripherals() []PeripheralSection {
	devices := q.devicesWithStatus()

	sections := []PeripheralSection{{
		Peripherals: collectPeripherals(q.snap.Soc.Nets(), devices),
	}}
	for _, owner := range devices {
		usages := collectPeripherals(owner.Device.Nets(), devices)
		if len(usages) == 0 {
			continue
		}
		sections = append(sections, PeripheralSection{
			Owner:       owner.Device.Name,
			OwnerStatus: owner.Status,
			Peripherals: usages,
		})
	}
	return sections
}

// collectPeripherals folds every function of every net into a presence map
// peripheral -> device -> status. A device seen twice keeps its last status.
func collectPeripherals(nets []model.NetPins, devices []model.DeviceWithStatus) []PeripheralUsage {
	acc := make(map[string]map[string]DeviceStatus)
	for _, np := range nets {
		for _, fn := range np.Pinmux {
			entry, ok := acc[fn.Peripheral()]
			if !ok {
				entry = make(map[string]DeviceStatus)
				acc[fn.Peripheral()] = entry
			}
			for _, d := range devices {
				if d.Device.Connected(np.Net, fn) {
					entry[d.Device.Name] = d.Status
				}
			}
		}
	}

	out := make([]PeripheralUsage, 0, len(acc))
	for name, entry := range acc {
		out = append(out, PeripheralUsage{Name: name, Consumers: sortedStates(entry)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedStates(m map[string]DeviceStatus) []DeviceState {
	out := make([]DeviceState, 0, len(m))
	for name, status := range m {
		out = append(out, DeviceState{Name: name, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PeripheralPins lists every net of the combined net space whose pinmux
// offers the named peripheral. Only the first matching function of a pin is
// reported. A peripheral that no pin offers yields an error matching
// ErrNotFound rather than an empty list.
func (q *QueryBuilder) PeripheralPins(peripheral string) ([]PinAssignment, error) {
	devices := q.devicesWithStatus()

	var out []PinAssignment
	for _, np := range q.boardNets() {
		for _, fn := range np.Pinmux {
			if !fn.Is(peripheral) {
				continue
			}
			out = append(out, PinAssignment{
				Net:      np.Net,
				Function: fn,
				UsedBy:   usedBy(devices, np.Net),
			})
			break
		}
	}
	if out == nil {
		return nil, &model.NotFoundError{Kind: model.KindPeripheral, Name: peripheral}
	}
	return out, nil
}

// PeripheralsUsingPin lists each function of pin's pinmux, in declaration
// order, with the devices whose first connection to the pin uses exactly that
// function.
func (q *QueryBuilder) PeripheralsUsingPin(pin string) ([]PeripheralConsumers, error) {
	net, pinmux, err := q.parsePin(pin)
	if err != nil {
		return nil, err
	}

	devices := q.devicesWithStatus()
	out := make([]PeripheralConsumers, 0, len(pinmux))
	for _, fn := range pinmux {
		consumers := []DeviceState{}
		for _, d := range devices {
			if conn := d.Device.ConnectionTo(net); conn != nil && conn.Function == fn {
				consumers = append(consumers, DeviceState{Name: d.Device.Name, Status: d.Status})
			}
		}
		out = append(out, PeripheralConsumers{Function: fn, Consumers: consumers})
	}
	return out, nil
}
