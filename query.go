package schematic

import (
	"github.com/jward/schematic/internal/model"
)

// Snapshot is the immutable input of every query: the app being inspected,
// the board it runs on and, when loaded, the board's SoC. A nil Soc
// contributes no nets.
type Snapshot struct {
	App   App
	Board Board
	Soc   *Soc
}

// QueryBuilder answers topology questions about a single Snapshot. Each call
// re-traverses the snapshot; nothing is cached between calls.
type QueryBuilder struct {
	snap Snapshot
}

// NewQueryBuilder returns a QueryBuilder over snap.
func NewQueryBuilder(snap Snapshot) *QueryBuilder {
	return &QueryBuilder{snap: snap}
}

// Snapshot returns the snapshot the builder queries.
func (q *QueryBuilder) Snapshot() Snapshot {
	return q.snap
}

// DeviceState is a device name with its status relative to the app.
type DeviceState struct {
	Name   string       `json:"name"`
	Status DeviceStatus `json:"status"`
}

// PinAssignment describes a net, the function considered on it and the first
// device the app uses on that net. UsedBy is empty when the net is free.
type PinAssignment struct {
	Net      Net      `json:"pin"`
	Function Function `json:"function"`
	UsedBy   string   `json:"used_by,omitempty"`
}

// Free reports whether no used device sits on the net.
func (p PinAssignment) Free() bool { return p.UsedBy == "" }

// devicesWithStatus is the shared first step of every query.
func (q *QueryBuilder) devicesWithStatus() []model.DeviceWithStatus {
	return q.snap.Board.DevicesWithStatus(&q.snap.App)
}

// boardNets returns the combined SoC and device net space.
func (q *QueryBuilder) boardNets() []model.NetPins {
	return model.BoardNets(q.snap.Soc, &q.snap.Board)
}

// parsePin parses pin and checks that it exists in the combined net space,
// returning its pinmux.
func (q *QueryBuilder) parsePin(pin string) (Net, []Function, error) {
	net, err := model.ParseNet(pin)
	if err != nil {
		return Net{}, nil, err
	}
	pinmux, ok := model.LookupNet(q.snap.Soc, &q.snap.Board, net)
	if !ok {
		return Net{}, nil, &model.NotFoundError{Kind: model.KindPin, Name: pin}
	}
	return net, pinmux, nil
}

// usedBy returns the name of the first used device, in board order, with a
// connection to net. Later consumers of the same net are not reported.
func usedBy(devices []model.DeviceWithStatus, net Net) string {
	for _, d := range devices {
		if d.Status == model.StatusUsed && d.Device.ConnectionTo(net) != nil {
			return d.Device.Name
		}
	}
	return ""
}

// NetEntry is one net of the combined net space with its pinmux. Owner is
// the device fanning out the pin, or empty for a SoC pin.
type NetEntry struct {
	Net    Net        `json:"pin"`
	Owner  string     `json:"owner,omitempty"`
	Pinmux []Function `json:"pinmux"`
}

// Nets lists the combined net space: SoC nets first, then the nets of each
// device in board order.
func (q *QueryBuilder) Nets() []NetEntry {
	nets := q.boardNets()
	out := make([]NetEntry, 0, len(nets))
	for _, np := range nets {
		out = append(out, NetEntry{Net: np.Net, Owner: np.Net.Device, Pinmux: np.Pinmux})
	}
	return out
}
