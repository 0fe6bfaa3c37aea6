package schematic

import (
	"github.com/jward/schematic/internal/model"
)

// PinConsumer is a device attached to a queried pin, with the function its
// connection uses.
type PinConsumer struct {
	Device   string       `json:"device"`
	Status   DeviceStatus `json:"status"`
	Function Function     `json:"function"`
}

// Devices lists every board device in declaration order with its status.
func (q *QueryBuilder) Devices() []DeviceState {
	devices := q.devicesWithStatus()
	out := make([]DeviceState, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceState{Name: d.Device.Name, Status: d.Status})
	}
	return out
}

// PinsUsedByDevice lists each connection of the named device together with
// the first used device on the same net. A device without connections yields
// an empty slice.
func (q *QueryBuilder) PinsUsedByDevice(name string) ([]PinAssignment, error) {
	device := q.snap.Board.DeviceByName(name)
	if device == nil {
		return nil, &model.NotFoundError{Kind: model.KindDevice, Name: name}
	}

	devices := q.devicesWithStatus()
	out := make([]PinAssignment, 0, len(device.Connects))
	for _, conn := range device.Connects {
		out = append(out, PinAssignment{
			Net:      conn.Net,
			Function: conn.Function,
			UsedBy:   usedBy(devices, conn.Net),
		})
	}
	return out, nil
}

// DevicesUsingPin lists every device with a connection to pin, in board
// order. The pin must exist on the SoC or on a device that fans out pins.
func (q *QueryBuilder) DevicesUsingPin(pin string) ([]PinConsumer, error) {
	net, _, err := q.parsePin(pin)
	if err != nil {
		return nil, err
	}

	var out []PinConsumer
	for _, d := range q.devicesWithStatus() {
		if conn := d.Device.ConnectionTo(net); conn != nil {
			out = append(out, PinConsumer{
				Device:   d.Device.Name,
				Status:   d.Status,
				Function: conn.Function,
			})
		}
	}
	if out == nil {
		out = []PinConsumer{}
	}
	return out, nil
}
