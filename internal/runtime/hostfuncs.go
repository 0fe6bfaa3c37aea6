package runtime

import (
	"context"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/schematic"
	"github.com/jward/schematic/internal/model"
)

// Query host functions wrap the QueryBuilder. Results are converted to
// Risor lists of maps; identifiers are passed as canonical strings and a
// free pin has a nil used_by.

func makeDevicesFn(q Queries) *object.Builtin {
	return object.NewBuiltin("devices", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("devices", 0, len(args))
		}
		return statesToList(q.Devices())
	})
}

func makePinsUsedByDeviceFn(q Queries) *object.Builtin {
	return object.NewBuiltin("pins_used_by_device", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("pins_used_by_device", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("pins_used_by_device: %v", err)
		}
		pins, err := q.PinsUsedByDevice(name)
		if err != nil {
			return object.Errorf("pins_used_by_device: %v", err)
		}
		return assignmentsToList(pins)
	})
}

func makeDevicesUsingPinFn(q Queries) *object.Builtin {
	return object.NewBuiltin("devices_using_pin", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("devices_using_pin", 1, len(args))
		}
		pin, err := toString(args[0])
		if err != nil {
			return object.Errorf("devices_using_pin: %v", err)
		}
		consumers, err := q.DevicesUsingPin(pin)
		if err != nil {
			return object.Errorf("devices_using_pin: %v", err)
		}
		results := make([]object.Object, 0, len(consumers))
		for _, c := range consumers {
			results = append(results, object.NewMap(map[string]object.Object{
				"device":   object.NewString(c.Device),
				"status":   object.NewString(c.Status.String()),
				"function": object.NewString(c.Function.String()),
			}))
		}
		return object.NewList(results)
	})
}

func makePeripheralsFn(q Queries) *object.Builtin {
	return object.NewBuiltin("peripherals", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("peripherals", 0, len(args))
		}
		sections := q.Peripherals()
		results := make([]object.Object, 0, len(sections))
		for _, s := range sections {
			usages := make([]object.Object, 0, len(s.Peripherals))
			for _, p := range s.Peripherals {
				usages = append(usages, object.NewMap(map[string]object.Object{
					"name":      object.NewString(p.Name),
					"consumers": statesToList(p.Consumers),
				}))
			}
			m := map[string]object.Object{
				"owner":       object.Nil,
				"peripherals": object.NewList(usages),
			}
			if !s.FromSoc() {
				m["owner"] = object.NewString(s.Owner)
				m["owner_status"] = object.NewString(s.OwnerStatus.String())
			}
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

func makePeripheralPinsFn(q Queries) *object.Builtin {
	return object.NewBuiltin("peripheral_pins", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("peripheral_pins", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("peripheral_pins: %v", err)
		}
		pins, err := q.PeripheralPins(name)
		if err != nil {
			return object.Errorf("peripheral_pins: %v", err)
		}
		return assignmentsToList(pins)
	})
}

func makePeripheralsUsingPinFn(q Queries) *object.Builtin {
	return object.NewBuiltin("peripherals_using_pin", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("peripherals_using_pin", 1, len(args))
		}
		pin, err := toString(args[0])
		if err != nil {
			return object.Errorf("peripherals_using_pin: %v", err)
		}
		entries, err := q.PeripheralsUsingPin(pin)
		if err != nil {
			return object.Errorf("peripherals_using_pin: %v", err)
		}
		results := make([]object.Object, 0, len(entries))
		for _, e := range entries {
			results = append(results, object.NewMap(map[string]object.Object{
				"function":   object.NewString(e.Function.String()),
				"peripheral": object.NewString(e.Peripheral()),
				"consumers":  statesToList(e.Consumers),
			}))
		}
		return object.NewList(results)
	})
}

func makeExposesFn(q Queries) *object.Builtin {
	return object.NewBuiltin("exposes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("exposes", 0, len(args))
		}
		report := q.Exposes()
		results := make([]object.Object, 0, len(report.Connectors))
		for _, c := range report.Connectors {
			pins := make([]object.Object, 0, len(c.Pins))
			for _, p := range c.Pins {
				pins = append(pins, object.NewMap(map[string]object.Object{
					"pin":     object.NewString(p.Net.String()),
					"used_by": stringOrNil(p.UsedBy),
				}))
			}
			results = append(results, object.NewMap(map[string]object.Object{
				"name": object.NewString(c.Name),
				"pins": object.NewList(pins),
			}))
		}
		return object.NewList(results)
	})
}

func makeNetsFn(q Queries) *object.Builtin {
	return object.NewBuiltin("nets", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("nets", 0, len(args))
		}
		nets := q.Nets()
		results := make([]object.Object, 0, len(nets))
		for _, n := range nets {
			pinmux := make([]object.Object, 0, len(n.Pinmux))
			for _, fn := range n.Pinmux {
				pinmux = append(pinmux, object.NewString(fn.String()))
			}
			results = append(results, object.NewMap(map[string]object.Object{
				"pin":    object.NewString(n.Net.String()),
				"owner":  stringOrNil(n.Owner),
				"pinmux": object.NewList(pinmux),
			}))
		}
		return object.NewList(results)
	})
}

// --- Identifier grammar ---

func makeParseNetFn() *object.Builtin {
	return object.NewBuiltin("parse_net", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_net", 1, len(args))
		}
		s, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_net: %v", err)
		}
		net, err := model.ParseNet(s)
		if err != nil {
			return object.Errorf("parse_net: %v", err)
		}
		return netToMap(net)
	})
}

func makeParseFunctionFn() *object.Builtin {
	return object.NewBuiltin("parse_function", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_function", 1, len(args))
		}
		s, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_function: %v", err)
		}
		return functionToMap(model.ParseFunction(s))
	})
}

func makeParseConnectionFn() *object.Builtin {
	return object.NewBuiltin("parse_connection", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_connection", 1, len(args))
		}
		s, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_connection: %v", err)
		}
		conn, err := model.ParseConnection(s)
		if err != nil {
			return object.Errorf("parse_connection: %v", err)
		}
		return object.NewMap(map[string]object.Object{
			"net":      netToMap(conn.Net),
			"function": functionToMap(conn.Function),
		})
	})
}

func netToMap(n model.Net) object.Object {
	m := map[string]object.Object{
		"kind":   object.NewString("direct"),
		"device": object.Nil,
		"pin":    object.NewString(n.Pin),
		"string": object.NewString(n.String()),
	}
	if n.Kind == model.NetDevice {
		m["kind"] = object.NewString("device")
		m["device"] = object.NewString(n.Device)
	}
	return object.NewMap(m)
}

func functionToMap(f model.Function) object.Object {
	signal, ok := f.SignalName()
	m := map[string]object.Object{
		"name":       object.NewString(f.Name),
		"peripheral": object.NewString(f.Peripheral()),
		"signal":     object.Nil,
		"string":     object.NewString(f.String()),
	}
	if ok {
		m["signal"] = object.NewString(signal)
	}
	return object.NewMap(m)
}

// --- Conversion helpers ---

func statesToList(states []schematic.DeviceState) object.Object {
	results := make([]object.Object, 0, len(states))
	for _, s := range states {
		results = append(results, object.NewMap(map[string]object.Object{
			"name":   object.NewString(s.Name),
			"status": object.NewString(s.Status.String()),
		}))
	}
	return object.NewList(results)
}

func assignmentsToList(pins []schematic.PinAssignment) object.Object {
	results := make([]object.Object, 0, len(pins))
	for _, p := range pins {
		results = append(results, object.NewMap(map[string]object.Object{
			"pin":      object.NewString(p.Net.String()),
			"function": object.NewString(p.Function.String()),
			"used_by":  stringOrNil(p.UsedBy),
		}))
	}
	return object.NewList(results)
}

func stringOrNil(s string) object.Object {
	if s == "" {
		return object.Nil
	}
	return object.NewString(s)
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, slog.String("source", "script"))
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, slog.String("source", "script"))
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, slog.String("source", "script"))
}
