// Package schematic answers pin and peripheral questions about an embedded
// board: which on-board devices an application uses, which SoC pins those
// devices occupy, and which peripherals remain free.
//
// # Model
//
// A project is described by three kinds of YAML manifest:
//
//   - a SoC manifest listing the chip's pins and, per pin, the ordered list
//     of functions it can be muxed to (its pinmux);
//   - a board manifest naming the SoC, the devices wired to it and the
//     connectors that surface pins to the outside;
//   - an app manifest per firmware application naming the devices it uses.
//
// Pins are addressed as nets: "PB2" for a SoC pin, "expander1:P0" for a pin
// fanned out by an on-board device. Functions are "gpio" or
// "peripheral.signal" such as "uart0.txd". A device connection is written
// "net@function". The SoC nets followed by the nets of every device form the
// combined net space of a board.
//
// # Usage
//
// Create an Engine for a project root and query an app:
//
//	e, err := schematic.New(root, schematic.WithConfig(cfg))
//	if err != nil { ... }
//	defer e.Close()
//
//	q, err := e.Query(ctx, "apps/blinky")
//	pins, err := q.PinsUsedByDevice("sensor1")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] works on one immutable
// [Snapshot] and never touches disk:
//
//   - [QueryBuilder.Devices] lists board devices as Used or Free.
//   - [QueryBuilder.PinsUsedByDevice] lists a device's connections and the
//     first used device on each net.
//   - [QueryBuilder.DevicesUsingPin] lists every device on a net.
//   - [QueryBuilder.Peripherals] groups peripherals by the SoC and by each
//     pin-expanding device.
//   - [QueryBuilder.PeripheralPins] lists the nets a peripheral can use.
//   - [QueryBuilder.PeripheralsUsingPin] lists a net's pinmux with consumers.
//   - [QueryBuilder.Exposes] resolves connector pins.
//   - [QueryBuilder.Nets] lists the combined net space.
//
// Malformed identifiers fail with an error matching [ErrInvalidFormat];
// unknown pins, devices and peripherals with one matching [ErrNotFound].
//
// # Index
//
// [Engine.Index] exports app topologies to SQLite so that scripts and
// external tools can query them with SQL. Apps whose manifests hash the same
// as last time are skipped. Risor scripts run against a snapshot through the
// internal/runtime package; the built-in reports live in the scripts package.
package schematic
