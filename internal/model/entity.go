// Package model holds the schematic description tree of a board (SoC, board,
// devices, connectors and apps), the compact identifier grammar used inside
// it, and the topology index that the resolution queries traverse.
//
// Values are immutable snapshots. Nothing in this package performs I/O,
// caches, or validates references between entities: a connection to a pin
// that no one declares simply never matches.
package model

// Soc is the board's core chip.
type Soc struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Buses lists peripherals that several external devices may share.
	Buses []string `yaml:"buses,omitempty"`
	Pins  []Pin    `yaml:"pins,omitempty"`
}

// Pin is a physical contact with the functions it can be muxed to, in
// declaration order.
type Pin struct {
	Name   string     `yaml:"name"`
	Pinmux []Function `yaml:"pinmux"`
}

// Board describes the devices and connectors placed around a SoC. Soc is a
// name reference resolved by the caller.
type Board struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Soc         string   `yaml:"soc"`
	Devices     []Device `yaml:"devices,omitempty"`
	Exposes     []Expose `yaml:"exposes,omitempty"`
}

// Device is a discrete on-board component. Pins is set for devices that fan
// out further pins, such as IO expanders.
type Device struct {
	Name     string       `yaml:"name"`
	Connects []Connection `yaml:"connects"`
	Buses    []string     `yaml:"buses,omitempty"`
	Pins     []Pin        `yaml:"pins,omitempty"`
}

// Expose is a connector surfacing nets to the end user.
type Expose struct {
	Name string `yaml:"name"`
	Pins []Net  `yaml:"pins"`
}

// App is a firmware application and the on-board devices it uses.
type App struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Devices     []string `yaml:"devices,omitempty"`
}
