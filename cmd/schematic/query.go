package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/schematic"
)

var flagApp string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the topology of an app",
	Long:  "Run topology queries against the manifests of one app. Manifests are read from disk on every call; the index is not used.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagApp, "app", ".", "app directory")

	queryCmd.AddCommand(devicesCmd)
	queryCmd.AddCommand(devicePinsCmd)
	queryCmd.AddCommand(pinDevicesCmd)
	queryCmd.AddCommand(peripheralsCmd)
	queryCmd.AddCommand(peripheralPinsCmd)
	queryCmd.AddCommand(pinPeripheralsCmd)
	queryCmd.AddCommand(exposesCmd)
	queryCmd.AddCommand(netsCmd)
}

// --- Helpers ---

// openQuery builds a QueryBuilder for --app. Without withSoc the SoC
// manifest is not read.
func openQuery(ctx context.Context, withSoc bool) (*schematic.QueryBuilder, string, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, "", err
	}
	defer engine.Close()

	dirs, err := resolveAppDirs([]string{flagApp})
	if err != nil {
		return nil, "", err
	}
	appDir := dirs[0]

	var snap schematic.Snapshot
	if withSoc {
		snap, err = engine.Snapshot(ctx, appDir)
	} else {
		snap, err = engine.BoardSnapshot(ctx, appDir)
	}
	if err != nil {
		return nil, "", err
	}
	return schematic.NewQueryBuilder(snap), snap.App.Name, nil
}

// --- devices ---

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List board devices and whether the app uses them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, app, err := openQuery(cmd.Context(), false)
		if err != nil {
			return outputError("devices", err)
		}
		devices := q.Devices()
		return outputResult(CLIResult{Command: "devices", App: app, Results: devices, TotalCount: intPtr(len(devices))})
	},
}

// --- device-pins ---

var devicePinsCmd = &cobra.Command{
	Use:   "device-pins <device>",
	Short: "List the pins a device connects to and who uses each",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, app, err := openQuery(cmd.Context(), false)
		if err != nil {
			return outputError("device-pins", err)
		}
		pins, err := q.PinsUsedByDevice(args[0])
		if err != nil {
			return outputError("device-pins", err)
		}
		result := CLIResult{Command: "device-pins", App: app, Results: pins, TotalCount: intPtr(len(pins))}
		if len(pins) == 0 {
			result.Message = fmt.Sprintf("Device '%s' does not have any connections", args[0])
		}
		return outputResult(result)
	},
}

// --- pin-devices ---

var pinDevicesCmd = &cobra.Command{
	Use:   "pin-devices <pin>",
	Short: "List the devices connected to a pin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, app, err := openQuery(cmd.Context(), true)
		if err != nil {
			return outputError("pin-devices", err)
		}
		consumers, err := q.DevicesUsingPin(args[0])
		if err != nil {
			return outputError("pin-devices", err)
		}
		result := CLIResult{Command: "pin-devices", App: app, Results: consumers, TotalCount: intPtr(len(consumers))}
		if len(consumers) == 0 {
			result.Message = fmt.Sprintf("No module found using pin '%s'", args[0])
		}
		return outputResult(result)
	},
}

// --- peripherals ---

var peripheralsCmd = &cobra.Command{
	Use:   "peripherals",
	Short: "List peripherals of the SoC and of pin-expanding devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, app, err := openQuery(cmd.Context(), true)
		if err != nil {
			return outputError("peripherals", err)
		}
		sections := q.Peripherals()
		return outputResult(CLIResult{Command: "peripherals", App: app, Results: sections, TotalCount: intPtr(len(sections))})
	},
}

// --- peripheral-pins ---

var peripheralPinsCmd = &cobra.Command{
	Use:   "peripheral-pins <peripheral>",
	Short: "List the pins a peripheral can be routed to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, app, err := openQuery(cmd.Context(), true)
		if err != nil {
			return outputError("peripheral-pins", err)
		}
		pins, err := q.PeripheralPins(args[0])
		if err != nil {
			return outputError("peripheral-pins", err)
		}
		return outputResult(CLIResult{Command: "peripheral-pins", App: app, Results: pins, TotalCount: intPtr(len(pins))})
	},
}

// --- pin-peripherals ---

var pinPeripheralsCmd = &cobra.Command{
	Use:   "pin-peripherals <pin>",
	Short: "List the pinmux of a pin and the devices on each function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, app, err := openQuery(cmd.Context(), true)
		if err != nil {
			return outputError("pin-peripherals", err)
		}
		entries, err := q.PeripheralsUsingPin(args[0])
		if err != nil {
			return outputError("pin-peripherals", err)
		}
		result := CLIResult{Command: "pin-peripherals", App: app, Results: entries, TotalCount: intPtr(len(entries))}
		if len(entries) == 0 {
			result.Message = fmt.Sprintf("No peripheral found using pin '%s'", args[0])
		}
		return outputResult(result)
	},
}

// --- exposes ---

var exposesCmd = &cobra.Command{
	Use:   "exposes",
	Short: "List the board connectors and who uses each exposed pin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, app, err := openQuery(cmd.Context(), true)
		if err != nil {
			return outputError("exposes", err)
		}
		report := q.Exposes()
		result := CLIResult{Command: "exposes", App: app, Results: report}
		if report.Empty() {
			result.Message = "No exposed pins found on the board."
		}
		return outputResult(result)
	},
}

// --- nets ---

var netsCmd = &cobra.Command{
	Use:   "nets",
	Short: "List every net of the board with its pinmux",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, app, err := openQuery(cmd.Context(), true)
		if err != nil {
			return outputError("nets", err)
		}
		nets := q.Nets()
		return outputResult(CLIResult{Command: "nets", App: app, Results: nets, TotalCount: intPtr(len(nets))})
	},
}
