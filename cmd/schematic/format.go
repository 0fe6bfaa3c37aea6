package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/schematic"
)

// outputResult writes result to stdout in the selected format.
func outputResult(result CLIResult) error {
	return writeResult(os.Stdout, flagFormat, result)
}

func writeResult(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return writeResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func writeResultText(w io.Writer, result CLIResult) error {
	if result.Message != "" {
		fmt.Fprintln(w, result.Message)
		return nil
	}

	switch v := result.Results.(type) {
	case []schematic.DeviceState:
		formatDevicesText(w, v)
	case []schematic.PinAssignment:
		formatAssignmentsText(w, v)
	case []schematic.PinConsumer:
		formatConsumersText(w, v)
	case []schematic.PeripheralSection:
		formatPeripheralsText(w, v)
	case []schematic.PeripheralConsumers:
		formatPeripheralConsumersText(w, v)
	case schematic.ExposeReport:
		formatExposesText(w, v)
	case []schematic.NetEntry:
		formatNetsText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case schematic.IndexSummary:
		formatIndexSummaryText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case []CLISnapshot:
		formatSnapshotsText(w, v)
	case CLIScriptResult:
		return formatScriptText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

func formatDevicesText(w io.Writer, devices []schematic.DeviceState) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tSTATUS")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Status)
	}
	tw.Flush()
}

func formatAssignmentsText(w io.Writer, pins []schematic.PinAssignment) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PIN\tFUNCTION\tUSED BY")
	for _, p := range pins {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Net, p.Function, usedByText(p.UsedBy))
	}
	tw.Flush()
}

func formatConsumersText(w io.Writer, consumers []schematic.PinConsumer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tSTATUS\tFUNCTION")
	for _, c := range consumers {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Device, c.Status, c.Function)
	}
	tw.Flush()
}

func formatPeripheralsText(w io.Writer, sections []schematic.PeripheralSection) {
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if s.FromSoc() {
			fmt.Fprintln(w, "SoC")
		} else {
			fmt.Fprintf(w, "Device %s (%s)\n", s.Owner, s.OwnerStatus)
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PERIPHERAL\tCONSUMERS")
		for _, p := range s.Peripherals {
			fmt.Fprintf(tw, "%s\t%s\n", p.Name, statesText(p.Consumers))
		}
		tw.Flush()
	}
}

func formatPeripheralConsumersText(w io.Writer, entries []schematic.PeripheralConsumers) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNCTION\tPERIPHERAL\tCONSUMERS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Function, e.Peripheral(), statesText(e.Consumers))
	}
	tw.Flush()
}

func formatExposesText(w io.Writer, report schematic.ExposeReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONNECTOR\tPIN\tUSED BY")
	for _, c := range report.Connectors {
		for _, p := range c.Pins {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, p.Net, usedByText(p.UsedBy))
		}
	}
	tw.Flush()
}

func formatNetsText(w io.Writer, nets []schematic.NetEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PIN\tOWNER\tPINMUX")
	for _, n := range nets {
		owner := n.Owner
		if owner == "" {
			owner = "SoC"
		}
		fns := make([]string, 0, len(n.Pinmux))
		for _, f := range n.Pinmux {
			fns = append(fns, f.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Net, owner, strings.Join(fns, ", "))
	}
	tw.Flush()
}

func formatIndexSummaryText(w io.Writer, s schematic.IndexSummary) {
	fmt.Fprintf(w, "Run %s: %d indexed, %d skipped, %d removed, %d failed\n",
		s.RunID, len(s.Indexed), len(s.Skipped), len(s.Removed), len(s.Failed))
	for _, f := range s.Failed {
		fmt.Fprintf(w, "  failed %s: %s\n", f.App, f.Error)
	}
	for _, path := range s.Changed {
		fmt.Fprintf(w, "  changed %s\n", path)
	}

	apps := make([]string, 0, len(s.Shared))
	for app := range s.Shared {
		apps = append(apps, app)
	}
	sort.Strings(apps)
	for _, app := range apps {
		nets := make([]string, 0, len(s.Shared[app]))
		for net := range s.Shared[app] {
			nets = append(nets, net)
		}
		sort.Strings(nets)
		for _, net := range nets {
			fmt.Fprintf(w, "  shared %s %s: %s\n", app, net, strings.Join(s.Shared[app][net], ", "))
		}
	}
}

func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tINDEXED\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Indexed, r.Skipped)
	}
	tw.Flush()
}

func formatSnapshotsText(w io.Writer, snaps []CLISnapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "APP\tBOARD\tSOC\tRUN\tPATH")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.App, s.Board, s.Soc, s.RunID, s.Path)
	}
	tw.Flush()
}

// formatScriptText prints strings as-is and anything else as indented JSON.
func formatScriptText(w io.Writer, r CLIScriptResult) error {
	switch v := r.Value.(type) {
	case nil:
		return nil
	case string:
		fmt.Fprintln(w, v)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Value)
}

func usedByText(usedBy string) string {
	if usedBy == "" {
		return "Free"
	}
	return usedBy
}

func statesText(states []schematic.DeviceState) string {
	if len(states) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, fmt.Sprintf("%s (%s)", s.Name, s.Status))
	}
	return strings.Join(parts, ", ")
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
