package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [app...]",
	Short: "Export app topologies to the SQLite index",
	Long:  "Reads the manifests of each app (all discovered apps by default) and writes devices, nets and connections to the index database. Unchanged apps are skipped.",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "re-index apps even if their manifests are unchanged")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	engine, err := newEngine()
	if err != nil {
		return outputError("index", err)
	}
	defer engine.Close()

	apps, err := resolveAppDirs(args)
	if err != nil {
		return outputError("index", err)
	}
	summary, err := engine.Index(cmd.Context(), apps, flagForce)
	if err != nil {
		return outputError("index", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %d apps in %s\n", len(summary.Indexed), time.Since(start).Round(time.Millisecond))
	if err := outputResult(CLIResult{Command: "index", Results: summary}); err != nil {
		return err
	}
	if len(summary.Failed) > 0 {
		errorHandled = true
		return fmt.Errorf("%d apps failed to index", len(summary.Failed))
	}
	return nil
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List index runs, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return outputError("runs", err)
		}
		defer engine.Close()

		runs, err := engine.Runs()
		if err != nil {
			return outputError("runs", err)
		}
		cliRuns := toCLIRuns(runs)
		return outputResult(CLIResult{Command: "runs", Results: cliRuns, TotalCount: intPtr(len(cliRuns))})
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List the app snapshots stored in the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return outputError("snapshots", err)
		}
		defer engine.Close()

		snaps, err := engine.IndexedSnapshots()
		if err != nil {
			return outputError("snapshots", err)
		}
		cliSnaps := toCLISnapshots(snaps)
		return outputResult(CLIResult{Command: "snapshots", Results: cliSnaps, TotalCount: intPtr(len(cliSnaps))})
	},
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List app directories found under the project root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return outputError("apps", err)
		}
		defer engine.Close()

		apps, err := engine.DiscoverApps()
		if err != nil {
			return outputError("apps", err)
		}
		if apps == nil {
			apps = []string{}
		}
		return outputResult(CLIResult{Command: "apps", Results: apps, TotalCount: intPtr(len(apps))})
	},
}
