package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/schematic"
	"github.com/jward/schematic/internal/runtime"
	"github.com/jward/schematic/scripts"
)

var (
	flagScriptApp string
	flagIndexed   bool
)

var scriptCmd = &cobra.Command{
	Use:   "script <file|report>",
	Short: "Run a Risor script against an app topology",
	Long: "Runs a .risor file, or one of the built-in reports (" + strings.Join(scripts.Builtins(), ", ") + "), " +
		"with the topology queries available as functions. The value of the last expression is printed.",
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	scriptCmd.Flags().StringVar(&flagScriptApp, "app", ".", "app directory")
	scriptCmd.Flags().BoolVar(&flagIndexed, "indexed", false, "also expose the indexed snapshot of the app (indexed_connections, db_query)")
}

func runScript(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	engine, err := newEngine()
	if err != nil {
		return outputError("script", err)
	}
	defer engine.Close()

	dirs, err := resolveAppDirs([]string{flagScriptApp})
	if err != nil {
		return outputError("script", err)
	}
	appDir := dirs[0]

	snap, err := engine.Snapshot(ctx, appDir)
	if err != nil {
		return outputError("script", err)
	}
	q := schematic.NewQueryBuilder(snap)

	opts := []runtime.RuntimeOption{runtime.WithLogger(slog.Default())}
	extra := map[string]any{"app_name": snap.App.Name}
	if flagIndexed {
		indexed, err := engine.IndexedSnapshot(appDir)
		if err != nil {
			return outputError("script", err)
		}
		if indexed == nil {
			return outputError("script", fmt.Errorf("app %s is not indexed (run 'schematic index' first)", appDir))
		}
		s, err := engine.Store()
		if err != nil {
			return outputError("script", err)
		}
		opts = append(opts, runtime.WithIndex(s, indexed.ID))
		extra["snapshot_id"] = indexed.ID
	}

	var rt *runtime.Runtime
	name := args[0]
	scriptPath := name
	if info, statErr := os.Stat(name); statErr == nil && !info.IsDir() {
		abs, err := filepath.Abs(name)
		if err != nil {
			return outputError("script", err)
		}
		rt = runtime.NewRuntime(q, filepath.Dir(abs), opts...)
		scriptPath = filepath.Base(abs)
	} else if p, ok := scripts.Builtin(name); ok {
		rt = runtime.NewRuntime(q, "", append(opts, runtime.WithRuntimeFS(scripts.FS))...)
		scriptPath = p
	} else {
		return outputError("script", fmt.Errorf("script %q not found: not a file or a built-in report (%s)",
			name, strings.Join(scripts.Builtins(), ", ")))
	}

	value, err := rt.RunScript(ctx, scriptPath, extra)
	if err != nil {
		return outputError("script", err)
	}
	return outputResult(CLIResult{
		Command: "script",
		App:     snap.App.Name,
		Results: CLIScriptResult{Script: name, Value: value},
	})
}
