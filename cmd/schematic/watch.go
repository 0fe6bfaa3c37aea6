package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jward/schematic"
	"github.com/jward/schematic/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [app...]",
	Short: "Re-index apps whenever their manifests change",
	Long:  "Indexes the given apps (all discovered apps by default), then watches the board, SoC and app manifest directories and re-indexes after each burst of changes.",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	apps, err := resolveAppDirs(args)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		if apps, err = engine.DiscoverApps(); err != nil {
			return err
		}
	}

	if err := reindex(ctx, engine, apps); err != nil {
		return err
	}

	w, err := watch.NewWatcher(watch.Config{
		Dirs:     engine.WatchDirs(apps),
		Debounce: engine.Config().Watch.Debounce,
		Logger:   slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(os.Stderr, "Watching %d apps, press Ctrl-C to stop\n", len(apps))
	for batch := range w.Events() {
		slog.Info("Manifests changed", slog.Int("files", len(batch.Paths)), slog.Int("removed", len(batch.Removed)))
		if err := reindex(ctx, engine, apps); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Re-index failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// reindex runs one index pass and prints its summary.
func reindex(ctx context.Context, engine *schematic.Engine, apps []string) error {
	summary, err := engine.Index(ctx, apps, false)
	if err != nil {
		return err
	}
	return outputResult(CLIResult{Command: "watch", Results: summary})
}
