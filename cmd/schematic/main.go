package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/schematic"
	"github.com/jward/schematic/internal/config"
)

var (
	flagDB       string
	flagFormat   string
	flagConfig   string
	flagBoard    string
	flagLogLevel string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "schematic",
	Short:         "Board topology queries for firmware projects",
	Long:          "Schematic reads SoC, board and app manifests and answers which devices occupy which pins and which peripherals are free.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		level, err := parseLogLevel(flagLogLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "index database path (default: index.path from config)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file layered over user and project config")
	rootCmd.PersistentFlags().StringVar(&flagBoard, "board", "", "board name (overrides schematic.board)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug|info|warn|error")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scriptCmd)
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
	}
	return level, nil
}

// newEngine loads the layered configuration for the current directory and
// builds an Engine for the project root it finds.
func newEngine() (*schematic.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	logger := slog.Default()
	cfg, root, err := config.NewLoader(logger).Load(cwd, flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagBoard != "" {
		cfg.Schematic.Board = flagBoard
	}

	opts := []schematic.Option{schematic.WithConfig(cfg), schematic.WithLogger(logger)}
	if flagDB != "" {
		db, err := filepath.Abs(flagDB)
		if err != nil {
			return nil, fmt.Errorf("resolving db path %q: %w", flagDB, err)
		}
		opts = append(opts, schematic.WithStorePath(db))
	}
	return schematic.New(root, opts...)
}

// resolveAppDirs converts app directory arguments, relative to the working
// directory, to absolute paths.
func resolveAppDirs(args []string) ([]string, error) {
	dirs := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving app path %q: %w", arg, err)
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}
