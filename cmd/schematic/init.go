package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/schematic/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create or update the project config",
	Long:  "Writes .schematic/config.yaml in dir (default: the working directory). An existing config is loaded first and only the flags given here change it.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return outputError("init", fmt.Errorf("resolving path %q: %w", dir, err))
	}
	path := filepath.Join(abs, config.ProjectDir, config.ProjectConfigFile)

	cfg := config.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if cfg, err = config.LoadFromFile(path); err != nil {
			return outputError("init", err)
		}
	}
	if flagBoard != "" {
		cfg.Schematic.Board = flagBoard
	}
	if err := cfg.Validate(); err != nil {
		return outputError("init", err)
	}
	if err := cfg.SaveToFile(path); err != nil {
		return outputError("init", err)
	}
	return outputResult(CLIResult{Command: "init", Results: []string{path}})
}
