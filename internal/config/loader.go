package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectDir marks a project root and holds its config and index.
	ProjectDir = ".schematic"
	// ProjectConfigFile is the config file inside ProjectDir.
	ProjectConfigFile = "config.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/schematic"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger  *slog.Logger
	homeDir func() (string, error)
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, homeDir: os.UserHomeDir}
}

// Load resolves the project root from startDir and loads configuration with
// layered precedence:
//  1. Default config
//  2. User config (~/.config/schematic/config.yaml)
//  3. Project config (.schematic/config.yaml in startDir or a parent)
//  4. An explicit file, when explicitPath is set
func (l *Loader) Load(startDir, explicitPath string) (*Config, string, error) {
	config := DefaultConfig()

	if userPath := l.userConfigPath(); userPath != "" {
		if userConfig, err := readLayer(userPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userPath))
			config.Merge(userConfig)
		} else if !os.IsNotExist(err) {
			l.logger.Warn("Failed to load user config", slog.String("path", userPath), slog.String("error", err.Error()))
		}
	}

	root := FindProjectRoot(startDir)
	projectPath := filepath.Join(root, ProjectDir, ProjectConfigFile)
	if projectConfig, err := readLayer(projectPath); err == nil {
		l.logger.Debug("Loaded project config", slog.String("path", projectPath))
		config.Merge(projectConfig)
	} else if os.IsNotExist(err) {
		l.logger.Debug("No project config found", slog.String("root", root))
	} else {
		return nil, "", fmt.Errorf("project config %s: %w", projectPath, err)
	}

	if explicitPath != "" {
		explicitConfig, err := readLayer(explicitPath)
		if err != nil {
			return nil, "", fmt.Errorf("config %s: %w", explicitPath, err)
		}
		l.logger.Debug("Loaded explicit config", slog.String("path", explicitPath))
		config.Merge(explicitConfig)
	}

	if err := config.Validate(); err != nil {
		return nil, "", err
	}
	return config, root, nil
}

// readLayer decodes a config file without defaults so that Merge only
// overrides the keys the file actually sets.
func readLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var layer Config
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &layer, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := l.homeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// FindProjectRoot walks up from startDir looking for a .schematic directory,
// then for a .git directory. Returns startDir if neither is found.
func FindProjectRoot(startDir string) string {
	if dir, ok := findUp(startDir, ProjectDir); ok {
		return dir
	}
	if dir, ok := findUp(startDir, ".git"); ok {
		return dir
	}
	return startDir
}

func findUp(startDir, marker string) (string, bool) {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
