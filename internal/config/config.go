// Package config provides configuration loading for schematic projects.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete project configuration.
type Config struct {
	Schematic SchematicConfig `yaml:"schematic"`
	Index     IndexConfig     `yaml:"index"`
	Watch     WatchConfig     `yaml:"watch"`
}

// SchematicConfig locates the manifests of a project. Relative directories
// are resolved against the project root.
type SchematicConfig struct {
	// Board is the board name; the board manifest is <boards_dir>/<board>.yaml
	Board string `yaml:"board"`
	// BoardsDir holds board manifests (default: boards)
	BoardsDir string `yaml:"boards_dir"`
	// SocsDir holds SoC manifests named after board.soc (default: socs)
	SocsDir string `yaml:"socs_dir"`
	// AppsGlob matches app manifests for discovery (default: **/schematic.yaml)
	AppsGlob string `yaml:"apps_glob"`
	// AppManifest is the manifest file name inside an app directory
	AppManifest string `yaml:"app_manifest"`
}

// IndexConfig configures the SQLite topology export.
type IndexConfig struct {
	// Path of the database (default: .schematic/index.db)
	Path string `yaml:"path"`
}

// WatchConfig configures `schematic watch`.
type WatchConfig struct {
	// Debounce is how long to wait for more changes before re-indexing
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Schematic: SchematicConfig{
			BoardsDir:   "boards",
			SocsDir:     "socs",
			AppsGlob:    "**/schematic.yaml",
			AppManifest: "schematic.yaml",
		},
		Index: IndexConfig{
			Path: filepath.Join(ProjectDir, "index.db"),
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Schematic.BoardsDir == "" {
		return fmt.Errorf("schematic.boards_dir is required")
	}
	if c.Schematic.SocsDir == "" {
		return fmt.Errorf("schematic.socs_dir is required")
	}
	if c.Schematic.AppManifest == "" {
		return fmt.Errorf("schematic.app_manifest is required")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Schematic.Board != "" {
		c.Schematic.Board = other.Schematic.Board
	}
	if other.Schematic.BoardsDir != "" {
		c.Schematic.BoardsDir = other.Schematic.BoardsDir
	}
	if other.Schematic.SocsDir != "" {
		c.Schematic.SocsDir = other.Schematic.SocsDir
	}
	if other.Schematic.AppsGlob != "" {
		c.Schematic.AppsGlob = other.Schematic.AppsGlob
	}
	if other.Schematic.AppManifest != "" {
		c.Schematic.AppManifest = other.Schematic.AppManifest
	}

	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}
