package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestLoader(t *testing.T, home string) *Loader {
	t.Helper()
	l := NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.homeDir = func() (string, error) { return home, nil }
	return l
}

func TestDefaultConfig_Valid(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "boards", cfg.Schematic.BoardsDir)
	assert.Equal(t, "socs", cfg.Schematic.SocsDir)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Schematic.BoardsDir = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Watch.Debounce = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFile_KeepsDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "schematic:\n  board: devkit\nwatch:\n  debounce: 1s\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "devkit", cfg.Schematic.Board)
	assert.Equal(t, "boards", cfg.Schematic.BoardsDir)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "c.yaml")

	cfg := DefaultConfig()
	cfg.Schematic.Board = "devkit"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoader_Layering(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	root := t.TempDir()

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile),
		"schematic:\n  board: from-user\n  socs_dir: chips\n")
	writeFile(t, filepath.Join(root, ProjectDir, ProjectConfigFile),
		"schematic:\n  board: from-project\n")

	sub := filepath.Join(root, "apps", "blinky")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg, gotRoot, err := newTestLoader(t, home).Load(sub, "")
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, "from-project", cfg.Schematic.Board)
	assert.Equal(t, "chips", cfg.Schematic.SocsDir, "user layer survives project layer")
	assert.Equal(t, "boards", cfg.Schematic.BoardsDir)
}

func TestLoader_ExplicitFileWins(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	explicit := filepath.Join(t.TempDir(), "override.yaml")
	writeFile(t, explicit, "schematic:\n  board: override\n")

	cfg, _, err := newTestLoader(t, t.TempDir()).Load(root, explicit)
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Schematic.Board)
}

func TestLoader_BrokenProjectConfig(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ProjectDir, ProjectConfigFile), "schematic: [\n")

	_, _, err := newTestLoader(t, t.TempDir()).Load(root, "")
	assert.Error(t, err)
}

func TestFindProjectRoot_NoMarker(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, FindProjectRoot(dir))
}
