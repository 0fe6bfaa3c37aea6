package schematic

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/schematic/internal/config"
)

const (
	testSoc = `name: stm32
pins:
  - name: PB2
    pinmux: [i2c0.sda, gpio]
  - name: PB3
    pinmux: [uart0.txd]
`
	testBoard = `name: devkit
soc: stm32
devices:
  - name: expander1
    connects: ["PB2@i2c0.sda"]
  - name: led
    connects: ["PB2@gpio"]
  - name: console
    connects: ["PB3@uart0.txd"]
`
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTestEngine writes a project with two apps on one board.
func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "socs/stm32.yaml", testSoc)
	writeFile(t, root, "boards/devkit.yaml", testBoard)
	writeFile(t, root, "apps/blinky/schematic.yaml", "name: blinky\ndevices: [led]\n")
	writeFile(t, root, "apps/shell/schematic.yaml", "name: shell\ndevices: [console, expander1]\n")
	writeFile(t, root, "apps/shell/notes.yaml", "not: a manifest\n")

	cfg := config.DefaultConfig()
	cfg.Schematic.Board = "devkit"
	e, err := New(root, WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, root
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	e, err := New(root)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, root, e.Root())
	assert.Equal(t, "boards", e.Config().Schematic.BoardsDir)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	cfg.Schematic.SocsDir = ""

	_, err := New(t.TempDir(), WithConfig(cfg))
	assert.ErrorContains(t, err, "socs_dir")
}

func TestDiscoverApps(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	apps, err := e.DiscoverApps()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("apps", "blinky"), filepath.Join("apps", "shell")}, apps)
}

func TestSnapshot_LoadsAllManifests(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	snap, err := e.Snapshot(context.Background(), "apps/blinky")
	require.NoError(t, err)
	assert.Equal(t, "blinky", snap.App.Name)
	assert.Equal(t, "devkit", snap.Board.Name)
	require.NotNil(t, snap.Soc)
	assert.Equal(t, "stm32", snap.Soc.Name)
}

func TestBoardSnapshot_WithoutSoc(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	require.NoError(t, os.Remove(filepath.Join(root, "socs", "stm32.yaml")))

	_, err := e.Snapshot(context.Background(), "apps/blinky")
	require.Error(t, err)

	snap, err := e.BoardSnapshot(context.Background(), "apps/blinky")
	require.NoError(t, err)
	assert.Nil(t, snap.Soc)
	assert.Len(t, NewQueryBuilder(snap).Devices(), 3)
}

func TestSnapshot_CancelledContext(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Snapshot(ctx, "apps/blinky")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuery_ReadsManifestsEachCall(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	ctx := context.Background()

	q, err := e.Query(ctx, "apps/blinky")
	require.NoError(t, err)
	assert.Equal(t, StatusUsed, q.Devices()[1].Status)

	writeFile(t, root, "apps/blinky/schematic.yaml", "name: blinky\ndevices: []\n")
	q, err = e.Query(ctx, "apps/blinky")
	require.NoError(t, err)
	assert.Equal(t, StatusFree, q.Devices()[1].Status)
}

func TestIndex_AllDiscoveredApps(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)

	summary, err := e.Index(context.Background(), nil, false)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []string{filepath.Join("apps", "blinky"), filepath.Join("apps", "shell")}, summary.Indexed)
	assert.Empty(t, summary.Failed)
	assert.FileExists(t, filepath.Join(root, ".schematic", "index.db"))

	assert.Len(t, summary.Changed, 4)

	snaps, err := e.IndexedSnapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "blinky", snaps[0].AppName)

	shared := summary.Shared[filepath.Join("apps", "blinky")]
	assert.Equal(t, []string{"expander1", "led"}, shared["PB2"])
}

func TestIndex_SkipsUnchangedApps(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	ctx := context.Background()
	apps := []string{"apps/blinky"}

	_, err := e.Index(ctx, apps, false)
	require.NoError(t, err)

	summary, err := e.Index(ctx, apps, false)
	require.NoError(t, err)
	assert.Equal(t, apps, summary.Skipped)
	assert.Empty(t, summary.Indexed)
	assert.Empty(t, summary.Changed)

	summary, err = e.Index(ctx, apps, true)
	require.NoError(t, err)
	assert.Equal(t, apps, summary.Indexed)

	// A board change invalidates every app on the board.
	writeFile(t, root, "boards/devkit.yaml", testBoard+"  - name: buzzer\n    connects: [\"PB3@gpio\"]\n")
	summary, err = e.Index(ctx, apps, false)
	require.NoError(t, err)
	assert.Equal(t, apps, summary.Indexed)
	assert.Equal(t, []string{filepath.Join(root, "boards", "devkit.yaml")}, summary.Changed)
}

func TestIndex_RemovesDeletedApp(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Index(ctx, nil, false)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "apps", "shell", "schematic.yaml")))

	summary, err := e.Index(ctx, []string{"apps/shell"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"apps/shell"}, summary.Removed)

	snap, err := e.IndexedSnapshot("apps/shell")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestIndex_PrunesAppsNoLongerDiscovered(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Index(ctx, nil, false)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "apps", "blinky")))

	summary, err := e.Index(ctx, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("apps", "blinky")}, summary.Removed)
	assert.Equal(t, []string{filepath.Join("apps", "shell")}, summary.Skipped)

	snaps, err := e.IndexedSnapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "shell", snaps[0].AppName)
}

func TestIndex_RecordsFailures(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	writeFile(t, root, "apps/broken/schematic.yaml", "name: broken\ndevices: [\n")

	summary, err := e.Index(context.Background(), nil, false)
	require.NoError(t, err)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, filepath.Join("apps", "broken"), summary.Failed[0].App)
	assert.Len(t, summary.Indexed, 2)
}

func TestIndexedSnapshotAndRuns(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	snap, err := e.IndexedSnapshot("apps/blinky")
	require.NoError(t, err)
	assert.Nil(t, snap)

	first, err := e.Index(ctx, []string{"apps/blinky"}, false)
	require.NoError(t, err)
	_, err = e.Index(ctx, []string{"apps/blinky"}, false)
	require.NoError(t, err)

	snap, err = e.IndexedSnapshot("apps/blinky")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "blinky", snap.AppName)
	assert.Equal(t, "devkit", snap.Board)
	assert.Equal(t, first.RunID, snap.RunID)

	runs, err := e.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 0, runs[0].Indexed)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.Equal(t, 1, runs[1].Indexed)
}

func TestWatchDirs(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)

	dirs := e.WatchDirs([]string{"apps/blinky", "/elsewhere/app"})
	assert.Equal(t, []string{
		filepath.Join(root, "boards"),
		filepath.Join(root, "socs"),
		filepath.Join(root, "apps", "blinky"),
		"/elsewhere/app",
	}, dirs)
}

func TestWithStorePath(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	dbPath := filepath.Join(t.TempDir(), "custom.db")

	custom, err := New(root, WithConfig(e.Config()), WithStorePath(dbPath))
	require.NoError(t, err)
	defer custom.Close()

	_, err = custom.Index(context.Background(), []string{"apps/blinky"}, false)
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}
