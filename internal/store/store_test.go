package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jward/schematic/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func conn(t *testing.T, s string) model.Connection {
	t.Helper()
	c, err := model.ParseConnection(s)
	require.NoError(t, err)
	return c
}

func fns(names ...string) []model.Function {
	out := make([]model.Function, 0, len(names))
	for _, n := range names {
		out = append(out, model.ParseFunction(n))
	}
	return out
}

// testInput is a SoC with two pins, a Used expander exposing P0, a sensor
// behind the expander, and a Free LED sharing PB2 with the expander.
func testInput(t *testing.T) *SnapshotInput {
	t.Helper()
	soc := &model.Soc{
		Name: "esp32",
		Pins: []model.Pin{
			{Name: "PB2", Pinmux: fns("i2c0.sda", "gpio")},
			{Name: "PB3", Pinmux: fns("i2c0.scl", "uart0.txd")},
		},
	}
	board := &model.Board{
		Name: "devkit",
		Soc:  "esp32",
		Devices: []model.Device{
			{
				Name:     "expander1",
				Connects: []model.Connection{conn(t, "PB2@i2c0.sda"), conn(t, "PB3@i2c0.scl")},
				Pins:     []model.Pin{{Name: "P0", Pinmux: fns("gpio")}},
			},
			{Name: "tempsensor", Connects: []model.Connection{conn(t, "expander1:P0@gpio")}},
			{Name: "led", Connects: []model.Connection{conn(t, "PB2@gpio")}},
		},
		Exposes: []model.Expose{{Name: "J1", Pins: []model.Net{model.DirectNet("PB3"), model.DeviceNet("expander1", "P0")}}},
	}
	app := &model.App{Name: "blink", Devices: []string{"expander1", "tempsensor"}}
	return &SnapshotInput{AppPath: "/apps/blink/schematic.yaml", Hash: "h1", App: app, Board: board, Soc: soc}
}

func commitTestSnapshot(t *testing.T, s *Store, in *SnapshotInput) int64 {
	t.Helper()
	run, err := s.BeginRun()
	require.NoError(t, err)
	id, err := s.CommitSnapshot(run.ID, in)
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	expectedTables := []string{
		"runs", "manifests", "snapshots", "devices", "nets", "pinmux", "connections", "exposes",
	}

	for _, table := range expectedTables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// Runs & manifests
// =============================================================================

func TestRun_BeginFinish(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	run, err := s.BeginRun()
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Nil(t, run.FinishedAt)

	run.Indexed = 2
	run.Skipped = 1
	require.NoError(t, s.FinishRun(run))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Indexed)
	assert.Equal(t, 1, runs[0].Skipped)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestManifest_Upsert(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.ManifestByPath("/boards/devkit.yaml")
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpsertManifest(&Manifest{Path: "/boards/devkit.yaml", Kind: KindBoard, Hash: "a", LastIndexed: now}))
	require.NoError(t, s.UpsertManifest(&Manifest{Path: "/boards/devkit.yaml", Kind: KindBoard, Hash: "b"}))

	got, err = s.ManifestByPath("/boards/devkit.yaml")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Hash)
	assert.Equal(t, KindBoard, got.Kind)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM manifests").Scan(&count))
	assert.Equal(t, 1, count)
}

// =============================================================================
// Snapshots
// =============================================================================

func TestCommitSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	in := testInput(t)
	id := commitTestSnapshot(t, s, in)

	snap, err := s.SnapshotByApp(in.AppPath)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "blink", snap.AppName)
	assert.Equal(t, "devkit", snap.Board)
	assert.Equal(t, "esp32", snap.Soc)
	assert.Equal(t, "h1", snap.Hash)

	var statuses []string
	rows, err := s.db.Query("SELECT status FROM devices WHERE snapshot_id = ? ORDER BY ordinal", id)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var st string
		require.NoError(t, rows.Scan(&st))
		statuses = append(statuses, st)
	}
	assert.Equal(t, []string{"Used", "Used", "Free"}, statuses)
}

func TestCommitSnapshot_Nets(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id := commitTestSnapshot(t, s, testInput(t))

	nets, err := s.NetsBySnapshot(id)
	require.NoError(t, err)
	require.Len(t, nets, 3)

	assert.Equal(t, "PB2", nets[0].Net)
	assert.Empty(t, nets[0].Owner)
	assert.Equal(t, []string{"i2c0.sda", "gpio"}, nets[0].Pinmux)

	assert.Equal(t, "expander1:P0", nets[2].Net)
	assert.Equal(t, "expander1", nets[2].Owner)
	assert.Equal(t, "P0", nets[2].Pin)
	assert.Equal(t, []string{"gpio"}, nets[2].Pinmux)
}

func TestCommitSnapshot_NilSoc(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	in := testInput(t)
	in.Soc = nil
	id := commitTestSnapshot(t, s, in)

	snap, err := s.SnapshotByApp(in.AppPath)
	require.NoError(t, err)
	assert.Empty(t, snap.Soc)

	nets, err := s.NetsBySnapshot(id)
	require.NoError(t, err)
	require.Len(t, nets, 1)
	assert.Equal(t, "expander1:P0", nets[0].Net)
}

func TestCommitSnapshot_ReplacesPrevious(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	in := testInput(t)
	first := commitTestSnapshot(t, s, in)

	in.Hash = "h2"
	second := commitTestSnapshot(t, s, in)
	assert.NotEqual(t, first, second)

	snaps, err := s.Snapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "h2", snaps[0].Hash)

	// Cascade removed the rows of the first snapshot.
	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM devices WHERE snapshot_id = ?", first).Scan(&count))
	assert.Zero(t, count)
}

func TestConnectionsByNet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id := commitTestSnapshot(t, s, testInput(t))

	conns, err := s.ConnectionsByNet(id, "PB2")
	require.NoError(t, err)
	require.Len(t, conns, 2)

	assert.Equal(t, "expander1", conns[0].Device)
	assert.Equal(t, "Used", conns[0].Status)
	assert.Equal(t, "i2c0.sda", conns[0].Function)
	assert.Equal(t, "i2c0", conns[0].Peripheral)
	assert.Equal(t, "sda", conns[0].Signal)

	assert.Equal(t, "led", conns[1].Device)
	assert.Equal(t, "Free", conns[1].Status)
	assert.Equal(t, "gpio", conns[1].Peripheral)
	assert.Empty(t, conns[1].Signal)

	none, err := s.ConnectionsByNet(id, "ZZZ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSharedNets(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id := commitTestSnapshot(t, s, testInput(t))

	shared, err := s.SharedNets(id)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"PB2": {"expander1", "led"}}, shared)
}

func TestDeleteApp(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	in := testInput(t)
	id := commitTestSnapshot(t, s, in)

	require.NoError(t, s.DeleteApp(in.AppPath))

	snap, err := s.SnapshotByApp(in.AppPath)
	require.NoError(t, err)
	assert.Nil(t, snap)

	nets, err := s.NetsBySnapshot(id)
	require.NoError(t, err)
	assert.Empty(t, nets)
}

// =============================================================================
// Hashing
// =============================================================================

func TestComputeSnapshotHash_OrderIndependent(t *testing.T) {
	t.Parallel()
	a := ComputeSnapshotHash(map[string]string{"/a": "1", "/b": "2"})
	b := ComputeSnapshotHash(map[string]string{"/b": "2", "/a": "1"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, ComputeSnapshotHash(map[string]string{"/a": "1", "/b": "3"}))
}

func TestHashFile(t *testing.T) {
	t.Parallel()
	_, err := HashFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
