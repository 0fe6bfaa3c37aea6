package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/schematic"
	"github.com/jward/schematic/internal/model"
	"github.com/jward/schematic/internal/store"
)

func conn(t *testing.T, s string) model.Connection {
	t.Helper()
	c, err := model.ParseConnection(s)
	require.NoError(t, err)
	return c
}

// testQueries builds a board with a SoC pin PB2 shared by two devices, an
// expander fanning out P0 and an app using the expander and the sensor.
func testQueries(t *testing.T) *schematic.QueryBuilder {
	t.Helper()
	soc := &model.Soc{
		Name: "stm32",
		Pins: []model.Pin{
			{Name: "PB2", Pinmux: []model.Function{model.ParseFunction("i2c0.sda"), model.ParseFunction("gpio")}},
			{Name: "PB3", Pinmux: []model.Function{model.ParseFunction("uart0.txd")}},
		},
	}
	board := model.Board{
		Name: "devkit",
		Soc:  "stm32",
		Devices: []model.Device{
			{
				Name:     "expander1",
				Connects: []model.Connection{conn(t, "PB2@i2c0.sda")},
				Pins:     []model.Pin{{Name: "P0", Pinmux: []model.Function{model.ParseFunction("gpio")}}},
			},
			{Name: "tempsensor", Connects: []model.Connection{conn(t, "expander1:P0@gpio")}},
			{Name: "led", Connects: []model.Connection{conn(t, "PB2@gpio")}},
		},
		Exposes: []model.Expose{{Name: "J1", Pins: []model.Net{model.DirectNet("PB3")}}},
	}
	app := model.App{Name: "blinky", Devices: []string{"expander1", "tempsensor"}}
	return schematic.NewQueryBuilder(schematic.Snapshot{App: app, Board: board, Soc: soc})
}

func run(t *testing.T, rt *Runtime, script string) any {
	t.Helper()
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	return got
}

// --- Query host functions ---

func TestRunSource_Devices(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(testQueries(t), "")

	run(t, rt, `
ds := devices()
assert(len(ds) == 3, 'expected 3 devices, got {len(ds)}')
assert(ds[0]["name"] == "expander1")
assert(ds[0]["status"] == "Used")
assert(ds[2]["status"] == "Free")
`)
}

func TestRunSource_PinsUsedByDevice(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(testQueries(t), "")

	run(t, rt, `
pins := pins_used_by_device("led")
assert(len(pins) == 1)
assert(pins[0]["pin"] == "PB2")
assert(pins[0]["function"] == "gpio")
assert(pins[0]["used_by"] == "expander1", 'got {pins[0]["used_by"]}')
`)
}

func TestRunSource_PinsUsedByDevice_UnknownDevice(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(testQueries(t), "")

	_, err := rt.RunSource(context.Background(), `pins_used_by_device("ghost")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device 'ghost' not found")
}

func TestRunSource_DevicesUsingPin(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(testQueries(t), "")

	run(t, rt, `
users := devices_using_pin("expander1:P0")
assert(len(users) == 1)
assert(users[0]["device"] == "tempsensor")
assert(users[0]["function"] == "gpio")
`)

	_, err := rt.RunSource(context.Background(), `devices_using_pin("ZZZ")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pin 'ZZZ' not found on the board")
}

func TestRunSource_Peripherals(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(testQueries(t), "")

	got := run(t, rt, `
sections := peripherals()
assert(sections[0]["owner"] == nil)
assert(sections[1]["owner"] == "expander1")
len(sections)
`)
	assert.EqualValues(t, 2, got)
}

func TestRunSource_PeripheralPinsAndUsingPin(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(testQueries(t), "")

	run(t, rt, `
pins := peripheral_pins("uart0")
assert(len(pins) == 1)
assert(pins[0]["pin"] == "PB3")
assert(pins[0]["used_by"] == nil)

entries := peripherals_using_pin("PB2")
assert(len(entries) == 2)
assert(entries[0]["peripheral"] == "i2c0")
assert(entries[0]["consumers"][0]["name"] == "expander1")
assert(entries[1]["consumers"][0]["name"] == "led")
`)
}

func TestRunSource_ExposesAndNets(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(testQueries(t), "")

	run(t, rt, `
ex := exposes()
assert(ex[0]["name"] == "J1")
assert(ex[0]["pins"][0]["pin"] == "PB3")

ns := nets()
assert(len(ns) == 3)
assert(ns[2]["pin"] == "expander1:P0")
assert(ns[2]["owner"] == "expander1")
`)
}

func TestRunSource_ReturnsLastValue(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(testQueries(t), "")

	got := run(t, rt, `
names := []
for _, d := range devices() {
    names.append(d["name"])
}
names
`)
	assert.Equal(t, []any{"expander1", "tempsensor", "led"}, got)
}

// --- Identifier grammar ---

func TestRunSource_ParseIdentifiers(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")

	run(t, rt, `
n := parse_net("expander1:P0")
assert(n["kind"] == "device")
assert(n["device"] == "expander1")
assert(n["pin"] == "P0")

f := parse_function("i2c0.sda.extra")
assert(f["peripheral"] == "i2c0")
assert(f["signal"] == "sda.extra")
assert(parse_function("gpio")["signal"] == nil)

c := parse_connection("PB2@uart0.txd")
assert(c["net"]["kind"] == "direct")
assert(c["function"]["string"] == "uart0.txd")
`)
}

func TestRunSource_ParseNetInvalid(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")

	_, err := rt.RunSource(context.Background(), `parse_net("a:b:c")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid net format "a:b:c"`)
}

func TestRunSource_NoQueriesNoQueryGlobals(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")

	_, err := rt.RunSource(context.Background(), `devices()`, nil)
	require.Error(t, err)
}

// --- Index host functions ---

func TestRunSource_IndexedConnections(t *testing.T) {
	t.Parallel()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	q := testQueries(t)
	snap := q.Snapshot()
	runRec, err := s.BeginRun()
	require.NoError(t, err)
	id, err := s.CommitSnapshot(runRec.ID, &store.SnapshotInput{
		AppPath: "/apps/blinky/schematic.yaml", Hash: "h", App: &snap.App, Board: &snap.Board, Soc: snap.Soc,
	})
	require.NoError(t, err)

	rt := NewRuntime(q, "", WithIndex(s, id))
	_, err = rt.RunSource(context.Background(), `
conns := indexed_connections("PB2")
assert(len(conns) == 2, 'expected 2, got {len(conns)}')
assert(conns[1]["device"] == "led")
assert(conns[1]["status"] == "Free")
assert(conns[0]["signal"] == "sda")

ns := indexed_nets()
assert(len(ns) == 3, 'expected 3 nets, got {len(ns)}')
assert(ns[0]["owner"] == nil)
assert(ns[2]["pin"] == "expander1:P0")
assert(ns[0]["pinmux"][0] == "i2c0.sda")

rows := db_query("SELECT app_name FROM snapshots WHERE id = ?", snapshot_id)
assert(rows[0]["app_name"] == "blinky")
`, map[string]any{"snapshot_id": id})
	require.NoError(t, err)
}

func TestDBQuery_RejectsWrites(t *testing.T) {
	t.Parallel()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	rt := NewRuntime(nil, "", WithIndex(s, 0))
	_, err = rt.RunSource(context.Background(), `db_query("DELETE FROM runs")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")
}

func TestDBQuery_RejectsTrailingWriteStatement(t *testing.T) {
	t.Parallel()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	_, err = s.BeginRun()
	require.NoError(t, err)

	rt := NewRuntime(nil, "", WithIndex(s, 0))
	_, err = rt.RunSource(context.Background(), `db_query("SELECT 1; DELETE FROM runs")`, nil)
	require.Error(t, err)

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// The connection is returned to the pool writable again.
	_, err = s.BeginRun()
	require.NoError(t, err)
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`1 + 1`), 0644))

	rt := NewRuntime(nil, dir)
	got, err := rt.RunScript(context.Background(), "test.risor", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got)
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, t.TempDir())

	_, err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"report/conflicts.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/report/conflicts.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestRunScript_ExtraGlobals(t *testing.T) {
	mapFS := fstest.MapFS{
		"greet.risor": &fstest.MapFile{Data: []byte(`'hello {who}'`)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.RunScript(context.Background(), "greet.risor", map[string]any{"who": "board"})
	require.NoError(t, err)
	assert.Equal(t, "hello board", got)
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func used_names() {
	names := []
	for _, d := range devices() {
		if d["status"] == "Used" {
			names.append(d["name"])
		}
	}
	return names
}
`)},
	}
	rt := NewRuntime(testQueries(t), "", WithRuntimeFS(mapFS))

	got := run(t, rt, `
import lib_helpers
lib_helpers.used_names()
`)
	assert.Equal(t, []any{"expander1", "tempsensor"}, got)
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(nil, dir)
	run(t, rt, `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`)
}

func TestImport_LogGlobalAvailableInModules(t *testing.T) {
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	run(t, rt, `
import helper
helper.do_log("test message")
`)
}
