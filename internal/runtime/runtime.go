// Package runtime runs Risor scripts against a board topology. Scripts see
// the resolution queries, the identifier grammar and, when an index is
// attached, the SQLite export as host functions.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/schematic"
	"github.com/jward/schematic/internal/store"
)

const scriptExt = ".risor"

// Queries is the read-only topology API scripts are given. *schematic.QueryBuilder
// implements it.
type Queries interface {
	Devices() []schematic.DeviceState
	PinsUsedByDevice(name string) ([]schematic.PinAssignment, error)
	DevicesUsingPin(pin string) ([]schematic.PinConsumer, error)
	Peripherals() []schematic.PeripheralSection
	PeripheralPins(peripheral string) ([]schematic.PinAssignment, error)
	PeripheralsUsingPin(pin string) ([]schematic.PeripheralConsumers, error)
	Exposes() schematic.ExposeReport
	Nets() []schematic.NetEntry
}

// Runtime evaluates Risor scripts with topology host functions.
type Runtime struct {
	queries    Queries
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger

	index      *store.Store
	snapshotID int64
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts and their imports from fsys instead of disk.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger behind the script log global.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithIndex exposes the indexed snapshot snapshotID of s to scripts through
// indexed_connections, indexed_nets and db_query.
func WithIndex(s *store.Store, snapshotID int64) RuntimeOption {
	return func(r *Runtime) {
		r.index = s
		r.snapshotID = snapshotID
	}
}

// NewRuntime creates a Runtime over q loading scripts from scriptsDir.
// q may be nil, in which case only the grammar and log globals exist.
func NewRuntime(q Queries, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		queries:    q,
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript evaluates the script at scriptPath and returns its last
// expression as a Go value. extraGlobals are added to, and may shadow, the
// host functions.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (any, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource is RunScript for inline source.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) (any, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (any, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if result == nil || result == object.Nil {
		return nil, nil
	}
	return result.Interface(), nil
}

// buildImporter resolves import statements from the same place scripts are
// loaded from. Without a script source there is nothing to import.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	exts := []string{scriptExt}

	switch {
	case r.fsys != nil:
		return importer.NewFSImporter(importer.FSImporterOptions{GlobalNames: names, SourceFS: r.fsys, Extensions: exts})
	case r.scriptsDir != "":
		return importer.NewLocalImporter(importer.LocalImporterOptions{GlobalNames: names, SourceDir: r.scriptsDir, Extensions: exts})
	}
	return nil
}

// LoadScript returns the source of a script. Paths are relative to the
// configured fs.FS root, or to scriptsDir when no fs.FS is set.
func (r *Runtime) LoadScript(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if r.fsys != nil {
		path = strings.TrimPrefix(filepath.ToSlash(path), "/")
		if data, err = fs.ReadFile(r.fsys, path); err != nil {
			return "", fmt.Errorf("runtime: read %s from fs: %w", path, err)
		}
		return string(data), nil
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(r.scriptsDir, path)
	}
	if data, err = os.ReadFile(path); err != nil {
		return "", fmt.Errorf("runtime: read %s: %w", path, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse_net":        makeParseNetFn(),
		"parse_function":   makeParseFunctionFn(),
		"parse_connection": makeParseConnectionFn(),
		"log":              mustProxy(&logObject{logger: r.logger}),
	}

	if r.queries != nil {
		globals["devices"] = makeDevicesFn(r.queries)
		globals["pins_used_by_device"] = makePinsUsedByDeviceFn(r.queries)
		globals["devices_using_pin"] = makeDevicesUsingPinFn(r.queries)
		globals["peripherals"] = makePeripheralsFn(r.queries)
		globals["peripheral_pins"] = makePeripheralPinsFn(r.queries)
		globals["peripherals_using_pin"] = makePeripheralsUsingPinFn(r.queries)
		globals["exposes"] = makeExposesFn(r.queries)
		globals["nets"] = makeNetsFn(r.queries)
	}

	if r.index != nil {
		globals["indexed_connections"] = makeIndexedConnectionsFn(r.index, r.snapshotID)
		globals["indexed_nets"] = makeIndexedNetsFn(r.index, r.snapshotID)
		globals["db_query"] = makeDBQueryFn(r.index)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
