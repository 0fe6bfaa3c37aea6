package schematic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/schematic/internal/config"
	"github.com/jward/schematic/internal/manifest"
	"github.com/jward/schematic/internal/store"
)

// Engine ties a project together: its configuration, the manifests on disk
// and the optional SQLite export. Queries always read the manifests again;
// only Index touches the database.
type Engine struct {
	root      string
	cfg       *config.Config
	loader    *manifest.Loader
	logger    *slog.Logger
	storePath string
	store     *store.Store
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the project configuration. Without it the defaults apply.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger used by the Engine and its manifest loader.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStorePath overrides index.path from the configuration.
func WithStorePath(path string) Option {
	return func(e *Engine) {
		e.storePath = path
	}
}

// New creates an Engine for the project rooted at root.
func New(root string, opts ...Option) (*Engine, error) {
	e := &Engine{root: root}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg == nil {
		e.cfg = config.DefaultConfig()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("schematic: %w", err)
	}
	if e.storePath == "" {
		e.storePath = e.cfg.Index.Path
	}
	if !filepath.IsAbs(e.storePath) {
		e.storePath = filepath.Join(root, e.storePath)
	}
	e.loader = manifest.NewLoader(root, e.cfg.Schematic, e.logger)
	return e, nil
}

// Close releases the database if Index opened it.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	err := e.store.Close()
	e.store = nil
	return err
}

// Root returns the project root.
func (e *Engine) Root() string { return e.root }

// Config returns the configuration in effect.
func (e *Engine) Config() *config.Config { return e.cfg }

// Snapshot loads the app in appDir with its board and SoC.
func (e *Engine) Snapshot(ctx context.Context, appDir string) (Snapshot, error) {
	return e.snapshot(ctx, appDir, true)
}

// BoardSnapshot is Snapshot without the SoC. Device listings and device pin
// queries never look at SoC nets, so they work even when the SoC manifest
// is missing.
func (e *Engine) BoardSnapshot(ctx context.Context, appDir string) (Snapshot, error) {
	return e.snapshot(ctx, appDir, false)
}

func (e *Engine) snapshot(ctx context.Context, appDir string, needSoc bool) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	docs, err := e.loader.Load(appDir, needSoc)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{App: *docs.App, Board: *docs.Board, Soc: docs.Soc}, nil
}

// Query loads a fresh Snapshot of appDir and returns a QueryBuilder over it.
func (e *Engine) Query(ctx context.Context, appDir string) (*QueryBuilder, error) {
	snap, err := e.Snapshot(ctx, appDir)
	if err != nil {
		return nil, err
	}
	return NewQueryBuilder(snap), nil
}

// DiscoverApps returns the directories, relative to the project root, of all
// app manifests matching schematic.apps_glob. The result is sorted.
func (e *Engine) DiscoverApps() ([]string, error) {
	pattern := filepath.Join(e.root, e.cfg.Schematic.AppsGlob)
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("discover apps: %w", err)
	}

	seen := make(map[string]bool, len(matches))
	var apps []string
	for _, m := range matches {
		if filepath.Base(m) != e.cfg.Schematic.AppManifest {
			continue
		}
		dir, err := filepath.Rel(e.root, filepath.Dir(m))
		if err != nil {
			dir = filepath.Dir(m)
		}
		if !seen[dir] {
			seen[dir] = true
			apps = append(apps, dir)
		}
	}
	sort.Strings(apps)
	return apps, nil
}

// IndexSummary reports the outcome of one Index call.
type IndexSummary struct {
	RunID   string         `json:"run_id"`
	Indexed []string       `json:"indexed"`
	Skipped []string       `json:"skipped"`
	Removed []string       `json:"removed"`
	Failed  []IndexFailure `json:"failed"`
	// Changed lists the manifest files whose content differs from the last
	// time they were indexed.
	Changed []string `json:"changed,omitempty"`
	// Shared lists, per indexed app, the nets more than one device connects to.
	Shared map[string]map[string][]string `json:"shared,omitempty"`
}

// IndexFailure is an app that could not be indexed.
type IndexFailure struct {
	App   string `json:"app"`
	Error string `json:"error"`
}

// Store opens the index database on first use and returns it.
func (e *Engine) Store() (*store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if err := os.MkdirAll(filepath.Dir(e.storePath), 0o755); err != nil {
		return nil, fmt.Errorf("schematic: create index directory: %w", err)
	}
	s, err := store.NewStore(e.storePath)
	if err != nil {
		return nil, fmt.Errorf("schematic: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("schematic: migrate: %w", err)
	}
	e.store = s
	return s, nil
}

// Index exports the topology of each app in appDirs to the database. With
// no appDirs every discovered app is indexed. An app whose manifests are
// unchanged since the last run is skipped unless force is set. An app whose
// manifest no longer exists is removed from the index; with no appDirs this
// covers every indexed app that discovery no longer finds.
//
// Errors on individual apps are recorded in the summary and processing
// continues.
func (e *Engine) Index(ctx context.Context, appDirs []string, force bool) (IndexSummary, error) {
	var summary IndexSummary

	s, err := e.Store()
	if err != nil {
		return summary, err
	}
	discovered := len(appDirs) == 0
	if discovered {
		if appDirs, err = e.DiscoverApps(); err != nil {
			return summary, err
		}
	}

	run, err := s.BeginRun()
	if err != nil {
		return summary, err
	}
	summary.RunID = run.ID

	if discovered {
		removed, err := e.pruneUndiscovered(s, appDirs)
		if err != nil {
			return summary, err
		}
		summary.Removed = append(summary.Removed, removed...)
	}

	for _, appDir := range appDirs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, shared, err := e.indexApp(s, run.ID, appDir, force, &summary)
		switch {
		case err != nil:
			e.logger.Warn("Failed to index app", slog.String("app", appDir), slog.String("error", err.Error()))
			summary.Failed = append(summary.Failed, IndexFailure{App: appDir, Error: err.Error()})
		case outcome == outcomeSkipped:
			summary.Skipped = append(summary.Skipped, appDir)
		case outcome == outcomeRemoved:
			summary.Removed = append(summary.Removed, appDir)
		default:
			summary.Indexed = append(summary.Indexed, appDir)
			if len(shared) > 0 {
				if summary.Shared == nil {
					summary.Shared = make(map[string]map[string][]string)
				}
				summary.Shared[appDir] = shared
			}
		}
	}

	run.Indexed = len(summary.Indexed)
	run.Skipped = len(summary.Skipped)
	if err := s.FinishRun(run); err != nil {
		return summary, err
	}
	e.logger.Info("Index run finished",
		slog.String("run", run.ID),
		slog.Int("indexed", run.Indexed),
		slog.Int("skipped", run.Skipped),
		slog.Int("failed", len(summary.Failed)))
	return summary, nil
}

// pruneUndiscovered deletes the snapshot of every indexed app that is not
// among appDirs and returns the removed app dirs relative to the root.
func (e *Engine) pruneUndiscovered(s *store.Store, appDirs []string) ([]string, error) {
	keep := make(map[string]bool, len(appDirs))
	for _, dir := range appDirs {
		keep[e.loader.AppPath(dir)] = true
	}
	snaps, err := s.Snapshots()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, snap := range snaps {
		if keep[snap.AppPath] {
			continue
		}
		if err := s.DeleteApp(snap.AppPath); err != nil {
			return removed, err
		}
		dir, err := filepath.Rel(e.root, filepath.Dir(snap.AppPath))
		if err != nil {
			dir = filepath.Dir(snap.AppPath)
		}
		e.logger.Info("Removed app from index", slog.String("app", dir))
		removed = append(removed, dir)
	}
	return removed, nil
}

type indexOutcome int

const (
	outcomeIndexed indexOutcome = iota
	outcomeSkipped
	outcomeRemoved
)

func (e *Engine) indexApp(s *store.Store, runID, appDir string, force bool, summary *IndexSummary) (indexOutcome, map[string][]string, error) {
	appPath := e.loader.AppPath(appDir)
	docs, err := e.loader.Load(appDir, true)
	if err != nil {
		var me *manifest.Error
		if errors.As(err, &me) && me.Path == appPath && manifest.IsNotExist(err) {
			if err := s.DeleteApp(appPath); err != nil {
				return 0, nil, err
			}
			return outcomeRemoved, nil, nil
		}
		return 0, nil, err
	}

	hashes := make(map[string]string, len(docs.Paths))
	for _, path := range docs.Paths {
		h, err := store.HashFile(path)
		if err != nil {
			return 0, nil, fmt.Errorf("hash manifest: %w", err)
		}
		hashes[path] = h
		if changed, err := manifestChanged(s, path, h); err != nil {
			return 0, nil, err
		} else if changed && !slices.Contains(summary.Changed, path) {
			summary.Changed = append(summary.Changed, path)
		}
	}
	hash := store.ComputeSnapshotHash(hashes)

	if !force {
		prev, err := s.SnapshotByApp(appPath)
		if err != nil {
			return 0, nil, err
		}
		if prev != nil && prev.Hash == hash {
			e.logger.Debug("App unchanged", slog.String("app", appDir))
			return outcomeSkipped, nil, nil
		}
	}

	snapID, err := s.CommitSnapshot(runID, &store.SnapshotInput{
		AppPath: appPath,
		Hash:    hash,
		App:     docs.App,
		Board:   docs.Board,
		Soc:     docs.Soc,
	})
	if err != nil {
		return 0, nil, err
	}
	for kind, path := range docs.Paths {
		if err := s.UpsertManifest(&store.Manifest{Path: path, Kind: kind, Hash: hashes[path]}); err != nil {
			return 0, nil, err
		}
	}

	shared, err := s.SharedNets(snapID)
	if err != nil {
		return 0, nil, err
	}
	for net, devices := range shared {
		e.logger.Warn("Net has more than one connected device",
			slog.String("app", appDir), slog.String("net", net), slog.Any("devices", devices))
	}
	e.logger.Debug("Indexed app", slog.String("app", appDir), slog.Int64("snapshot", snapID))
	return outcomeIndexed, shared, nil
}

// manifestChanged reports whether path was never indexed or had a different
// hash when it last was.
func manifestChanged(s *store.Store, path, hash string) (bool, error) {
	prev, err := s.ManifestByPath(path)
	if err != nil {
		return false, err
	}
	return prev == nil || prev.Hash != hash, nil
}

// IndexedSnapshots returns every stored snapshot ordered by app path.
func (e *Engine) IndexedSnapshots() ([]*store.Snapshot, error) {
	s, err := e.Store()
	if err != nil {
		return nil, err
	}
	return s.Snapshots()
}

// IndexedSnapshot returns the stored snapshot of appDir, or nil if the app
// was never indexed.
func (e *Engine) IndexedSnapshot(appDir string) (*store.Snapshot, error) {
	s, err := e.Store()
	if err != nil {
		return nil, err
	}
	return s.SnapshotByApp(e.loader.AppPath(appDir))
}

// Runs returns the index run history, most recent first.
func (e *Engine) Runs() ([]*store.Run, error) {
	s, err := e.Store()
	if err != nil {
		return nil, err
	}
	return s.Runs()
}

// WatchDirs returns the absolute directories holding the manifests of the
// given apps: the boards and SoCs directories followed by each app directory.
func (e *Engine) WatchDirs(appDirs []string) []string {
	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(e.root, p)
	}
	dirs := []string{abs(e.cfg.Schematic.BoardsDir), abs(e.cfg.Schematic.SocsDir)}
	for _, app := range appDirs {
		dirs = append(dirs, abs(app))
	}
	return dirs
}
