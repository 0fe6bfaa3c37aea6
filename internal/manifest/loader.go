package manifest

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jward/schematic/internal/config"
	"github.com/jward/schematic/internal/model"
)

// Loader locates and reads the manifests of one project. It keeps no state
// between calls: every Load* call reads the files again.
type Loader struct {
	root   string
	cfg    config.SchematicConfig
	logger *slog.Logger
}

// NewLoader returns a Loader resolving relative directories against root.
func NewLoader(root string, cfg config.SchematicConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{root: root, cfg: cfg, logger: logger}
}

// Root returns the project root.
func (l *Loader) Root() string { return l.root }

// BoardPath returns <boards_dir>/<board>.yaml.
func (l *Loader) BoardPath() (string, error) {
	if l.cfg.Board == "" {
		return "", fmt.Errorf("no board configured: set schematic.board or pass --board")
	}
	return filepath.Join(l.abs(l.cfg.BoardsDir), l.cfg.Board+".yaml"), nil
}

// SocPath returns <socs_dir>/<board.soc>.yaml.
func (l *Loader) SocPath(board *model.Board) string {
	return filepath.Join(l.abs(l.cfg.SocsDir), board.Soc+".yaml")
}

// AppPath returns the app manifest inside appDir.
func (l *Loader) AppPath(appDir string) string {
	return filepath.Join(l.abs(appDir), l.cfg.AppManifest)
}

// LoadBoard reads the configured board.
func (l *Loader) LoadBoard() (*model.Board, error) {
	path, err := l.BoardPath()
	if err != nil {
		return nil, err
	}
	board, err := Read[model.Board](path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded board manifest", slog.String("path", path), slog.Int("devices", len(board.Devices)))
	return board, nil
}

// LoadSoc reads the SoC the board references.
func (l *Loader) LoadSoc(board *model.Board) (*model.Soc, error) {
	path := l.SocPath(board)
	soc, err := Read[model.Soc](path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded SoC manifest", slog.String("path", path), slog.Int("pins", len(soc.Pins)))
	return soc, nil
}

// LoadApp reads the app manifest in appDir.
func (l *Loader) LoadApp(appDir string) (*model.App, error) {
	path := l.AppPath(appDir)
	app, err := Read[model.App](path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded app manifest", slog.String("path", path), slog.Int("devices", len(app.Devices)))
	return app, nil
}

func (l *Loader) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.root, p)
}

// Documents is everything read for one app: the app, its board and, when
// requested, the board's SoC. Paths maps each manifest kind to its file.
type Documents struct {
	App   *model.App
	Board *model.Board
	Soc   *model.Soc
	Paths map[string]string
}

// Load reads the app in appDir together with the configured board. The SoC
// is only read when needSoc is set; otherwise Documents.Soc is nil.
func (l *Loader) Load(appDir string, needSoc bool) (*Documents, error) {
	app, err := l.LoadApp(appDir)
	if err != nil {
		return nil, err
	}
	board, err := l.LoadBoard()
	if err != nil {
		return nil, err
	}
	boardPath, _ := l.BoardPath()
	docs := &Documents{
		App:   app,
		Board: board,
		Paths: map[string]string{
			KindApp:   l.AppPath(appDir),
			KindBoard: boardPath,
		},
	}
	if needSoc {
		soc, err := l.LoadSoc(board)
		if err != nil {
			return nil, err
		}
		docs.Soc = soc
		docs.Paths[KindSoc] = l.SocPath(board)
	}
	return docs, nil
}
