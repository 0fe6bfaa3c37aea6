package store

import (
	"time"

	"github.com/jward/schematic/internal/model"
)

// Run is one invocation of the indexer.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Indexed    int
	Skipped    int
}

// Manifest records the content hash of an indexed manifest file.
type Manifest struct {
	ID          int64
	Path        string
	Kind        string
	Hash        string
	LastIndexed time.Time
}

// Manifest kinds.
const (
	KindSoc   = "soc"
	KindBoard = "board"
	KindApp   = "app"
)

// SnapshotInput is what CommitSnapshot writes: one app on its board and SoC.
type SnapshotInput struct {
	AppPath string
	Hash    string
	App     *model.App
	Board   *model.Board
	Soc     *model.Soc
}

// Snapshot is a committed SnapshotInput.
type Snapshot struct {
	ID        int64
	RunID     string
	AppPath   string
	AppName   string
	Board     string
	Soc       string
	Hash      string
	IndexedAt time.Time
}

// ConnectionRow is a device connection joined with its device.
type ConnectionRow struct {
	Device     string
	Status     string
	Net        string
	Function   string
	Peripheral string
	Signal     string
}

// NetRow is a net of the combined net space with its owner ("" for the SoC).
type NetRow struct {
	Net    string
	Owner  string
	Pin    string
	Pinmux []string
}
