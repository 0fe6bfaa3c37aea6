package main

import (
	"time"

	"github.com/jward/schematic/internal/store"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	App        string `json:"app,omitempty"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	// Message is the human answer for an empty result, e.g. a device
	// without connections.
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CLIRun is a JSON-friendly index run.
type CLIRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Indexed    int        `json:"indexed"`
	Skipped    int        `json:"skipped"`
}

func toCLIRuns(runs []*store.Run) []CLIRun {
	out := make([]CLIRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, CLIRun{
			ID:         r.ID,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Indexed:    r.Indexed,
			Skipped:    r.Skipped,
		})
	}
	return out
}

// CLISnapshot is a JSON-friendly indexed app snapshot.
type CLISnapshot struct {
	App       string    `json:"app"`
	Path      string    `json:"path"`
	Board     string    `json:"board"`
	Soc       string    `json:"soc,omitempty"`
	RunID     string    `json:"run_id"`
	Hash      string    `json:"hash"`
	IndexedAt time.Time `json:"indexed_at"`
}

func toCLISnapshots(snaps []*store.Snapshot) []CLISnapshot {
	out := make([]CLISnapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, CLISnapshot{
			App:       s.AppName,
			Path:      s.AppPath,
			Board:     s.Board,
			Soc:       s.Soc,
			RunID:     s.RunID,
			Hash:      s.Hash,
			IndexedAt: s.IndexedAt,
		})
	}
	return out
}

// CLIScriptResult wraps the value a script evaluated to.
type CLIScriptResult struct {
	Script string `json:"script"`
	Value  any    `json:"value"`
}

func intPtr(n int) *int { return &n }
