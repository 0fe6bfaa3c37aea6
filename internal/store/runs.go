package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// --- Run operations ---

// BeginRun records the start of an index run and returns it with a fresh ID.
func (s *Store) BeginRun() (*Run, error) {
	run := &Run{ID: uuid.New().String(), StartedAt: time.Now().UTC()}
	if _, err := s.db.Exec(
		"INSERT INTO runs (id, started_at) VALUES (?, ?)", run.ID, run.StartedAt,
	); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// FinishRun stores the counters of a completed run.
func (s *Store) FinishRun(run *Run) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if _, err := s.db.Exec(
		"UPDATE runs SET finished_at = ?, indexed = ?, skipped = ? WHERE id = ?",
		now, run.Indexed, run.Skipped, run.ID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs returns all runs, most recent first.
func (s *Store) Runs() ([]*Run, error) {
	rows, err := s.db.Query(
		"SELECT id, started_at, finished_at, indexed, skipped FROM runs ORDER BY started_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Indexed, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Manifest operations ---

// ManifestByPath returns the recorded manifest, or nil if it was never indexed.
func (s *Store) ManifestByPath(path string) (*Manifest, error) {
	m := &Manifest{}
	err := s.db.QueryRow(
		"SELECT id, path, kind, hash, last_indexed FROM manifests WHERE path = ?", path,
	).Scan(&m.ID, &m.Path, &m.Kind, &m.Hash, &m.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest by path: %w", err)
	}
	return m, nil
}

// UpsertManifest records the hash of a manifest file.
func (s *Store) UpsertManifest(m *Manifest) error {
	if m.LastIndexed.IsZero() {
		m.LastIndexed = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO manifests (path, kind, hash, last_indexed) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET kind = excluded.kind, hash = excluded.hash,
		   last_indexed = excluded.last_indexed`,
		m.Path, m.Kind, m.Hash, m.LastIndexed,
	)
	if err != nil {
		return fmt.Errorf("upsert manifest: %w", err)
	}
	return nil
}
