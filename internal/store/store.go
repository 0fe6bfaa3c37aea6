package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite export of indexed board topologies. Every indexed app
// gets its own snapshot because device status depends on the app.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              TEXT PRIMARY KEY,
  started_at      TIMESTAMP NOT NULL,
  finished_at     TIMESTAMP,
  indexed         INTEGER DEFAULT 0,
  skipped         INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS manifests (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  hash            TEXT NOT NULL,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snapshots (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id),
  app_path        TEXT NOT NULL UNIQUE,
  app_name        TEXT NOT NULL,
  board           TEXT NOT NULL,
  soc             TEXT,
  hash            TEXT NOT NULL,
  indexed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS devices (
  id              INTEGER PRIMARY KEY,
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  status          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nets (
  id              INTEGER PRIMARY KEY,
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  net             TEXT NOT NULL,
  owner           TEXT,
  pin             TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pinmux (
  id              INTEGER PRIMARY KEY,
  net_id          INTEGER NOT NULL REFERENCES nets(id) ON DELETE CASCADE,
  function        TEXT NOT NULL,
  peripheral      TEXT NOT NULL,
  signal          TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS connections (
  id              INTEGER PRIMARY KEY,
  device_id       INTEGER NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
  net             TEXT NOT NULL,
  function        TEXT NOT NULL,
  peripheral      TEXT NOT NULL,
  signal          TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS exposes (
  id              INTEGER PRIMARY KEY,
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  connector       TEXT NOT NULL,
  net             TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id);
CREATE INDEX IF NOT EXISTS idx_devices_snapshot ON devices(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_nets_snapshot ON nets(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_nets_net ON nets(net);
CREATE INDEX IF NOT EXISTS idx_pinmux_net ON pinmux(net_id);
CREATE INDEX IF NOT EXISTS idx_pinmux_peripheral ON pinmux(peripheral);
CREATE INDEX IF NOT EXISTS idx_connections_device ON connections(device_id);
CREATE INDEX IF NOT EXISTS idx_connections_net ON connections(net);
CREATE INDEX IF NOT EXISTS idx_exposes_snapshot ON exposes(snapshot_id);
`
