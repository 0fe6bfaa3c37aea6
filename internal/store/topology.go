package store

import (
	"database/sql"
	"fmt"
)

// SnapshotByApp returns the snapshot stored for appPath, or nil.
func (s *Store) SnapshotByApp(appPath string) (*Snapshot, error) {
	snap := &Snapshot{}
	var soc sql.NullString
	err := s.db.QueryRow(
		`SELECT id, run_id, app_path, app_name, board, soc, hash, indexed_at
		 FROM snapshots WHERE app_path = ?`, appPath,
	).Scan(&snap.ID, &snap.RunID, &snap.AppPath, &snap.AppName, &snap.Board, &soc, &snap.Hash, &snap.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot by app: %w", err)
	}
	snap.Soc = fromNull(soc)
	return snap, nil
}

// Snapshots returns every stored snapshot ordered by app path.
func (s *Store) Snapshots() ([]*Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, app_path, app_name, board, soc, hash, indexed_at
		 FROM snapshots ORDER BY app_path`,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var soc sql.NullString
		if err := rows.Scan(&snap.ID, &snap.RunID, &snap.AppPath, &snap.AppName, &snap.Board, &soc, &snap.Hash, &snap.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Soc = fromNull(soc)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteApp removes the snapshot of appPath and everything hanging off it.
func (s *Store) DeleteApp(appPath string) error {
	if _, err := s.db.Exec("DELETE FROM snapshots WHERE app_path = ?", appPath); err != nil {
		return fmt.Errorf("delete app: %w", err)
	}
	return nil
}

// ConnectionsByNet returns every connection to net in the snapshot, in board
// and declaration order.
func (s *Store) ConnectionsByNet(snapshotID int64, net string) ([]*ConnectionRow, error) {
	rows, err := s.db.Query(
		`SELECT d.name, d.status, c.net, c.function, c.peripheral, c.signal
		 FROM connections c
		 JOIN devices d ON d.id = c.device_id
		 WHERE d.snapshot_id = ? AND c.net = ?
		 ORDER BY d.ordinal, c.ordinal`,
		snapshotID, net,
	)
	if err != nil {
		return nil, fmt.Errorf("connections by net: %w", err)
	}
	defer rows.Close()

	var conns []*ConnectionRow
	for rows.Next() {
		c := &ConnectionRow{}
		var signal sql.NullString
		if err := rows.Scan(&c.Device, &c.Status, &c.Net, &c.Function, &c.Peripheral, &signal); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		c.Signal = fromNull(signal)
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// SharedNets returns the nets of the snapshot that more than one device
// connects to, mapped to those devices in board order.
func (s *Store) SharedNets(snapshotID int64) (map[string][]string, error) {
	rows, err := s.db.Query(
		`SELECT c.net, d.name
		 FROM connections c
		 JOIN devices d ON d.id = c.device_id
		 WHERE d.snapshot_id = ? AND c.net IN (
		   SELECT c2.net FROM connections c2
		   JOIN devices d2 ON d2.id = c2.device_id
		   WHERE d2.snapshot_id = ?
		   GROUP BY c2.net HAVING COUNT(DISTINCT d2.id) > 1
		 )
		 GROUP BY c.net, d.id
		 ORDER BY c.net, d.ordinal`,
		snapshotID, snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("shared nets: %w", err)
	}
	defer rows.Close()

	shared := make(map[string][]string)
	for rows.Next() {
		var net, device string
		if err := rows.Scan(&net, &device); err != nil {
			return nil, fmt.Errorf("scan shared net: %w", err)
		}
		shared[net] = append(shared[net], device)
	}
	return shared, rows.Err()
}

// NetsBySnapshot returns the combined net space of a snapshot with each
// net's pinmux in declaration order.
func (s *Store) NetsBySnapshot(snapshotID int64) ([]*NetRow, error) {
	rows, err := s.db.Query(
		"SELECT id, net, owner, pin FROM nets WHERE snapshot_id = ? ORDER BY ordinal", snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("nets by snapshot: %w", err)
	}

	var ids []int64
	var nets []*NetRow
	for rows.Next() {
		var id int64
		n := &NetRow{}
		var owner sql.NullString
		if err := rows.Scan(&id, &n.Net, &owner, &n.Pin); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan net: %w", err)
		}
		n.Owner = fromNull(owner)
		ids = append(ids, id)
		nets = append(nets, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nets by snapshot: %w", err)
	}

	for i, id := range ids {
		fns, err := s.pinmuxByNet(id)
		if err != nil {
			return nil, err
		}
		nets[i].Pinmux = fns
	}
	return nets, nil
}

func (s *Store) pinmuxByNet(netID int64) ([]string, error) {
	rows, err := s.db.Query("SELECT function FROM pinmux WHERE net_id = ? ORDER BY ordinal", netID)
	if err != nil {
		return nil, fmt.Errorf("pinmux by net: %w", err)
	}
	defer rows.Close()

	var fns []string
	for rows.Next() {
		var fn string
		if err := rows.Scan(&fn); err != nil {
			return nil, fmt.Errorf("scan pinmux: %w", err)
		}
		fns = append(fns, fn)
	}
	return fns, rows.Err()
}
