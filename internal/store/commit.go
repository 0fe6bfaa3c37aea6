package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/schematic/internal/model"
)

// CommitSnapshot replaces the snapshot stored for in.AppPath within a single
// transaction and returns the new snapshot ID.
//
// Insert order respects FK dependencies:
//  1. Snapshot (depends on run_id)
//  2. Devices, then their connections
//  3. Nets of the SoC followed by device nets, then their pinmux
//  4. Exposed connector nets
func (s *Store) CommitSnapshot(runID string, in *SnapshotInput) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("commit snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM snapshots WHERE app_path = ?", in.AppPath); err != nil {
		return 0, fmt.Errorf("commit snapshot: delete previous: %w", err)
	}

	var socName any
	if in.Soc != nil {
		socName = in.Soc.Name
	}
	res, err := tx.Exec(
		`INSERT INTO snapshots (run_id, app_path, app_name, board, soc, hash, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, in.AppPath, in.App.Name, in.Board.Name, socName, in.Hash, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("commit snapshot: insert snapshot: %w", err)
	}
	snapID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	// 2. Devices and connections
	for i, d := range in.Board.DevicesWithStatus(in.App) {
		deviceID, err := insertTx(tx,
			"INSERT INTO devices (snapshot_id, name, ordinal, status) VALUES (?, ?, ?, ?)",
			snapID, d.Device.Name, i, d.Status.String(),
		)
		if err != nil {
			return 0, fmt.Errorf("commit snapshot: device %q: %w", d.Device.Name, err)
		}
		for j, conn := range d.Device.Connects {
			signal, _ := conn.Function.SignalName()
			if _, err := insertTx(tx,
				`INSERT INTO connections (device_id, net, function, peripheral, signal, ordinal)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				deviceID, conn.Net.String(), conn.Function.String(), conn.Function.Peripheral(), nullIfEmpty(signal), j,
			); err != nil {
				return 0, fmt.Errorf("commit snapshot: connection %s: %w", conn, err)
			}
		}
	}

	// 3. Nets and pinmux
	for i, np := range model.BoardNets(in.Soc, in.Board) {
		netID, err := insertTx(tx,
			"INSERT INTO nets (snapshot_id, net, owner, pin, ordinal) VALUES (?, ?, ?, ?, ?)",
			snapID, np.Net.String(), nullIfEmpty(np.Net.Device), np.Net.Pin, i,
		)
		if err != nil {
			return 0, fmt.Errorf("commit snapshot: net %s: %w", np.Net, err)
		}
		for j, fn := range np.Pinmux {
			signal, _ := fn.SignalName()
			if _, err := insertTx(tx,
				"INSERT INTO pinmux (net_id, function, peripheral, signal, ordinal) VALUES (?, ?, ?, ?, ?)",
				netID, fn.String(), fn.Peripheral(), nullIfEmpty(signal), j,
			); err != nil {
				return 0, fmt.Errorf("commit snapshot: pinmux %s: %w", fn, err)
			}
		}
	}

	// 4. Exposes
	ordinal := 0
	for _, expose := range in.Board.Exposes {
		for _, net := range expose.Pins {
			if _, err := insertTx(tx,
				"INSERT INTO exposes (snapshot_id, connector, net, ordinal) VALUES (?, ?, ?, ?)",
				snapID, expose.Name, net.String(), ordinal,
			); err != nil {
				return 0, fmt.Errorf("commit snapshot: expose %s: %w", expose.Name, err)
			}
			ordinal++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return snapID, nil
}

func insertTx(tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
