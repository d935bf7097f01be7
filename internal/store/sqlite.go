package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/amaydixit11/tabsync/internal/ops"
)

// SQLiteStore is the operation log store backed by a single SQLite file,
// using database/sql with the mattn/go-sqlite3 driver the way the teacher's
// entry store does: one *sql.DB, WAL-friendly pragmas, transactional
// writes. A small statement cache keeps hot queries (store, get_since,
// get_max_clock) from being re-prepared on every call.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger

	stmtMu sync.Mutex
	stmts  map[string]*sql.Stmt
}

// Open creates or attaches to a SQLite database at path and ensures the
// schema exists.
func Open(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers

	s := &SQLiteStore{db: db, logger: logger, stmts: make(map[string]*sql.Stmt)}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS crdt_operations (
	id             TEXT PRIMARY KEY,
	clock          INTEGER NOT NULL,
	device_id      TEXT NOT NULL,
	operation_type TEXT NOT NULL,
	target_id      TEXT NOT NULL,
	payload        TEXT NOT NULL,
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_operations_clock ON crdt_operations(clock);
CREATE INDEX IF NOT EXISTS idx_operations_device_clock ON crdt_operations(device_id, clock);
CREATE INDEX IF NOT EXISTS idx_operations_target ON crdt_operations(target_id);
CREATE INDEX IF NOT EXISTS idx_operations_type_target ON crdt_operations(operation_type, target_id);

CREATE TABLE IF NOT EXISTS tabs (
	id         TEXT PRIMARY KEY,
	window_id  TEXT NOT NULL,
	url        TEXT NOT NULL,
	title      TEXT NOT NULL,
	active     INTEGER NOT NULL,
	tab_index  INTEGER NOT NULL,
	last_clock INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS windows (
	id         TEXT PRIMARY KEY,
	tracked    INTEGER NOT NULL,
	last_clock INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS crdt_state (
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	data        TEXT NOT NULL,
	last_clock  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (entity_type, entity_id)
);
`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("store: creating schema: %w", err)
	}
	return nil
}

// prepared returns a cached *sql.Stmt for query, preparing and caching it on
// first use. Callers must not close the returned statement.
func (s *SQLiteStore) prepared(query string) (*sql.Stmt, error) {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("store: preparing statement: %w", err)
	}
	s.stmts[query] = stmt
	return stmt, nil
}

const insertOperationSQL = `
INSERT INTO crdt_operations (id, clock, device_id, operation_type, target_id, payload, created_at)
VALUES (?, ?, ?, ?, ?, ?, strftime('%s','now'))
ON CONFLICT(id) DO NOTHING
`

// Store appends op to the log and best-effort patches the tabs/windows
// projection tables in the same transaction. The projection intentionally
// duplicates internal/crdtdoc's apply semantics in SQL form; nothing in this
// module reads it back (GET /health?device_id= queries crdt_operations), and
// the authoritative document is always rebuilt from crdt_operations itself.
func (s *SQLiteStore) Store(op ops.Operation, clock uint64, deviceID string) error {
	payload, err := ops.Encode(op)
	if err != nil {
		return fmt.Errorf("store: encoding operation: %w", err)
	}
	id := ops.NewStoredID(clock, deviceID, op.TargetID())

	insert, err := s.prepared(insertOperationSQL)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Stmt(insert).Exec(id, clock, deviceID, string(op.OperationType()), op.TargetID(), string(payload)); err != nil {
		return fmt.Errorf("store: inserting operation: %w", err)
	}

	if err := s.project(tx, op, clock); err != nil {
		s.logger.Warn().Err(err).Str("target_id", op.TargetID()).Msg("store: projection update failed, log row still committed")
	}

	return tx.Commit()
}

// project patches the tabs/windows convenience tables and the crdt_state
// snapshot, mirroring internal/crdtdoc.Document.Apply's semantics.
func (s *SQLiteStore) project(tx *sql.Tx, op ops.Operation, clock uint64) error {
	switch v := op.(type) {
	case ops.UpsertTab:
		if _, err := tx.Exec(`
			INSERT INTO tabs (id, window_id, url, title, active, tab_index, last_clock)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				window_id=excluded.window_id, url=excluded.url, title=excluded.title,
				active=excluded.active, tab_index=excluded.tab_index, last_clock=excluded.last_clock
		`, v.TabID, v.WindowID, v.URL, v.Title, boolToInt(v.Active), v.Index, clock); err != nil {
			return err
		}
		return s.snapshotTab(tx, v.TabID, clock)

	case ops.CloseTab:
		if _, err := tx.Exec(`DELETE FROM tabs WHERE id = ?`, v.TabID); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM crdt_state WHERE entity_type = 'tab' AND entity_id = ?`, v.TabID)
		return err

	case ops.SetActive:
		res, err := tx.Exec(`UPDATE tabs SET active = ?, last_clock = ? WHERE id = ?`, boolToInt(v.Active), clock, v.TabID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil // skip-on-miss, matches crdtdoc
		}
		return s.snapshotTab(tx, v.TabID, clock)

	case ops.MoveTab:
		res, err := tx.Exec(`UPDATE tabs SET window_id = ?, tab_index = ?, last_clock = ? WHERE id = ?`, v.WindowID, v.Index, clock, v.TabID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.snapshotTab(tx, v.TabID, clock)

	case ops.ChangeUrl:
		var err error
		var res sql.Result
		if v.Title != nil {
			res, err = tx.Exec(`UPDATE tabs SET url = ?, title = ?, last_clock = ? WHERE id = ?`, v.URL, *v.Title, clock, v.TabID)
		} else {
			res, err = tx.Exec(`UPDATE tabs SET url = ?, last_clock = ? WHERE id = ?`, v.URL, clock, v.TabID)
		}
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.snapshotTab(tx, v.TabID, clock)

	case ops.TrackWindow:
		if _, err := tx.Exec(`
			INSERT INTO windows (id, tracked, last_clock) VALUES (?, 1, ?)
			ON CONFLICT(id) DO UPDATE SET tracked=1, last_clock=excluded.last_clock
		`, v.WindowID, clock); err != nil {
			return err
		}
		return s.snapshotWindow(tx, v.WindowID, clock)

	case ops.UntrackWindow:
		if _, err := tx.Exec(`
			INSERT INTO windows (id, tracked, last_clock) VALUES (?, 0, ?)
			ON CONFLICT(id) DO UPDATE SET tracked=0, last_clock=excluded.last_clock
		`, v.WindowID, clock); err != nil {
			return err
		}
		return s.snapshotWindow(tx, v.WindowID, clock)

	case ops.SetWindowFocus:
		if _, err := tx.Exec(`
			INSERT INTO windows (id, tracked, last_clock) VALUES (?, 0, ?)
			ON CONFLICT(id) DO UPDATE SET last_clock=excluded.last_clock
		`, v.WindowID, clock); err != nil {
			return err
		}
		return s.snapshotWindow(tx, v.WindowID, clock)
	}
	return nil
}

func (s *SQLiteStore) snapshotTab(tx *sql.Tx, tabID string, clock uint64) error {
	row := tx.QueryRow(`SELECT id, window_id, url, title, active, tab_index, last_clock FROM tabs WHERE id = ?`, tabID)
	var t struct {
		ID, WindowID, URL, Title string
		Active                   int
		Index                    int
		LastClock                uint64
	}
	if err := row.Scan(&t.ID, &t.WindowID, &t.URL, &t.Title, &t.Active, &t.Index, &t.LastClock); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO crdt_state (entity_type, entity_id, data, last_clock, updated_at)
		VALUES ('tab', ?, ?, ?, strftime('%s','now'))
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET data=excluded.data, last_clock=excluded.last_clock, updated_at=excluded.updated_at
	`, tabID, string(data), clock)
	return err
}

func (s *SQLiteStore) snapshotWindow(tx *sql.Tx, windowID string, clock uint64) error {
	row := tx.QueryRow(`SELECT id, tracked, last_clock FROM windows WHERE id = ?`, windowID)
	var w struct {
		ID        string
		Tracked   int
		LastClock uint64
	}
	if err := row.Scan(&w.ID, &w.Tracked, &w.LastClock); err != nil {
		return err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO crdt_state (entity_type, entity_id, data, last_clock, updated_at)
		VALUES ('window', ?, ?, ?, strftime('%s','now'))
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET data=excluded.data, last_clock=excluded.last_clock, updated_at=excluded.updated_at
	`, windowID, string(data), clock)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteStore) scanRows(rows *sql.Rows) ([]ops.Stored, error) {
	defer rows.Close()
	var out []ops.Stored
	for rows.Next() {
		var (
			id, deviceID, payload string
			clock                 uint64
			createdAt             int64
		)
		if err := rows.Scan(&id, &clock, &deviceID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scanning operation row: %w", err)
		}
		op, err := ops.Decode([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("store: decoding stored payload %s: %w", id, err)
		}
		out = append(out, ops.Stored{ID: id, Clock: clock, DeviceID: deviceID, Operation: op, CreatedAt: createdAt})
	}
	return out, rows.Err()
}

const getSinceSQL = `
SELECT id, clock, device_id, payload, created_at FROM crdt_operations
WHERE device_id != ? AND clock > ?
ORDER BY clock ASC
`

func (s *SQLiteStore) GetSince(deviceID string, sinceClock uint64) ([]ops.Stored, error) {
	stmt, err := s.prepared(getSinceSQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(deviceID, sinceClock)
	if err != nil {
		return nil, fmt.Errorf("store: querying get_since: %w", err)
	}
	return s.scanRows(rows)
}

const getAllSQL = `
SELECT id, clock, device_id, payload, created_at FROM crdt_operations
WHERE device_id != ?
ORDER BY clock ASC
`

// GetAll is deliberately unpaginated: the protocol requires a device's
// first sync (no since_clock) to receive the full log, not a truncated
// window of it.
func (s *SQLiteStore) GetAll(deviceID string) ([]ops.Stored, error) {
	stmt, err := s.prepared(getAllSQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(deviceID)
	if err != nil {
		return nil, fmt.Errorf("store: querying get_all: %w", err)
	}
	return s.scanRows(rows)
}

const getRecentSQL = `
SELECT id, clock, device_id, payload, created_at FROM crdt_operations
WHERE device_id != ?
ORDER BY clock DESC LIMIT ?
`

// GetRecent returns at most limit of the most recent operations not
// authored by deviceID, oldest-first, matching spec's get_recent(device_id,
// limit) contract.
func (s *SQLiteStore) GetRecent(deviceID string, limit int) ([]ops.Stored, error) {
	if limit <= 0 {
		limit = 100
	}
	stmt, err := s.prepared(getRecentSQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: querying get_recent: %w", err)
	}
	out, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}
	// reverse into ascending clock order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

const getMaxClockSQL = `SELECT COALESCE(MAX(clock), 0) FROM crdt_operations`

func (s *SQLiteStore) GetMaxClock() (uint64, error) {
	stmt, err := s.prepared(getMaxClockSQL)
	if err != nil {
		return 0, err
	}
	var max uint64
	if err := stmt.QueryRow().Scan(&max); err != nil {
		return 0, fmt.Errorf("store: querying get_max_clock: %w", err)
	}
	return max, nil
}

const getDeviceStateSQL = `
SELECT COUNT(*), COALESCE(MAX(clock), 0), COALESCE(MAX(created_at), 0)
FROM crdt_operations WHERE device_id = ?
`

// GetDeviceState answers the diagnostic GET /health?device_id= enrichment:
// how far along deviceID is and when it last wrote.
func (s *SQLiteStore) GetDeviceState(deviceID string) (DeviceState, error) {
	stmt, err := s.prepared(getDeviceStateSQL)
	if err != nil {
		return DeviceState{}, err
	}

	var state DeviceState
	state.DeviceID = deviceID
	if err := stmt.QueryRow(deviceID).Scan(&state.OperationCount, &state.LastClock, &state.LastSyncAt); err != nil {
		return DeviceState{}, fmt.Errorf("store: querying device state: %w", err)
	}
	if state.OperationCount == 0 {
		return DeviceState{}, ErrNotFound
	}
	return state, nil
}

func (s *SQLiteStore) Close() error {
	s.stmtMu.Lock()
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmtMu.Unlock()
	return s.db.Close()
}
