package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentloop/core"
)

// SQLiteStore is a durable SessionStore backed by SQLite. State is stored as
// a JSON document per session; events are stored append-only as JSON rows in
// insertion order, so the event log survives process restarts.
//
// The driver is pure Go (modernc.org/sqlite), so no cgo toolchain is needed.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn and ensures the
// schema exists. Use ":memory:" for an ephemeral database in tests.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows a single writer; serializing connections avoids
	// SQLITE_BUSY errors under concurrent appends.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
	id       TEXT PRIMARY KEY,
	state    TEXT NOT NULL DEFAULT '{}',
	metadata TEXT NOT NULL DEFAULT '{}',
	created  INTEGER NOT NULL,
	updated  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, seq);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Create inserts a fresh session, resetting any previous one with the same id.
func (s *SQLiteStore) Create(id string) (*core.Session, error) {
	now := time.Now().UnixNano()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM events WHERE session_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to clear events: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO sessions (id, state, metadata, created, updated) VALUES (?, '{}', '{}', ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = '{}', metadata = '{}', created = excluded.created, updated = excluded.updated`,
		id, now, now,
	); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return core.NewSession(id), nil
}

// Get loads a session snapshot including its full event history. Unknown
// sessions are created lazily, mirroring the in-memory store.
func (s *SQLiteStore) Get(id string) (*core.Session, error) {
	var stateJSON, metadataJSON string
	var created, updated int64

	err := s.db.QueryRow(
		`SELECT state, metadata, created, updated FROM sessions WHERE id = ?`, id,
	).Scan(&stateJSON, &metadataJSON, &created, &updated)

	if err == sql.ErrNoRows {
		return s.Create(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess := core.NewSession(id)
	sess.Created = time.Unix(0, created)
	sess.Updated = time.Unix(0, updated)

	if err := json.Unmarshal([]byte(stateJSON), &sess.State); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &sess.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode session metadata: %w", err)
	}

	rows, err := s.db.Query(`SELECT payload FROM events WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		var ev core.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}

		sess.AddEvent(ev)
	}

	return sess, rows.Err()
}

// AppendEvent persists an event at the tail of the session's log, creating
// the session when it does not exist yet.
func (s *SQLiteStore) AppendEvent(sessionID string, ev core.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	now := time.Now().UnixNano()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO sessions (id, created, updated) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated = excluded.updated`,
		sessionID, now, now,
	); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO events (session_id, payload) VALUES (?, ?)`,
		sessionID, string(payload),
	); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return tx.Commit()
}

// ApplyDelta merges a key/value delta into the session's state document.
func (s *SQLiteStore) ApplyDelta(sessionID string, delta map[string]interface{}) error {
	if len(delta) == 0 {
		return nil
	}

	now := time.Now().UnixNano()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stateJSON string
	err = tx.QueryRow(`SELECT state FROM sessions WHERE id = ?`, sessionID).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		stateJSON = "{}"
		if _, err := tx.Exec(
			`INSERT INTO sessions (id, created, updated) VALUES (?, ?, ?)`,
			sessionID, now, now,
		); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to load session state: %w", err)
	}

	state := map[string]interface{}{}
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return fmt.Errorf("failed to decode session state: %w", err)
	}

	for k, v := range delta {
		state[k] = v
	}

	merged, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE sessions SET state = ?, updated = ? WHERE id = ?`,
		string(merged), now, sessionID,
	); err != nil {
		return fmt.Errorf("failed to store session state: %w", err)
	}

	return tx.Commit()
}

var _ core.SessionStore = (*SQLiteStore)(nil)
