package session

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rahulYUV/metromap.io/game/engine"
	"github.com/rahulYUV/metromap.io/game/service"
)

// SQLitePersistence implements SessionPersistence on a single SQLite file.
// SQLite allows one writer at a time, so the pool is pinned to a single
// connection and writes are serialized through writeMu.
type SQLitePersistence struct {
	db      *sql.DB
	tunings service.TuningManager
	writeMu sync.Mutex
}

// NewSQLitePersistence opens (and if needed creates) the database at dbPath
func NewSQLitePersistence(dbPath string, tunings service.TuningManager) (*SQLitePersistence, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id               TEXT PRIMARY KEY,
		tuning_name      TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		last_accessed_at TEXT NOT NULL,
		state            TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &SQLitePersistence{db: db, tunings: tunings}, nil
}

// Save upserts a session row
func (sp *SQLitePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	stateText, err := engine.SerializeState(session.Controller.GetState())
	if err != nil {
		return fmt.Errorf("failed to serialize game state: %w", err)
	}

	sp.writeMu.Lock()
	defer sp.writeMu.Unlock()

	_, err = sp.db.Exec(`
		INSERT INTO sessions (id, tuning_name, created_at, last_accessed_at, state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tuning_name      = excluded.tuning_name,
			last_accessed_at = excluded.last_accessed_at,
			state            = excluded.state`,
		session.ID,
		session.TuningName,
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
		session.LastAccessedAt.UTC().Format(time.RFC3339Nano),
		stateText,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Load retrieves a session row and rebuilds the live session from it
func (sp *SQLitePersistence) Load(id string) (*service.Session, error) {
	var data PersistedSessionData
	var createdAt, lastAccessedAt, stateText string

	err := sp.db.QueryRow(`
		SELECT id, tuning_name, created_at, last_accessed_at, state
		FROM sessions WHERE id = ?`, id).
		Scan(&data.ID, &data.TuningName, &createdAt, &lastAccessedAt, &stateText)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}

	data.CreatedAt = parseStoredTime(createdAt)
	data.LastAccessedAt = parseStoredTime(lastAccessedAt)
	data.State = []byte(stateText)

	return restoreSession(&data, sp.tunings)
}

// Delete removes a session row
func (sp *SQLitePersistence) Delete(id string) error {
	sp.writeMu.Lock()
	defer sp.writeMu.Unlock()

	res, err := sp.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := sp.db.Query(`SELECT id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks whether a session row is present
func (sp *SQLitePersistence) Exists(id string) bool {
	var one int
	err := sp.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	return err == nil
}

// Close releases the underlying database handle
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
