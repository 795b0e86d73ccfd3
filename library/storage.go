package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"
)

// codec serializes store snapshots and API payloads.
var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot slot names, one per owning store.
const (
	slotBooks    = "books"
	slotMembers  = "members"
	slotLoans    = "loans"
	slotPolicy   = "policy"
	slotSession  = "session"
	slotLockouts = "lockouts"
)

// Storage is the durable key-value surface every store snapshots into. Each
// store serializes its full owned collection to a named slot on every
// mutating call and reads it back once at startup.
type Storage interface {
	Load(key string) (value string, ok bool, err error)
	Save(key, value string) error
	Close() error
}

// SQLiteStorage keeps snapshots in a single-table SQLite database.
type SQLiteStorage struct {
	db       *sql.DB
	saveStmt *sql.Stmt
}

// NewSQLiteStorage opens (or creates) the database at dbPath and prepares the
// snapshot table.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (key TEXT PRIMARY KEY, value TEXT NOT NULL);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}

	stmt, err := db.Prepare(`INSERT INTO snapshots(key,value) VALUES(?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare save: %w", err)
	}

	return &SQLiteStorage{db: db, saveStmt: stmt}, nil
}

func (s *SQLiteStorage) Load(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM snapshots WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) Save(key, value string) error {
	if _, err := s.saveStmt.Exec(key, value); err != nil {
		return fmt.Errorf("save snapshot %q: %w", key, err)
	}
	return nil
}

// Close releases the prepared statement and closes the DB.
func (s *SQLiteStorage) Close() error {
	if s.saveStmt != nil {
		s.saveStmt.Close()
	}
	return s.db.Close()
}

// MemoryStorage is a volatile Storage used by tests and throwaway runs.
type MemoryStorage struct {
	slots map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{slots: make(map[string]string)}
}

func (m *MemoryStorage) Load(key string) (string, bool, error) {
	value, ok := m.slots[key]
	return value, ok, nil
}

func (m *MemoryStorage) Save(key, value string) error {
	m.slots[key] = value
	return nil
}

func (m *MemoryStorage) Close() error { return nil }

// restoreSlot loads a snapshot from a slot. A missing slot yields the zero
// value; malformed contents are logged and discarded rather than surfaced, so
// a corrupt snapshot degrades to an empty collection. Only storage I/O errors
// propagate.
func restoreSlot[T any](storage Storage, logger *log.Logger, slot string) (T, error) {
	var zero T
	raw, ok, err := storage.Load(slot)
	if err != nil || !ok {
		return zero, err
	}
	var dest T
	if err := codec.UnmarshalFromString(raw, &dest); err != nil {
		logger.Error("discarding corrupt snapshot", "slot", slot, "err", err)
		return zero, nil
	}
	return dest, nil
}

// persistSlot writes the full collection snapshot for a slot.
func persistSlot(storage Storage, slot string, src any) error {
	raw, err := codec.MarshalToString(src)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", slot, err)
	}
	return storage.Save(slot, raw)
}
