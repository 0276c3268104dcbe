// Package ledger is the typed key-value facade over the four persisted
// tables (network, wallet, user, transaction). It mirrors the indexer
// lesson's sqlite wiring (one schema, parameterized statements) but keys
// every row by (table, id) instead of by block/tx, and treats the well-known
// key "ALL" per table as that table's index object.
package ledger

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Table names, per spec §3/§6.
const (
	NetworkTable     = "networkTable"
	WalletTable      = "walletTable"
	UserTable        = "userTable"
	TransactionTable = "transactionTable"

	// ALLKey is the well-known index key reserved in every table.
	ALLKey = "ALL"
)

// Store is the minimal surface every handler uses: canonical-JSON blobs in,
// canonical-JSON blobs out. No table is assumed to support range scans;
// everything addressable lives in the per-table ALL index instead.
type Store interface {
	Get(table, key string) ([]byte, bool, error)
	Set(table, key string, value []byte) error
	Delete(table, key string) error
}

// SQLiteStore backs Store with a single ledger_kv table, one pure-Go sqlite
// connection, grounded on the indexer lesson's database/sql + modernc.org/sqlite
// wiring.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) the sqlite file at path and ensures
// the ledger_kv schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS ledger_kv (
		table_name TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      BLOB NOT NULL,
		PRIMARY KEY (table_name, key)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Get(table, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM ledger_kv WHERE table_name = ? AND key = ?`, table, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ledger get %s/%s: %w", table, key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(table, key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO ledger_kv(table_name, key, value) VALUES (?, ?, ?)
		ON CONFLICT(table_name, key) DO UPDATE SET value = excluded.value`, table, key, value)
	if err != nil {
		return fmt.Errorf("ledger set %s/%s: %w", table, key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(table, key string) error {
	_, err := s.db.Exec(`DELETE FROM ledger_kv WHERE table_name = ? AND key = ?`, table, key)
	if err != nil {
		return fmt.Errorf("ledger delete %s/%s: %w", table, key, err)
	}
	return nil
}

// MemStore is an in-memory Store double used by package tests, grounded on
// the same (table, key) -> bytes shape as SQLiteStore so tests exercise
// identical call patterns without touching disk.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]map[string][]byte)}
}

func (m *MemStore) Get(table, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.data[table]
	if !ok {
		return nil, false, nil
	}
	v, ok := t[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemStore) Set(table, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data[table]
	if !ok {
		t = make(map[string][]byte)
		m.data[table] = t
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	t[key] = cp
	return nil
}

func (m *MemStore) Delete(table, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.data[table]; ok {
		delete(t, key)
	}
	return nil
}
