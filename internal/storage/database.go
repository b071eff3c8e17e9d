package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrQuotaExceeded is returned by SetItem when the write would push the total
// stored size past the configured quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// DB is a sqlite-backed key/value medium.
type DB struct {
	conn  *sql.DB
	quota int64
}

// Open creates a new database connection and ensures the schema is up to date.
// quota is the maximum total size in bytes of all stored values; 0 disables it.
func Open(dsn string, quota int64) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, quota: quota}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetItem returns the value stored under key. ok is false if no entry exists.
func (db *DB) GetItem(key string) (value string, ok bool, err error) {
	row := db.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get item %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (db *DB) SetItem(key, value string) error {
	if db.quota > 0 {
		var others int64
		row := db.conn.QueryRow(`
			SELECT COALESCE(SUM(LENGTH(CAST(value AS BLOB))), 0)
			FROM kv WHERE key != ?
		`, key)
		if err := row.Scan(&others); err != nil {
			return fmt.Errorf("failed to measure usage for %s: %w", key, err)
		}
		if others+int64(len(value)) > db.quota {
			return fmt.Errorf("set item %s (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}

	_, err := db.conn.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set item %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the entry for key. Removing a missing key is not an error.
func (db *DB) RemoveItem(key string) error {
	if _, err := db.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove item %s: %w", key, err)
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (db *DB) Keys() ([]string, error) {
	rows, err := db.conn.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
