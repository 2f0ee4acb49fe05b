package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is stored in PRAGMA user_version.
// Version 1 added skin_purchases.
const currentSchemaVersion = 1

// readPoolSize is the number of read-only connections.
const readPoolSize = 4

// Store is the SQLite-backed ledger state.
//
// db is the single writer connection; every WithTx runs on it. rdb is a
// read-only pool for the query methods, so an open read cursor never holds
// the writer's connection. For in-memory databases rdb is db.
type Store struct {
	db  *sql.DB
	rdb *sql.DB
}

// Open creates or opens the database at path, applies pragmas and
// migrations, and opens the read pool. Safe to call on an existing file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: ping: %w", err)
	}

	// One writer. ":memory:" databases are also per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: schema: %w", err)
	}

	if isMemory(path) {
		return &Store{db: db, rdb: db}, nil
	}

	rdb, err := openReadPool(path)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, rdb: rdb}, nil
}

// openReadPool opens path read-only. WAL lets these connections read the
// last committed state while the writer holds its lock.
func openReadPool(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	rdb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open read pool: %w", err)
	}
	if err := rdb.Ping(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("open read pool: ping: %w", err)
	}
	rdb.SetMaxOpenConns(readPoolSize)
	rdb.SetMaxIdleConns(readPoolSize)
	return rdb, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Close closes the read pool and the writer.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	var rerr error
	if s.rdb != s.db {
		rerr = s.rdb.Close()
	}
	return errors.Join(rerr, s.db.Close())
}

// applyPragmas configures the writer. journal_mode is persistent in the
// file, so the read pool inherits WAL.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	return nil
}

// applySchema creates missing tables and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// runMigrations upgrades from user_version to currentSchemaVersion.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the skin_purchases table. Databases created before the
// purchase mode existed only have the free-claim skins table.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS skin_purchases (
			tx_id   TEXT    PRIMARY KEY,
			address TEXT    NOT NULL,
			skin_id INTEGER NOT NULL,
			price   INTEGER NOT NULL,
			payment INTEGER NOT NULL,
			seq     INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks a pragma on db.
func verifyPragma(db *sql.DB, name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("pragma %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
