// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package sqlite provides a single-file implementation of the Store
// interface on SQLite.  It is the fallback backend for deployments
// without a reachable PostgreSQL server: one worker and one master on
// the same host share the database file.
//
// The connection pool is pinned to one connection, so every statement
// is serialized.  That is slower than PostgreSQL but removes the
// usual SQLITE_BUSY handling.
package sqlite

import (
	"database/sql"
	"net/url"

	"github.com/benbjohnson/clock"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/aqea/go-extractor/coordinate"
)

type liteStore struct {
	db  *sql.DB
	clk clock.Clock
}

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "001_initial",
			Up: []string{`
CREATE TABLE aqea_entries(
	aa INTEGER NOT NULL,
	qq INTEGER NOT NULL,
	ee INTEGER NOT NULL,
	a2 INTEGER NOT NULL,
	address TEXT NOT NULL UNIQUE,
	label TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	lang_ui TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	meta TEXT NOT NULL DEFAULT '{}',
	relations TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY(aa, qq, ee, a2)
)`, `
CREATE TABLE work_units(
	work_id TEXT PRIMARY KEY,
	language TEXT NOT NULL,
	source TEXT NOT NULL,
	range_start TEXT NOT NULL,
	range_end TEXT NOT NULL,
	estimated_entries INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	assigned_worker TEXT NOT NULL DEFAULT '',
	assigned_at TIMESTAMP,
	started_at TIMESTAMP,
	completed_at TIMESTAMP,
	entries_processed INTEGER NOT NULL DEFAULT 0,
	current_rate REAL NOT NULL DEFAULT 0,
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 3,
	last_error TEXT NOT NULL DEFAULT '',
	errors TEXT NOT NULL DEFAULT '[]'
)`, `
CREATE INDEX work_units_status ON work_units(status, work_id)`, `
CREATE TABLE workers(
	worker_id TEXT PRIMARY KEY,
	ip TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'idle',
	current_work_id TEXT NOT NULL DEFAULT '',
	last_heartbeat TIMESTAMP NOT NULL,
	total_processed INTEGER NOT NULL DEFAULT 0,
	average_rate REAL NOT NULL DEFAULT 0,
	registered_at TIMESTAMP NOT NULL
)`, `
CREATE TABLE address_allocations(
	aa INTEGER NOT NULL,
	qq INTEGER NOT NULL,
	ee INTEGER NOT NULL,
	lemma_key TEXT NOT NULL,
	a2 INTEGER NOT NULL,
	PRIMARY KEY(aa, qq, ee, lemma_key),
	UNIQUE(aa, qq, ee, a2)
)`},
			Down: []string{
				`DROP TABLE address_allocations`,
				`DROP TABLE workers`,
				`DROP TABLE work_units`,
				`DROP TABLE aqea_entries`,
			},
		},
	},
}

// New creates a new Store backed by the SQLite database at path,
// creating the file and its schema if needed.
func New(path string) (coordinate.Store, error) {
	return NewWithClock(path, clock.New())
}

// NewWithClock creates a new Store with an explicit time source, for
// tests.
func NewWithClock(path string, clk clock.Clock) (coordinate.Store, error) {
	dsn := "file:" + url.PathEscape(path) + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err = migrate.Exec(db, "sqlite3", migrationSource, migrate.Up); err != nil {
		db.Close()
		return nil, err
	}
	return &liteStore{db: db, clk: clk}, nil
}

// withTx runs f in a transaction, committing on success and rolling
// back on error.
func (s *liteStore) withTx(f func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err = f(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *liteStore) Ping() error {
	return s.db.Ping()
}

func (s *liteStore) Close() error {
	return s.db.Close()
}
