// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	migrate "github.com/rubenv/sql-migrate"
)

// This file maintains the database migration code.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.  This runs "outside" the normal store flow, either at initial
// startup or from an external tool.

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "001_initial",
			Up: []string{`
CREATE TABLE aqea_entries(
	aa SMALLINT NOT NULL,
	qq SMALLINT NOT NULL,
	ee SMALLINT NOT NULL,
	a2 SMALLINT NOT NULL,
	address TEXT NOT NULL UNIQUE,
	label TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	lang_ui TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
	meta JSONB NOT NULL DEFAULT '{}',
	relations JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY(aa, qq, ee, a2)
)`, `
CREATE INDEX aqea_entries_label ON aqea_entries(label)`, `
CREATE TABLE work_units(
	work_id TEXT PRIMARY KEY,
	language TEXT NOT NULL,
	source TEXT NOT NULL,
	range_start TEXT NOT NULL,
	range_end TEXT NOT NULL,
	estimated_entries INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	assigned_worker TEXT NOT NULL DEFAULT '',
	assigned_at TIMESTAMP WITH TIME ZONE,
	started_at TIMESTAMP WITH TIME ZONE,
	completed_at TIMESTAMP WITH TIME ZONE,
	entries_processed INTEGER NOT NULL DEFAULT 0,
	current_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 3,
	last_error TEXT NOT NULL DEFAULT '',
	errors JSONB NOT NULL DEFAULT '[]'
)`, `
CREATE INDEX work_units_status ON work_units(status, work_id)`, `
CREATE TABLE workers(
	worker_id TEXT PRIMARY KEY,
	ip TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'idle',
	current_work_id TEXT NOT NULL DEFAULT '',
	last_heartbeat TIMESTAMP WITH TIME ZONE NOT NULL,
	total_processed INTEGER NOT NULL DEFAULT 0,
	average_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	registered_at TIMESTAMP WITH TIME ZONE NOT NULL
)`, `
CREATE TABLE address_allocations(
	aa SMALLINT NOT NULL,
	qq SMALLINT NOT NULL,
	ee SMALLINT NOT NULL,
	lemma_key TEXT NOT NULL,
	a2 SMALLINT NOT NULL,
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

// Upgrade upgrades a database to the latest database schema version.
func Upgrade(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Up)
	return err
}

// Drop clears a database by running all of the migrations in reverse,
// ultimately resulting in dropping all of the tables.
func Drop(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Down)
	return err
}
