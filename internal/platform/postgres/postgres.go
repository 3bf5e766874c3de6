// Package postgres opens the shared connection pool and applies the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection. The pool is
// shared across all concurrent operations; there is no other long-lived
// in-process state.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Schema is the full DDL for the engine. The partial unique index on active
// visits and the (guest_id, timeslot_start) constraint are load-bearing:
// they are what makes concurrent check-ins and activity upserts safe.
const Schema = `
CREATE TABLE IF NOT EXISTS guests (
	id UUID PRIMARY KEY,
	display_id INTEGER NOT NULL UNIQUE,
	name TEXT NOT NULL,
	contact TEXT NOT NULL DEFAULT '',
	grade TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS display_sequences (
	year INTEGER PRIMARY KEY,
	last_sequence INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS visits (
	id UUID PRIMARY KEY,
	guest_id UUID NOT NULL REFERENCES guests (id),
	checkin_at TIMESTAMPTZ NOT NULL,
	checkout_at TIMESTAMPTZ,
	is_active BOOLEAN NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT visits_active_matches_checkout CHECK (is_active = (checkout_at IS NULL)),
	CONSTRAINT visits_checkout_after_checkin CHECK (checkout_at IS NULL OR checkout_at >= checkin_at)
);

CREATE UNIQUE INDEX IF NOT EXISTS visits_one_active_per_guest
	ON visits (guest_id) WHERE is_active;
CREATE INDEX IF NOT EXISTS visits_checkin_at_idx ON visits (checkin_at DESC);
CREATE INDEX IF NOT EXISTS visits_guest_id_idx ON visits (guest_id);

CREATE TABLE IF NOT EXISTS activity_entries (
	id UUID PRIMARY KEY,
	guest_id UUID NOT NULL REFERENCES guests (id),
	timeslot_start TIMESTAMPTZ NOT NULL,
	categories TEXT[] NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	mentor_note TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT activity_one_entry_per_slot UNIQUE (guest_id, timeslot_start)
);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	action TEXT NOT NULL,
	actor_role TEXT NOT NULL,
	guest_id TEXT NOT NULL DEFAULT '',
	visit_id TEXT NOT NULL DEFAULT '',
	entry_id TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS audit_events_guest_idx ON audit_events (guest_id, occurred_at);
`

// Migrate applies the schema. Idempotent; safe to run at every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
