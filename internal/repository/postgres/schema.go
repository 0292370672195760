package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables owned by this service. vehicles, routes and
// route_stops are owned by other services; their definitions here only cover
// the columns this service reads or writes.
const schema = `
CREATE TABLE IF NOT EXISTS vehicles (
	id               TEXT PRIMARY KEY,
	organization_id  TEXT NOT NULL,
	plate_number     TEXT NOT NULL DEFAULT '',
	current_odometer INTEGER NOT NULL DEFAULT 0,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS routes (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS route_stops (
	id         TEXT PRIMARY KEY,
	route_id   TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
	machine_id TEXT NOT NULL,
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	sequence   INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS trips (
	id                         TEXT PRIMARY KEY,
	organization_id            TEXT NOT NULL,
	employee_id                TEXT NOT NULL,
	vehicle_id                 TEXT,
	route_id                   TEXT,
	task_type                  TEXT NOT NULL,
	status                     TEXT NOT NULL,
	started_at                 TIMESTAMPTZ NOT NULL,
	ended_at                   TIMESTAMPTZ,
	start_odometer             INTEGER,
	end_odometer               INTEGER,
	start_latitude             DOUBLE PRECISION,
	start_longitude            DOUBLE PRECISION,
	end_latitude               DOUBLE PRECISION,
	end_longitude              DOUBLE PRECISION,
	calculated_distance_meters DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_points               INTEGER NOT NULL DEFAULT 0,
	total_stops                INTEGER NOT NULL DEFAULT 0,
	total_anomalies            INTEGER NOT NULL DEFAULT 0,
	visited_machines_count     INTEGER NOT NULL DEFAULT 0,
	live_location_active       BOOLEAN NOT NULL DEFAULT false,
	last_location_update       TIMESTAMPTZ,
	notes                      TEXT NOT NULL DEFAULT '',
	completed_by_id            TEXT,
	cancelled_by_id            TEXT,
	created_at                 TIMESTAMPTZ NOT NULL,
	updated_at                 TIMESTAMPTZ NOT NULL,
	CHECK (end_odometer IS NULL OR start_odometer IS NULL OR end_odometer >= start_odometer)
);

CREATE UNIQUE INDEX IF NOT EXISTS trips_one_active_per_employee
	ON trips (employee_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS trips_organization_started ON trips (organization_id, started_at DESC);
CREATE INDEX IF NOT EXISTS trips_vehicle_started ON trips (vehicle_id, started_at);

CREATE TABLE IF NOT EXISTS trip_points (
	id                        TEXT PRIMARY KEY,
	trip_id                   TEXT NOT NULL REFERENCES trips(id),
	latitude                  DOUBLE PRECISION NOT NULL,
	longitude                 DOUBLE PRECISION NOT NULL,
	accuracy                  DOUBLE PRECISION,
	speed                     DOUBLE PRECISION,
	heading                   DOUBLE PRECISION,
	captured_at               TIMESTAMPTZ NOT NULL,
	is_filtered               BOOLEAN NOT NULL DEFAULT false,
	filter_reason             TEXT,
	distance_from_prev_meters DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at                TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS trip_points_accepted
	ON trip_points (trip_id, captured_at DESC, created_at DESC) WHERE NOT is_filtered;

CREATE TABLE IF NOT EXISTS trip_stops (
	id               TEXT PRIMARY KEY,
	trip_id          TEXT NOT NULL REFERENCES trips(id),
	started_at       TIMESTAMPTZ NOT NULL,
	ended_at         TIMESTAMPTZ,
	latitude         DOUBLE PRECISION NOT NULL,
	longitude        DOUBLE PRECISION NOT NULL,
	duration_seconds BIGINT NOT NULL DEFAULT 0,
	points_count     INTEGER NOT NULL DEFAULT 0,
	idle_flagged     BOOLEAN NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS trip_stops_trip ON trip_stops (trip_id, started_at);

CREATE TABLE IF NOT EXISTS trip_anomalies (
	id               TEXT PRIMARY KEY,
	trip_id          TEXT NOT NULL REFERENCES trips(id),
	type             TEXT NOT NULL,
	severity         TEXT NOT NULL,
	details          JSONB NOT NULL,
	latitude         DOUBLE PRECISION NOT NULL,
	longitude        DOUBLE PRECISION NOT NULL,
	detected_at      TIMESTAMPTZ NOT NULL,
	resolved         BOOLEAN NOT NULL DEFAULT false,
	resolved_by_id   TEXT,
	resolution_notes TEXT NOT NULL DEFAULT '',
	resolved_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS trip_anomalies_trip ON trip_anomalies (trip_id, detected_at);

CREATE TABLE IF NOT EXISTS trip_task_links (
	id           TEXT PRIMARY KEY,
	trip_id      TEXT NOT NULL REFERENCES trips(id),
	task_id      TEXT NOT NULL,
	status       TEXT NOT NULL,
	completed_at TIMESTAMPTZ,
	notes        TEXT NOT NULL DEFAULT '',
	linked_by_id TEXT,
	created_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (trip_id, task_id)
);

CREATE TABLE IF NOT EXISTS trip_reconciliations (
	id                         TEXT PRIMARY KEY,
	organization_id            TEXT NOT NULL,
	vehicle_id                 TEXT NOT NULL,
	previous_odometer          INTEGER NOT NULL,
	actual_odometer            INTEGER NOT NULL,
	difference_km              INTEGER NOT NULL,
	calculated_distance_meters DOUBLE PRECISION NOT NULL,
	performed_by_id            TEXT NOT NULL,
	notes                      TEXT NOT NULL DEFAULT '',
	created_at                 TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS trip_reconciliations_vehicle ON trip_reconciliations (vehicle_id, created_at DESC);
`

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
