package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. The three record tables share their
// common columns; each adds its category attributes.
const schema = `
CREATE TABLE IF NOT EXISTS trailers (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    year                INTEGER,
    make                TEXT NOT NULL,
    type                TEXT,
    vin                 TEXT NOT NULL,
    condition           TEXT,
    description         TEXT,
    purchase_price      REAL NOT NULL DEFAULT 0,
    sell_price          REAL,
    profit              REAL NOT NULL DEFAULT 0,
    sold                TEXT NOT NULL DEFAULT 'No',
    sold_date           TEXT,
    external_folder_ref TEXT,
    length              REAL,
    dimensions          TEXT,
    capacity            TEXT,
    color               TEXT,
    hitch_type          TEXT,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at          DATETIME
);

CREATE TABLE IF NOT EXISTS trucks (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    year                INTEGER,
    make                TEXT NOT NULL,
    model               TEXT,
    vin                 TEXT NOT NULL,
    condition           TEXT,
    description         TEXT,
    purchase_price      REAL NOT NULL DEFAULT 0,
    sell_price          REAL,
    profit              REAL NOT NULL DEFAULT 0,
    sold                TEXT NOT NULL DEFAULT 'No',
    sold_date           TEXT,
    external_folder_ref TEXT,
    truck_type          TEXT,
    boom_height         REAL,
    weight_capacity     REAL,
    engine_type         TEXT,
    hours               INTEGER,
    mileage             INTEGER,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at          DATETIME
);

CREATE TABLE IF NOT EXISTS classic_cars (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    year                INTEGER,
    make                TEXT NOT NULL,
    model               TEXT,
    vin                 TEXT NOT NULL,
    condition           TEXT,
    description         TEXT,
    purchase_price      REAL NOT NULL DEFAULT 0,
    sell_price          REAL,
    profit              REAL NOT NULL DEFAULT 0,
    sold                TEXT NOT NULL DEFAULT 'No',
    sold_date           TEXT,
    external_folder_ref TEXT,
    mileage             INTEGER,
    engine_specs        TEXT,
    transmission        TEXT,
    restoration_status  TEXT,
    color               TEXT,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at          DATETIME
);

CREATE TABLE IF NOT EXISTS import_batches (
    id          TEXT PRIMARY KEY,
    category    TEXT NOT NULL,
    source      TEXT NOT NULL,
    imported    INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
);
`

// indexes are applied in order after table creation. Each must be
// idempotent. Append new ones at the end.
var indexes = []string{
	// VINs are unique among live records only, so a soft-deleted unit can be
	// re-entered.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_trailers_vin_active
	     ON trailers(vin) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_trucks_vin_active
	     ON trucks(vin) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_classic_cars_vin_active
	     ON classic_cars(vin) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_trailers_sold_date ON trailers(sold_date)`,
	`CREATE INDEX IF NOT EXISTS idx_trucks_sold_date ON trucks(sold_date)`,
	`CREATE INDEX IF NOT EXISTS idx_classic_cars_sold_date ON classic_cars(sold_date)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index %d: %w", i+1, err)
		}
	}

	return nil
}
