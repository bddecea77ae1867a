package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS incidents (
		id              BIGSERIAL PRIMARY KEY,
		case_ref        TEXT NOT NULL,
		external_ref    TEXT,
		category        TEXT NOT NULL,
		narrative       TEXT,
		reasoning       TEXT,
		street          TEXT,
		neighborhood    TEXT,
		lat             TEXT DEFAULT '0.0',
		lon             TEXT DEFAULT '0.0',
		occurred_on     DATE,
		occurred_time   TEXT,
		recorded_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_incidents_case_ref ON incidents(case_ref);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_recorded_at ON incidents(recorded_at);`,
	`CREATE TABLE IF NOT EXISTS incident_vehicles (
		id              BIGSERIAL PRIMARY KEY,
		incident_id     BIGINT NOT NULL REFERENCES incidents(id),
		make            TEXT DEFAULT 'DESCONOCIDO',
		model           TEXT DEFAULT 'DESCONOCIDO',
		year            TEXT DEFAULT 'SIN AÑO',
		color           TEXT DEFAULT 'DESCONOCIDO',
		plate           TEXT DEFAULT 'SIN PLACAS'
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incident_vehicles_incident_id ON incident_vehicles(incident_id);`,
	`CREATE INDEX IF NOT EXISTS idx_incident_vehicles_plate ON incident_vehicles(plate);`,
	`CREATE TABLE IF NOT EXISTS incident_persons (
		id              BIGSERIAL PRIMARY KEY,
		incident_id     BIGINT NOT NULL REFERENCES incidents(id),
		role            TEXT DEFAULT 'PRESUNTO',
		name_alias      TEXT DEFAULT 'DESCONOCIDO',
		sex             TEXT DEFAULT 'SIN SEXO',
		age             TEXT DEFAULT 'DESC',
		clothing        TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incident_persons_incident_id ON incident_persons(incident_id);`,
	`CREATE TABLE IF NOT EXISTS evidences (
		id              BIGSERIAL PRIMARY KEY,
		incident_id     BIGINT NOT NULL REFERENCES incidents(id),
		file_path       TEXT,
		kind            TEXT DEFAULT 'image'
	);`,
	`CREATE INDEX IF NOT EXISTS idx_evidences_incident_id ON evidences(incident_id);`,
	`CREATE TABLE IF NOT EXISTS watch_entries (
		id              BIGSERIAL PRIMARY KEY,
		plate           TEXT NOT NULL,
		make            TEXT,
		model           TEXT,
		color           TEXT,
		year            TEXT,
		owner           TEXT,
		status          TEXT NOT NULL DEFAULT 'SOSPECHOSO',
		alert_level     TEXT NOT NULL DEFAULT 'MEDIA',
		notes           TEXT,
		registered_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_watch_entries_plate ON watch_entries(plate);`,
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGSERIAL PRIMARY KEY,
		username        TEXT NOT NULL,
		password_hash   TEXT NOT NULL,
		full_name       TEXT,
		role            TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username ON users(username);`,
	`CREATE TABLE IF NOT EXISTS sighting_logs (
		id               BIGSERIAL PRIMARY KEY,
		raw_plate        TEXT,
		normalized_plate TEXT,
		source           TEXT,
		reporter_id      TEXT,
		outcome          TEXT,
		alert_count      INT,
		raw_payload      JSONB,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_sighting_logs_plate ON sighting_logs(normalized_plate);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
