package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "vitality_cycles: one row per completed cycle",
		SQL: `
CREATE TABLE vitality_cycles (
    id               INTEGER PRIMARY KEY,
    agent_id         TEXT NOT NULL,
    experience_type  TEXT NOT NULL,
    experience_count INTEGER NOT NULL,
    stage            INTEGER NOT NULL CHECK (stage BETWEEN 0 AND 9),
    level            TEXT NOT NULL,
    aggregate        REAL NOT NULL,
    changes          TEXT NOT NULL DEFAULT '[]',
    snapshot         BLOB,
    created_at       INTEGER NOT NULL
);

CREATE INDEX idx_cycles_agent   ON vitality_cycles(agent_id, created_at DESC);
CREATE INDEX idx_cycles_created ON vitality_cycles(created_at DESC);
`,
	},
	{
		Version:     2,
		Description: "modification_log: durable audit of self-modifications",
		SQL: `
CREATE TABLE modification_log (
    id         INTEGER PRIMARY KEY,
    agent_id   TEXT NOT NULL,
    field      TEXT NOT NULL,
    old_value  TEXT,
    new_value  TEXT,
    reason     TEXT,
    allowed    INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_modlog_agent ON modification_log(agent_id, created_at DESC);
`,
	},
	{
		Version:     3,
		Description: "session_summaries: latest summary per host session",
		SQL: `
CREATE TABLE session_summaries (
    agent_id     TEXT NOT NULL,
    session_key  TEXT NOT NULL,
    last_channel TEXT,
    last_to      TEXT,
    subject      TEXT,
    origin       TEXT,
    updated_at   INTEGER NOT NULL,
    PRIMARY KEY (agent_id, session_key)
);

CREATE INDEX idx_summaries_updated ON session_summaries(agent_id, updated_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
