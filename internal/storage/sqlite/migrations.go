package sqlite

import (
	"database/sql"
	"fmt"
)

// migration is a single named schema change, applied at most once. Up
// statements must be idempotent: a migration may run against a database
// where the tables or indexes it creates already exist (e.g. created by
// the initial schema rather than by an earlier migration).
type migration struct {
	Name string
	SQL  string
}

// migrations is the ordered list of schema changes applied after the
// bootstrap schema. Keep entries append-only; never edit or remove a
// migration once it has shipped.
var migrations = []migration{
	{
		Name: "0001_vector_mapping_model_default",
		SQL:  `UPDATE vector_mappings SET model = 'default' WHERE model IS NULL OR model = ''`,
	},
}

// applyMigrations runs every migration not already recorded in the
// migrations table, each inside its own transaction, skipping by name.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM migrations WHERE name = ?`, m.Name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", m.Name, err)
		}
		if exists > 0 {
			continue
		}

		if err := applyOne(db, m); err != nil {
			return fmt.Errorf("applying migration %s: %w", m.Name, err)
		}
	}
	return nil
}

func applyOne(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("executing migration SQL: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO migrations (name) VALUES (?)`, m.Name); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}
