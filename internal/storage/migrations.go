package storage

import (
	"fmt"

	"timetracker/internal/core/model"
)

var seedProjects = []struct {
	name  string
	color string
}{
	{"Work", model.DefaultProjectColor},
	{"Personal", "#22C55E"},
	{"Learning", "#F59E0B"},
	{"Health", "#EC4899"},
	{"Side Project", "#8B5CF6"},
}

func (store *Store) migrate() error {
	if err := store.migrateV1(); err != nil {
		return err
	}
	return store.seed()
}

func (store *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '#3B82F6',
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		start_time TEXT NOT NULL,
		end_time TEXT,
		duration INTEGER,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK ((end_time IS NULL) = (duration IS NULL)),
		CHECK (duration IS NULL OR duration >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_project ON time_entries(project_id);
	CREATE INDEX IF NOT EXISTS idx_time_entries_start ON time_entries(start_time);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_single_open
		ON time_entries(end_time IS NULL) WHERE end_time IS NULL;
	`

	if _, err := store.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (store *Store) seed() error {
	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&count); err != nil {
		return fmt.Errorf("count projects: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := formatTimestamp(store.clock.Now())
	for _, project := range seedProjects {
		if _, err := store.db.Exec(
			"INSERT INTO projects (name, color, created_at) VALUES (?, ?, ?)",
			project.name, project.color, now,
		); err != nil {
			return fmt.Errorf("seed project %s: %w", project.name, err)
		}
	}
	store.logger.Info().Int("projects", len(seedProjects)).Msg("Seeded default projects")
	return nil
}
