package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"timetracker/internal/core/model"
)

// ListProjects returns all projects ordered by name.
func (store *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := store.db.QueryContext(ctx,
		"SELECT id, name, color, created_at FROM projects ORDER BY name, id")
	if err != nil {
		return nil, storageError("list projects", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, storageError("list projects", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list projects", err)
	}
	return projects, nil
}

// GetProject returns one project or ErrNotFound.
func (store *Store) GetProject(ctx context.Context, id model.ProjectID) (model.Project, error) {
	row := store.db.QueryRowContext(ctx,
		"SELECT id, name, color, created_at FROM projects WHERE id = ?", int64(id))
	project, err := scanProject(row)
	if isNoRows(err) {
		return model.Project{}, fmt.Errorf("project %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Project{}, storageError("get project", err)
	}
	return project, nil
}

// CreateProject inserts a project. An empty color falls back to the default.
func (store *Store) CreateProject(ctx context.Context, name, color string) (model.Project, error) {
	name, color, err := normalizeProject(name, color)
	if err != nil {
		return model.Project{}, err
	}

	createdAt := storedInstant(store.clock.Now())
	result, err := store.db.ExecContext(ctx,
		"INSERT INTO projects (name, color, created_at) VALUES (?, ?, ?)",
		name, color, formatTimestamp(createdAt))
	if err != nil {
		return model.Project{}, storageError("create project", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Project{}, storageError("create project", err)
	}

	return model.Project{ID: model.ProjectID(id), Name: name, Color: color, CreatedAt: createdAt}, nil
}

// UpdateProject renames or recolors a project.
func (store *Store) UpdateProject(ctx context.Context, id model.ProjectID, name, color string) (model.Project, error) {
	name, color, err := normalizeProject(name, color)
	if err != nil {
		return model.Project{}, err
	}

	result, err := store.db.ExecContext(ctx,
		"UPDATE projects SET name = ?, color = ? WHERE id = ?", name, color, int64(id))
	if err != nil {
		return model.Project{}, storageError("update project", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return model.Project{}, storageError("update project", err)
	} else if affected == 0 {
		return model.Project{}, fmt.Errorf("project %d: %w", id, model.ErrNotFound)
	}
	return store.GetProject(ctx, id)
}

// DeleteProject removes a project and every entry that references it,
// the open one included, in one transaction. It returns how many entries went with it.
func (store *Store) DeleteProject(ctx context.Context, id model.ProjectID) (int64, error) {
	var removed int64
	err := store.withTx(ctx, "delete project", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM time_entries WHERE project_id = ?", int64(id))
		if err != nil {
			return storageError("delete project entries", err)
		}
		if removed, err = result.RowsAffected(); err != nil {
			return storageError("delete project entries", err)
		}

		result, err = tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", int64(id))
		if err != nil {
			return storageError("delete project", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return storageError("delete project", err)
		}
		if affected == 0 {
			return fmt.Errorf("project %d: %w", id, model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	store.logger.Info().Int64("project_id", int64(id)).Int64("entries_removed", removed).Msg("Deleted project")
	return removed, nil
}

func normalizeProject(name, color string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("%w: project name is empty", model.ErrConstraint)
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = model.DefaultProjectColor
	}
	return name, color, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (model.Project, error) {
	var (
		project   model.Project
		createdAt string
	)
	if err := row.Scan(&project.ID, &project.Name, &project.Color, &createdAt); err != nil {
		return model.Project{}, err
	}
	parsed, err := parseTimestamp(createdAt)
	if err != nil {
		return model.Project{}, err
	}
	project.CreatedAt = parsed
	return project, nil
}
