package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"timetracker/internal/core/model"
	"timetracker/internal/metrics"
)

const entryColumns = "te.id, te.project_id, te.start_time, te.end_time, te.duration, te.created_at"

// Begin opens a new entry for projectID starting now.
func (store *Store) Begin(ctx context.Context, projectID model.ProjectID) (model.TimeEntry, error) {
	start := storedInstant(store.clock.Now())
	entry := model.TimeEntry{ProjectID: projectID, StartTime: start, CreatedAt: start}

	err := store.withTx(ctx, "begin entry", func(tx *sql.Tx) error {
		var openID int64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM time_entries WHERE end_time IS NULL LIMIT 1").Scan(&openID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: entry %d is still open", model.ErrConstraint, openID)
		case !isNoRows(err):
			return storageError("begin entry", err)
		}

		if err := requireProject(ctx, tx, projectID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			"INSERT INTO time_entries (project_id, start_time, created_at) VALUES (?, ?, ?)",
			int64(projectID), formatTimestamp(start), formatTimestamp(start))
		if err != nil {
			return storageError("begin entry", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return storageError("begin entry", err)
		}
		entry.ID = model.EntryID(id)
		return nil
	})
	if err != nil {
		return model.TimeEntry{}, err
	}
	return entry, nil
}

// End closes the open entry entryID at now.
func (store *Store) End(ctx context.Context, entryID model.EntryID) (model.TimeEntry, error) {
	var entry model.TimeEntry
	err := store.withTx(ctx, "end entry", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+entryColumns+" FROM time_entries te WHERE te.id = ? AND te.end_time IS NULL", int64(entryID))
		open, err := scanEntry(row)
		if isNoRows(err) {
			return fmt.Errorf("open entry %d: %w", entryID, model.ErrNotFound)
		}
		if err != nil {
			return storageError("end entry", err)
		}

		end, duration, skewed := closeInterval(open.StartTime, store.clock.Now())
		if skewed {
			metrics.ClockSkewTotal.WithLabelValues("store").Inc()
			store.logger.Warn().
				Int64("entry_id", int64(entryID)).
				Time("start_time", open.StartTime).
				Msg("End time before start time; clamping duration to zero")
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE time_entries SET end_time = ?, duration = ? WHERE id = ?",
			formatTimestamp(end), duration, int64(entryID)); err != nil {
			return storageError("end entry", err)
		}

		open.EndTime = &end
		open.Duration = &duration
		entry = open
		return nil
	})
	if err != nil {
		return model.TimeEntry{}, err
	}
	return entry, nil
}

// CurrentOpenEntry returns the running entry with its project, or nil.
func (store *Store) CurrentOpenEntry(ctx context.Context) (*model.OpenEntry, error) {
	row := store.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+", p.name, p.color FROM time_entries te"+
			" JOIN projects p ON te.project_id = p.id"+
			" WHERE te.end_time IS NULL LIMIT 1")

	var open model.OpenEntry
	entry, err := scanEntry(row, &open.ProjectName, &open.ProjectColor)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("current open entry", err)
	}
	open.TimeEntry = entry
	return &open, nil
}

// LastUsedProjectID returns the project of the most recently started entry.
func (store *Store) LastUsedProjectID(ctx context.Context) (model.ProjectID, bool, error) {
	var id int64
	err := store.db.QueryRowContext(ctx,
		"SELECT project_id FROM time_entries ORDER BY start_time DESC, id DESC LIMIT 1").Scan(&id)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageError("last used project", err)
	}
	return model.ProjectID(id), true, nil
}

// UpdateEntry rewrites a closed entry and recomputes its duration.
func (store *Store) UpdateEntry(ctx context.Context, id model.EntryID, projectID model.ProjectID, start, end time.Time) (model.TimeEntry, error) {
	start = storedInstant(start)
	end, duration, skewed := closeInterval(start, end)
	if skewed {
		metrics.ClockSkewTotal.WithLabelValues("edit").Inc()
		store.logger.Warn().Int64("entry_id", int64(id)).Msg("Edited end time before start time; clamping duration to zero")
	}

	var entry model.TimeEntry
	err := store.withTx(ctx, "update entry", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM time_entries te WHERE te.id = ?", int64(id))
		current, err := scanEntry(row)
		if isNoRows(err) {
			return fmt.Errorf("entry %d: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return storageError("update entry", err)
		}
		if current.Open() {
			return fmt.Errorf("%w: entry %d is running; stop it before editing", model.ErrConstraint, id)
		}
		if err := requireProject(ctx, tx, projectID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE time_entries SET project_id = ?, start_time = ?, end_time = ?, duration = ? WHERE id = ?",
			int64(projectID), formatTimestamp(start), formatTimestamp(end), duration, int64(id)); err != nil {
			return storageError("update entry", err)
		}

		current.ProjectID = projectID
		current.StartTime = start
		current.EndTime = &end
		current.Duration = &duration
		entry = current
		return nil
	})
	if err != nil {
		return model.TimeEntry{}, err
	}
	return entry, nil
}

// DeleteEntry removes a closed entry. The open entry must be stopped first.
func (store *Store) DeleteEntry(ctx context.Context, id model.EntryID) error {
	return store.withTx(ctx, "delete entry", func(tx *sql.Tx) error {
		var endTime sql.NullString
		err := tx.QueryRowContext(ctx, "SELECT end_time FROM time_entries WHERE id = ?", int64(id)).Scan(&endTime)
		if isNoRows(err) {
			return fmt.Errorf("entry %d: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return storageError("delete entry", err)
		}
		if !endTime.Valid {
			return fmt.Errorf("%w: entry %d is running; stop it before deleting", model.ErrConstraint, id)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM time_entries WHERE id = ?", int64(id)); err != nil {
			return storageError("delete entry", err)
		}
		return nil
	})
}

func requireProject(ctx context.Context, tx *sql.Tx, projectID model.ProjectID) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", int64(projectID)).Scan(&exists)
	if isNoRows(err) {
		return fmt.Errorf("%w: project %d does not exist", model.ErrConstraint, projectID)
	}
	if err != nil {
		return storageError("check project", err)
	}
	return nil
}

func scanEntry(row rowScanner, extra ...any) (model.TimeEntry, error) {
	var (
		entry     model.TimeEntry
		startTime string
		endTime   sql.NullString
		duration  sql.NullInt64
		createdAt string
	)
	dest := append([]any{&entry.ID, &entry.ProjectID, &startTime, &endTime, &duration, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.TimeEntry{}, err
	}

	var err error
	if entry.StartTime, err = parseTimestamp(startTime); err != nil {
		return model.TimeEntry{}, err
	}
	if entry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return model.TimeEntry{}, err
	}
	if endTime.Valid {
		end, err := parseTimestamp(endTime.String)
		if err != nil {
			return model.TimeEntry{}, err
		}
		entry.EndTime = &end
	}
	if duration.Valid {
		seconds := duration.Int64
		entry.Duration = &seconds
	}
	return entry, nil
}
