package storage

import (
	"context"
	"database/sql"
	"time"

	"timetracker/internal/core/model"
)

const historyQuery = "SELECT " + entryColumns + ", p.name, p.color FROM time_entries te" +
	" JOIN projects p ON te.project_id = p.id"

// RecentEntries returns closed entries, newest first.
func (store *Store) RecentEntries(ctx context.Context, limit int) ([]model.EntryWithProject, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := store.db.QueryContext(ctx,
		historyQuery+" WHERE te.end_time IS NOT NULL ORDER BY te.start_time DESC, te.id DESC LIMIT ?", limit)
	if err != nil {
		return nil, storageError("recent entries", err)
	}
	return collectHistory(rows, "recent entries")
}

// EntriesForProject returns every entry of a project, newest first.
func (store *Store) EntriesForProject(ctx context.Context, projectID model.ProjectID) ([]model.EntryWithProject, error) {
	rows, err := store.db.QueryContext(ctx,
		historyQuery+" WHERE te.project_id = ? ORDER BY te.start_time DESC, te.id DESC", int64(projectID))
	if err != nil {
		return nil, storageError("project entries", err)
	}
	return collectHistory(rows, "project entries")
}

// TotalBetween sums closed durations of entries started in [from, to).
func (store *Store) TotalBetween(ctx context.Context, from, to time.Time) (time.Duration, error) {
	var total sql.NullInt64
	err := store.db.QueryRowContext(ctx,
		`SELECT SUM(duration) FROM time_entries
		 WHERE end_time IS NOT NULL AND start_time >= ? AND start_time < ?`,
		formatTimestamp(from), formatTimestamp(to)).Scan(&total)
	if err != nil {
		return 0, storageError("total duration", err)
	}
	return time.Duration(total.Int64) * time.Second, nil
}

// TodayTotal sums time tracked since local midnight of now.
func (store *Store) TodayTotal(ctx context.Context, now time.Time) (time.Duration, error) {
	start := localMidnight(now)
	return store.TotalBetween(ctx, start, start.AddDate(0, 0, 1))
}

// WeekTotal sums time tracked over the last seven local days, today included.
func (store *Store) WeekTotal(ctx context.Context, now time.Time) (time.Duration, error) {
	today := localMidnight(now)
	return store.TotalBetween(ctx, today.AddDate(0, 0, -7), today.AddDate(0, 0, 1))
}

func localMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func collectHistory(rows *sql.Rows, op string) ([]model.EntryWithProject, error) {
	defer rows.Close()

	var entries []model.EntryWithProject
	for rows.Next() {
		var item model.EntryWithProject
		entry, err := scanEntry(rows, &item.ProjectName, &item.ProjectColor)
		if err != nil {
			return nil, storageError(op, err)
		}
		item.TimeEntry = entry
		entries = append(entries, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(op, err)
	}
	return entries, nil
}
