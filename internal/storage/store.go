package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"timetracker/internal/core/clock"
	"timetracker/internal/core/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// timestampLayout keeps UTC timestamps lexically ordered.
const timestampLayout = "2006-01-02 15:04:05"

// Store persists projects and time entries in SQLite.
type Store struct {
	db     *sql.DB
	clock  clock.Clock
	logger zerolog.Logger
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string, clk clock.Clock, logger zerolog.Logger) (*Store, error) {
	db, err := openDB(path, "PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	store := newStore(db, clk, logger)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	store.logger.Debug().Str("path", path).Msg("Store initialized")
	return store, nil
}

// OpenReadOnly opens an existing database for queries only. It neither
// creates the file nor migrates or seeds it, and every write fails.
func OpenReadOnly(path string, clk clock.Clock, logger zerolog.Logger) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open database: %s does not exist yet; start the app once to create it", path)
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	db, err := openDB(path, "PRAGMA query_only=ON")
	if err != nil {
		return nil, err
	}

	store := newStore(db, clk, logger)
	store.logger.Debug().Str("path", path).Msg("Store opened read-only")
	return store, nil
}

func openDB(path string, extraPragmas ...string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps per-connection pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := append([]string{"PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"}, extraPragmas...)
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	return db, nil
}

func newStore(db *sql.DB, clk clock.Clock, logger zerolog.Logger) *Store {
	if clk == nil {
		clk = clock.System()
	}
	return &Store{
		db:     db,
		clock:  clk,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Close closes the database connection.
func (store *Store) Close() error {
	if store.db == nil {
		return nil
	}
	return store.db.Close()
}

func (store *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageError(op, err)
	}
	return nil
}

func storageError(op string, err error) error {
	return &model.StorageError{Op: op, Err: err}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(timestampLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}

// storedInstant rounds to the nearest second, which is all the schema keeps.
func storedInstant(t time.Time) time.Time {
	return t.UTC().Round(time.Second)
}

// closeInterval returns the end time and whole-second duration to persist.
// A negative interval is clamped: end collapses onto start and duration is zero.
func closeInterval(start, end time.Time) (time.Time, int64, bool) {
	start = storedInstant(start)
	end = storedInstant(end)
	if end.Before(start) {
		return start, 0, true
	}
	return end, int64(end.Sub(start) / time.Second), false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
