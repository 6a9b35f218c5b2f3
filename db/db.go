package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/vid-text/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    model_name TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT '',
    device TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    output_path TEXT NOT NULL DEFAULT '',
    archive_path TEXT NOT NULL DEFAULT '',
    segments INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_filename ON runs(filename);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

const runColumns = `id, filename, model_name, language, device, status, output_path,
    archive_path, segments, error, created_at, updated_at`

// Ledger records every transcription run and how far it got.
type Ledger struct {
	db *sql.DB
}

func Open(dbPath string) (*Ledger, error) {
	logrus.WithField("path", dbPath).Debug("Opening run ledger")

	// Ensure the directory for the database file exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "error creating directory for database")
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "error opening database")
	}

	// One process, one run at a time.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error creating schema")
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun inserts run as in progress, assigning its ID and timestamps.
func (l *Ledger) StartRun(ctx context.Context, run *models.Run) error {
	now := time.Now().UTC()
	run.ID = uuid.New().String()
	run.Status = models.RunInProgress
	run.CreatedAt = now
	run.UpdatedAt = now

	return l.exec(ctx, `
        INSERT INTO runs (`+runColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Filename, run.ModelName, run.Language, run.Device, run.Status,
		run.OutputPath, run.ArchivePath, run.Segments, run.Error, run.CreatedAt, run.UpdatedAt)
}

func (l *Ledger) MarkWritten(ctx context.Context, id, outputPath string, segments int) error {
	return l.exec(ctx,
		"UPDATE runs SET status = ?, output_path = ?, segments = ?, updated_at = ? WHERE id = ?",
		models.RunWritten, outputPath, segments, time.Now().UTC(), id)
}

func (l *Ledger) MarkArchived(ctx context.Context, id, archivePath string) error {
	return l.exec(ctx,
		"UPDATE runs SET status = ?, archive_path = ?, error = '', updated_at = ? WHERE id = ?",
		models.RunArchived, archivePath, time.Now().UTC(), id)
}

func (l *Ledger) MarkSkipped(ctx context.Context, id, reason string) error {
	return l.setStatus(ctx, id, models.RunSkipped, reason)
}

func (l *Ledger) MarkFailed(ctx context.Context, id, reason string) error {
	return l.setStatus(ctx, id, models.RunFailed, reason)
}

// RecordArchiveError keeps a written run resumable while noting why the move failed.
func (l *Ledger) RecordArchiveError(ctx context.Context, id, reason string) error {
	return l.exec(ctx, "UPDATE runs SET error = ?, updated_at = ? WHERE id = ?",
		reason, time.Now().UTC(), id)
}

func (l *Ledger) setStatus(ctx context.Context, id string, status models.RunStatus, reason string) error {
	return l.exec(ctx, "UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		status, reason, time.Now().UTC(), id)
}

// PendingArchive returns the latest run for filename whose transcript was written
// but whose input was never archived, or nil.
func (l *Ledger) PendingArchive(ctx context.Context, filename string) (*models.Run, error) {
	row := l.db.QueryRowContext(ctx, `
        SELECT `+runColumns+` FROM runs
        WHERE filename = ?
        ORDER BY updated_at DESC, rowid DESC
        LIMIT 1`, filename)

	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error querying database")
	}
	if !run.IsWritten() {
		return nil, nil
	}
	return run, nil
}

// Recent lists the newest runs first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]models.Run, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT `+runColumns+` FROM runs
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "error querying database")
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "error scanning run")
		}
		runs = append(runs, *run)
	}
	return runs, errors.Wrap(rows.Err(), "error iterating runs")
}

func (l *Ledger) exec(ctx context.Context, query string, args ...interface{}) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "error beginning transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, "error preparing statement")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return errors.Wrap(err, "error executing statement")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "error getting rows affected")
	}
	if rowsAffected == 0 {
		return errors.New("no rows updated")
	}

	return errors.Wrap(tx.Commit(), "error committing transaction")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.Run, error) {
	var run models.Run
	var status string
	err := s.Scan(&run.ID, &run.Filename, &run.ModelName, &run.Language, &run.Device, &status,
		&run.OutputPath, &run.ArchivePath, &run.Segments, &run.Error, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	return &run, nil
}
