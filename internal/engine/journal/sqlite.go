package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed-width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLite is the single-node journal.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the journal database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("journal: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: init schema: %w", err)
	}
	slog.Info("journal: sqlite ready", slog.String("path", path))
	return &SQLite{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		url         TEXT NOT NULL,
		video_id    TEXT NOT NULL,
		status      TEXT NOT NULL,
		source      TEXT,
		sections    INTEGER NOT NULL DEFAULT 0,
		uploaded    INTEGER NOT NULL DEFAULT 0,
		error       TEXT,
		started_at  TEXT NOT NULL,
		finished_at TEXT
	)`)
	return err
}

func (j *SQLite) Start(ctx context.Context, run Run) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, url, video_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.URL, run.VideoID, string(run.Status), run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("journal: start %s: %w", run.ID, err)
	}
	return nil
}

func (j *SQLite) Finish(ctx context.Context, run Run) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, source = ?, sections = ?, uploaded = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), run.Source, run.Sections, run.Uploaded, run.Error, finished.Format(timeLayout), run.ID,
	)
	if err != nil {
		return fmt.Errorf("journal: finish %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("journal: finish %s: run not found", run.ID)
	}
	return nil
}

func (j *SQLite) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, url, video_id, status, source, sections, uploaded, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r              Run
			status         string
			source, errMsg sql.NullString
			started        string
			finished       sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.URL, &r.VideoID, &status, &source, &r.Sections, &r.Uploaded, &errMsg, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		r.Status = Status(status)
		r.Source = source.String
		r.Error = errMsg.String
		r.StartedAt, _ = time.Parse(timeLayout, started)
		if finished.Valid {
			if t, err := time.Parse(timeLayout, finished.String); err == nil {
				r.FinishedAt = &t
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (j *SQLite) Close() error { return j.db.Close() }
