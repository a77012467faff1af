// Package journal records one row per processing run. It stores run
// bookkeeping only, never section titles, keys or time ranges.
package journal

import (
	"context"
	"log/slog"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one journal row.
type Run struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	VideoID    string     `json:"video_id"`
	Status     Status     `json:"status"`
	Source     string     `json:"source,omitempty"`
	Sections   int        `json:"sections"`
	Uploaded   int        `json:"uploaded"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Journal persists run records.
type Journal interface {
	Start(ctx context.Context, run Run) error
	Finish(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

const (
	defaultRecent = 20
	maxRecent     = 200
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecent
	}
	return min(limit, maxRecent)
}

// Open picks postgres when databaseURL is set, sqlite when sqlitePath is
// set, and a no-op journal otherwise.
func Open(ctx context.Context, sqlitePath, databaseURL string) (Journal, error) {
	switch {
	case databaseURL != "":
		return ConnectPostgres(ctx, databaseURL)
	case sqlitePath != "":
		return OpenSQLite(sqlitePath)
	default:
		slog.Info("journal: disabled")
		return Nop{}, nil
	}
}

// Nop discards every record.
type Nop struct{}

func (Nop) Start(context.Context, Run) error           { return nil }
func (Nop) Finish(context.Context, Run) error          { return nil }
func (Nop) Recent(context.Context, int) ([]Run, error) { return []Run{}, nil }
func (Nop) Close() error                               { return nil }
