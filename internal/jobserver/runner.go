package jobserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_snippets/internal/engine"
	"github.com/anatolykoptev/go_snippets/internal/engine/journal"
	"github.com/google/uuid"
)

const runIDPrefix = "run-"

// Processor is the pipeline as seen by the surfaces.
type Processor interface {
	ProcessVideo(ctx context.Context, videoURL string) (*engine.RunResult, error)
	ListSnippets(ctx context.Context, videoURL string) ([]engine.Snippet, error)
	Attach(ctx context.Context, snippets []engine.Snippet) ([]engine.Snippet, error)
}

// RunReport is what REST and MCP callers get back from a processing run.
type RunReport struct {
	RunID    string           `json:"run_id"`
	VideoID  string           `json:"video_id"`
	Source   string           `json:"source"`
	Uploaded int              `json:"uploaded"`
	Snippets []engine.Snippet `json:"snippets"`
}

// Runner enforces single-flight per video id and journals every run.
type Runner struct {
	proc    Processor
	locker  engine.Locker
	journal journal.Journal
}

func NewRunner(proc Processor, locker engine.Locker, jr journal.Journal) *Runner {
	if locker == nil {
		locker = engine.NewMemoryLocker()
	}
	if jr == nil {
		jr = journal.Nop{}
	}
	return &Runner{proc: proc, locker: locker, journal: jr}
}

// Process runs the pipeline for videoURL. It fails with ErrRunInProgress
// when another run holds the same video id.
func (r *Runner) Process(ctx context.Context, videoURL string) (*RunReport, error) {
	videoID, err := engine.VideoID(videoURL)
	if err != nil {
		return nil, err
	}

	ok, err := r.locker.TryLock(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		engine.IncrLockConflicts()
		return nil, fmt.Errorf("%s: %w", videoID, engine.ErrRunInProgress)
	}
	defer func() {
		if err := r.locker.Unlock(context.WithoutCancel(ctx), videoID); err != nil {
			slog.Warn("unlock failed", slog.String("video_id", videoID), slog.Any("error", err))
		}
	}()

	entry := journal.Run{
		ID:        newRunID(),
		URL:       videoURL,
		VideoID:   videoID,
		Status:    journal.StatusRunning,
		StartedAt: time.Now(),
	}
	engine.IncrRunsStarted()
	if err := r.journal.Start(ctx, entry); err != nil {
		slog.Warn("journal start failed", slog.Any("error", err))
	}

	res, runErr := r.proc.ProcessVideo(ctx, videoURL)
	r.finish(ctx, entry, res, runErr)
	if runErr != nil {
		engine.IncrRunsFailed()
		return nil, runErr
	}

	snippets, err := r.proc.Attach(ctx, res.Snippets(engine.DefaultClipExt))
	if err != nil {
		return nil, err
	}
	return &RunReport{
		RunID:    entry.ID,
		VideoID:  videoID,
		Source:   string(res.Source),
		Uploaded: res.Uploaded(),
		Snippets: snippets,
	}, nil
}

// List resolves snippet references without processing.
func (r *Runner) List(ctx context.Context, videoURL string) ([]engine.Snippet, error) {
	return r.proc.ListSnippets(ctx, videoURL)
}

// Recent returns the latest journal entries.
func (r *Runner) Recent(ctx context.Context, limit int) ([]journal.Run, error) {
	return r.journal.Recent(ctx, limit)
}

func (r *Runner) finish(ctx context.Context, entry journal.Run, res *engine.RunResult, runErr error) {
	entry.Status = journal.StatusSucceeded
	if res != nil {
		entry.Source = string(res.Source)
		entry.Sections = len(res.Sections)
		entry.Uploaded = res.Uploaded()
	}
	if runErr != nil {
		entry.Status = journal.StatusFailed
		entry.Error = runErr.Error()
	}
	now := time.Now()
	entry.FinishedAt = &now
	if err := r.journal.Finish(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("journal finish failed", slog.String("run_id", entry.ID), slog.Any("error", err))
	}
}

// newRunID returns a time-ordered UUID v7 id.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(runIDPrefix+"%d", time.Now().UnixNano())
	}
	return runIDPrefix + id.String()
}
