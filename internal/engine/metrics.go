package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	RunsStarted         atomic.Int64
	RunsFailed          atomic.Int64
	SectionsChapters    atomic.Int64
	SectionsDescription atomic.Int64
	SectionsComments    atomic.Int64
	ResolvedEmpty       atomic.Int64
	CommentPages        atomic.Int64
	Trims               atomic.Int64
	TrimSkips           atomic.Int64
	TrimFailures        atomic.Int64
	TrimTimeouts        atomic.Int64
	Uploads             atomic.Int64
	UploadFailures      atomic.Int64
	LockConflicts       atomic.Int64
}

var metricKeys = []string{
	"runs_started", "runs_failed",
	"sections_chapters", "sections_description", "sections_comments", "resolved_empty",
	"comment_pages",
	"trims", "trim_skips", "trim_failures", "trim_timeouts",
	"uploads", "upload_failures",
	"lock_conflicts",
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"runs_started":         metrics.RunsStarted.Load(),
		"runs_failed":          metrics.RunsFailed.Load(),
		"sections_chapters":    metrics.SectionsChapters.Load(),
		"sections_description": metrics.SectionsDescription.Load(),
		"sections_comments":    metrics.SectionsComments.Load(),
		"resolved_empty":       metrics.ResolvedEmpty.Load(),
		"comment_pages":        metrics.CommentPages.Load(),
		"trims":                metrics.Trims.Load(),
		"trim_skips":           metrics.TrimSkips.Load(),
		"trim_failures":        metrics.TrimFailures.Load(),
		"trim_timeouts":        metrics.TrimTimeouts.Load(),
		"uploads":              metrics.Uploads.Load(),
		"upload_failures":      metrics.UploadFailures.Load(),
		"lock_conflicts":       metrics.LockConflicts.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sub-packages and surfaces.
func IncrCommentPages()  { metrics.CommentPages.Add(1) }
func IncrRunsStarted()   { metrics.RunsStarted.Add(1) }
func IncrRunsFailed()    { metrics.RunsFailed.Add(1) }
func IncrLockConflicts() { metrics.LockConflicts.Add(1) }

func countSource(src SectionSource) {
	switch src {
	case SourceChapters:
		metrics.SectionsChapters.Add(1)
	case SourceDescription:
		metrics.SectionsDescription.Add(1)
	case SourceComments:
		metrics.SectionsComments.Add(1)
	default:
		metrics.ResolvedEmpty.Add(1)
	}
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
