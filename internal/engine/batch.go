package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// Trimmer cuts [start, start+duration) out of src into dst as a stream copy,
// failing once timeout elapses.
type Trimmer interface {
	Trim(ctx context.Context, src, dst string, start, duration int, timeout time.Duration) error
}

// Sink persists one named audio clip.
type Sink interface {
	Persist(ctx context.Context, key, localPath string) error
}

// BatchProcessor cuts and persists sections in sequential batches.
// Sections within a batch run concurrently. A failed section fails its
// batch once every sibling has settled, and later batches are not started.
// Clips already persisted stay persisted.
type BatchProcessor struct {
	trimmer   Trimmer
	batchSize int
	timeout   time.Duration
}

// NewBatchProcessor builds a BatchProcessor from cfg's batch size and trim timeout.
func NewBatchProcessor(cfg Config, trimmer Trimmer) *BatchProcessor {
	cfg = cfg.WithDefaults()
	return &BatchProcessor{trimmer: trimmer, batchSize: cfg.BatchSize, timeout: cfg.TrimTimeout}
}

// CutDirName is the workspace subdirectory that holds per-section cuts.
const CutDirName = "sections"

// ProcessSections cuts every section out of sourceAudioPath into the
// CutDirName directory beside it and hands each clip to sink under
// "<sanitized title><ext>". Sections sharing a key run one after another in
// section order, so the last one wins. Outcomes are returned for every
// section that was attempted, in section order.
func (b *BatchProcessor) ProcessSections(ctx context.Context, sections []Section, sourceAudioPath string, sink Sink) ([]Outcome, error) {
	dir := filepath.Join(filepath.Dir(sourceAudioPath), CutDirName)
	ext := filepath.Ext(sourceAudioPath)
	if ext == "" {
		ext = DefaultClipExt
	}
	if len(sections) > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cut dir: %w", err)
		}
	}

	outcomes := make([]Outcome, 0, len(sections))
	for batch, start := 0, 0; start < len(sections); batch, start = batch+1, start+b.batchSize {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		end := min(start+b.batchSize, len(sections))
		slog.Info("processing batch",
			slog.Int("batch", batch),
			slog.Int("from", start),
			slog.Int("to", end),
			slog.Int("total", len(sections)),
		)

		results := make([]Outcome, end-start)
		var g errgroup.Group
		for _, group := range groupByKey(sections[start:end], ext) {
			g.Go(func() error {
				var groupErr error
				for _, i := range group {
					if groupErr != nil {
						sec := sections[start+i]
						key := SanitizeKey(sec.Title) + ext
						results[i] = Outcome{
							Key:   key,
							Title: sec.Title,
							Batch: batch,
							Err:   fmt.Errorf("%s: earlier section with the same key failed: %w", key, groupErr),
						}
						continue
					}
					results[i] = b.processOne(ctx, batch, sections[start+i], sourceAudioPath, dir, ext, sink)
					groupErr = results[i].Err
				}
				return groupErr
			})
		}
		err := g.Wait()
		outcomes = append(outcomes, results...)
		if err != nil {
			failed := 0
			for _, r := range results {
				if !r.OK {
					failed++
				}
			}
			return outcomes, &BatchError{Batch: batch, Failed: failed, Err: err}
		}
	}
	return outcomes, nil
}

// groupByKey returns section indexes grouped by output key, each group in
// section order.
func groupByKey(sections []Section, ext string) [][]int {
	var groups [][]int
	at := make(map[string]int, len(sections))
	for i, sec := range sections {
		key := SanitizeKey(sec.Title) + ext
		g, ok := at[key]
		if !ok {
			g = len(groups)
			at[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func (b *BatchProcessor) processOne(ctx context.Context, batch int, sec Section, src, dir, ext string, sink Sink) Outcome {
	key := SanitizeKey(sec.Title) + ext
	dst := filepath.Join(dir, key)
	out := Outcome{Key: key, Title: sec.Title, Batch: batch}
	log := slog.With(slog.String("key", key), slog.Int("batch", batch))

	if _, err := os.Stat(dst); err == nil {
		out.CutSkipped = true
		metrics.TrimSkips.Add(1)
		log.Debug("cut exists, skipping trim")
	} else {
		metrics.Trims.Add(1)
		if err := b.trimmer.Trim(ctx, src, dst, sec.StartTime, sec.Duration(), b.timeout); err != nil {
			metrics.TrimFailures.Add(1)
			var me *MediaToolError
			if errors.As(err, &me) && me.Timeout {
				metrics.TrimTimeouts.Add(1)
			}
			log.Error("trim failed", slog.Any("error", err))
			out.Err = fmt.Errorf("trim %s: %w", key, err)
			return out
		}
	}

	if err := sink.Persist(ctx, key, dst); err != nil {
		metrics.UploadFailures.Add(1)
		log.Error("upload failed", slog.Any("error", err))
		out.Err = fmt.Errorf("upload %s: %w", key, err)
		return out
	}
	metrics.Uploads.Add(1)

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		log.Warn("remove cut failed", slog.Any("error", err))
	}
	out.OK = true
	log.Info("section stored", slog.Int("start", sec.StartTime), slog.Int("duration", sec.Duration()))
	return out
}
