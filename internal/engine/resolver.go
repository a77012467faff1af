package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// MetadataSource fetches downloader metadata for a video URL.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, videoURL string) (*VideoMetadata, error)
}

// CommentSource returns top-level comment text for a video, in relevance
// order, at most limit entries.
type CommentSource interface {
	FetchComments(ctx context.Context, videoID string, limit int) ([]string, error)
}

// Resolver derives the section list for a video: structured chapters,
// then description timestamps, then the first comment that looks like a
// table of contents. The first non-empty step wins.
type Resolver struct {
	meta      MetadataSource
	comments  CommentSource
	cap       int
	threshold int
	debugDir  string
}

// NewResolver builds a Resolver. comments may be nil, in which case the
// comment step yields nothing.
func NewResolver(cfg Config, meta MetadataSource, comments CommentSource) *Resolver {
	cfg = cfg.WithDefaults()
	return &Resolver{
		meta:      meta,
		comments:  comments,
		cap:       cfg.CommentCap,
		threshold: DefaultAnchorThreshold,
		debugDir:  cfg.CommentsDebugDir,
	}
}

// Resolve returns the sections for videoURL and the step that produced them.
// An empty result with a nil error means no source had timestamps.
func (r *Resolver) Resolve(ctx context.Context, videoURL string) ([]Section, SectionSource, error) {
	md, err := r.meta.FetchMetadata(ctx, videoURL)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("fetch metadata: %w", err)
	}

	if len(md.Chapters) > 0 {
		countSource(SourceChapters)
		return chapterSections(md.Chapters), SourceChapters, nil
	}

	if sections := ParseTimestamps(md.Description); len(sections) > 0 {
		countSource(SourceDescription)
		return sections, SourceDescription, nil
	}

	sections, src, err := r.fromComments(ctx, videoURL)
	if err != nil {
		return nil, SourceNone, err
	}
	countSource(src)
	return sections, src, nil
}

func (r *Resolver) fromComments(ctx context.Context, videoURL string) ([]Section, SectionSource, error) {
	id, err := VideoID(videoURL)
	if err != nil {
		return nil, SourceNone, &ResolutionError{URL: videoURL, Err: err}
	}
	if r.comments == nil {
		return []Section{}, SourceNone, nil
	}

	comments, err := r.comments.FetchComments(ctx, id, r.cap)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("fetch comments for %s: %w", id, err)
	}
	slog.Debug("comments fetched", slog.String("video_id", id), slog.Int("count", len(comments)))
	r.dumpCorpus(id, comments)

	for i, c := range comments {
		if CountAnchors(c) > r.threshold {
			slog.Info("timestamp comment found",
				slog.String("video_id", id),
				slog.Int("index", i),
				slog.String("preview", TruncateRunes(StripHTML(c), 120, "...")),
			)
			return ParseTimestamps(c), SourceComments, nil
		}
	}
	return []Section{}, SourceNone, nil
}

// dumpCorpus writes the comment corpus, blank-line separated, when a debug
// directory is configured. Failures are logged and otherwise ignored.
func (r *Resolver) dumpCorpus(videoID string, comments []string) {
	if r.debugDir == "" {
		return
	}
	path := filepath.Join(r.debugDir, videoID+"-comments.txt")
	if err := os.MkdirAll(r.debugDir, 0o755); err != nil {
		slog.Warn("comments dump: mkdir failed", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(path, []byte(strings.Join(comments, "\n\n")), 0o644); err != nil {
		slog.Warn("comments dump: write failed", slog.String("path", path), slog.Any("error", err))
	}
}

func chapterSections(chapters []Section) []Section {
	out := make([]Section, len(chapters))
	for i, ch := range chapters {
		out[i] = ch
		if out[i].Title == "" {
			out[i].Title = fmt.Sprintf("section_%d", i)
		}
	}
	return out
}
