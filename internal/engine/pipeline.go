package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Acquisitions slower than this are logged.
const slowAcquire = 2 * time.Minute

// Acquirer fetches metadata and full media for a video URL.
type Acquirer interface {
	MetadataSource
	DownloadAudio(ctx context.Context, videoURL, dest string) error
	DownloadVideo(ctx context.Context, videoURL, dest string) error
}

// MediaTool is the ffmpeg-shaped capability the pipeline needs.
type MediaTool interface {
	Trimmer
	TranscodeToAudio(ctx context.Context, src, dst string) error
	ExtractAudioTrack(ctx context.Context, srcVideo, dstAudio string) error
}

// Referencer turns a stored key into a URL callers can fetch.
type Referencer interface {
	Reference(ctx context.Context, key string) (string, error)
}

// Pipeline runs the full split: acquire and resolve in parallel, then
// cut and persist every section.
type Pipeline struct {
	cfg      Config
	acq      Acquirer
	media    MediaTool
	resolver *Resolver
	batch    *BatchProcessor
	sink     Sink
	refs     Referencer
}

// NewPipeline wires the core. refs may be nil, leaving snippet URLs empty.
func NewPipeline(cfg Config, acq Acquirer, media MediaTool, comments CommentSource, sink Sink, refs Referencer) *Pipeline {
	cfg = cfg.WithDefaults()
	return &Pipeline{
		cfg:      cfg,
		acq:      acq,
		media:    media,
		resolver: NewResolver(cfg, acq, comments),
		batch:    NewBatchProcessor(cfg, media),
		sink:     sink,
		refs:     refs,
	}
}

// ProcessVideo downloads the audio for videoURL, resolves its sections and
// stores one clip per section. Full-media files are removed on every path.
// The returned result is non-nil whenever the video id was valid.
func (p *Pipeline) ProcessVideo(ctx context.Context, videoURL string) (*RunResult, error) {
	videoID, err := VideoID(videoURL)
	if err != nil {
		return nil, err
	}
	run := &RunResult{URL: videoURL, VideoID: videoID, Source: SourceNone}
	log := slog.With(slog.String("video_id", videoID))

	ws := NewWorkspace(p.cfg.StorageRoot, videoID)
	if err := ws.Ensure(); err != nil {
		return run, err
	}
	defer ws.Cleanup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return TrackOperation(gctx, "acquire", slowAcquire, func(ctx context.Context) error {
			return p.acquire(ctx, videoURL, ws)
		})
	})
	g.Go(func() error {
		sections, src, err := p.resolver.Resolve(gctx, videoURL)
		if err != nil {
			return err
		}
		run.Sections, run.Source = sections, src
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("run aborted", slog.Any("error", err))
		return run, err
	}
	log.Info("sections resolved", slog.String("source", string(run.Source)), slog.Int("count", len(run.Sections)))

	outcomes, err := p.batch.ProcessSections(ctx, run.Sections, ws.AudioPath, p.sink)
	run.Outcomes = outcomes
	if err != nil {
		return run, err
	}
	log.Info("run complete", slog.Int("uploaded", run.Uploaded()))
	return run, nil
}

// ListSnippets resolves the sections of videoURL and returns their storage
// references without processing anything.
func (p *Pipeline) ListSnippets(ctx context.Context, videoURL string) ([]Snippet, error) {
	sections, _, err := p.resolver.Resolve(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	return p.Attach(ctx, snippetsFor(sections, DefaultClipExt))
}

// Attach fills in the URL of every snippet.
func (p *Pipeline) Attach(ctx context.Context, snippets []Snippet) ([]Snippet, error) {
	if p.refs == nil {
		return snippets, nil
	}
	for i := range snippets {
		u, err := p.refs.Reference(ctx, snippets[i].Key)
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", snippets[i].Key, err)
		}
		snippets[i].URL = u
	}
	return snippets, nil
}

func (p *Pipeline) acquire(ctx context.Context, videoURL string, ws *Workspace) error {
	if p.cfg.Mode == ModeVideo {
		return p.acquireVideo(ctx, videoURL, ws)
	}
	if err := p.acq.DownloadAudio(ctx, videoURL, ws.SourcePath); err != nil {
		return err
	}
	if !fileExists(ws.SourcePath) {
		return &DownloadError{Err: fmt.Errorf("downloaded audio file does not exist: %s", ws.SourcePath)}
	}
	if err := p.media.TranscodeToAudio(ctx, ws.SourcePath, ws.AudioPath); err != nil {
		return err
	}
	if !fileExists(ws.AudioPath) {
		return &MediaToolError{Op: "transcode", Err: fmt.Errorf("converted file does not exist: %s", ws.AudioPath)}
	}
	return nil
}

// acquireVideo reuses a video or audio file left in the workspace.
func (p *Pipeline) acquireVideo(ctx context.Context, videoURL string, ws *Workspace) error {
	if fileExists(ws.VideoPath) {
		slog.Debug("video already downloaded", slog.String("path", ws.VideoPath))
	} else {
		if err := p.acq.DownloadVideo(ctx, videoURL, ws.VideoPath); err != nil {
			return err
		}
		if !fileExists(ws.VideoPath) {
			return &DownloadError{Err: fmt.Errorf("downloaded video file does not exist: %s", ws.VideoPath)}
		}
	}
	if fileExists(ws.AudioPath) {
		return nil
	}
	if err := p.media.ExtractAudioTrack(ctx, ws.VideoPath, ws.AudioPath); err != nil {
		return err
	}
	if !fileExists(ws.AudioPath) {
		return &MediaToolError{Op: "extract", Err: fmt.Errorf("converted file does not exist: %s", ws.AudioPath)}
	}
	return nil
}
