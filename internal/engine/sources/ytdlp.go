package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_snippets/internal/engine"
	"github.com/lrstanley/go-ytdlp"
)

// Format selectors passed to yt-dlp.
const (
	formatBestAudio = "bestaudio"
	formatMP4       = "best[ext=mp4]/best"
)

const progressEvery = 2 * time.Second

// YTDLP is the acquisition adapter backed by the yt-dlp binary.
type YTDLP struct {
	executable string
}

// NewYTDLP returns an adapter using executable, or yt-dlp from PATH when empty.
func NewYTDLP(executable string) *YTDLP {
	return &YTDLP{executable: executable}
}

func (y *YTDLP) command() *ytdlp.Command {
	cmd := ytdlp.New()
	if y.executable != "" {
		cmd.SetExecutable(y.executable)
	}
	return cmd
}

// ytdlpInfo is the part of --dump-single-json output the resolver needs.
type ytdlpInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Chapters    []struct {
		StartTime float64 `json:"start_time"`
		EndTime   float64 `json:"end_time"`
		Title     string  `json:"title"`
	} `json:"chapters"`
}

// FetchMetadata reads chapters and description without downloading media.
func (y *YTDLP) FetchMetadata(ctx context.Context, videoURL string) (*engine.VideoMetadata, error) {
	res, err := y.command().
		DumpSingleJSON().
		NoPlaylist().
		NoWarnings().
		Run(ctx, videoURL)
	if err != nil {
		return nil, downloadError(res, err)
	}
	md, err := decodeMetadata([]byte(res.Stdout))
	if err != nil {
		return nil, &engine.DownloadError{Err: err}
	}
	return md, nil
}

func decodeMetadata(data []byte) (*engine.VideoMetadata, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp metadata: %w", err)
	}
	md := &engine.VideoMetadata{
		ID:          info.ID,
		Title:       info.Title,
		Description: info.Description,
	}
	for _, ch := range info.Chapters {
		md.Chapters = append(md.Chapters, engine.Section{
			StartTime: int(ch.StartTime),
			EndTime:   int(ch.EndTime),
			Title:     ch.Title,
		})
	}
	return md, nil
}

// DownloadAudio fetches the best audio-only stream to dest.
func (y *YTDLP) DownloadAudio(ctx context.Context, videoURL, dest string) error {
	return y.download(ctx, videoURL, dest, formatBestAudio)
}

// DownloadVideo fetches an mp4 rendition to dest.
func (y *YTDLP) DownloadVideo(ctx context.Context, videoURL, dest string) error {
	return y.download(ctx, videoURL, dest, formatMP4)
}

func (y *YTDLP) download(ctx context.Context, videoURL, dest, format string) error {
	dl := y.command().
		Format(format).
		NoPlaylist().
		ForceOverwrites().
		Output(dest)

	log := slog.With(slog.String("url", videoURL), slog.String("dest", dest))
	dl.ProgressFunc(progressEvery, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes <= 0 {
			return
		}
		percent := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
		log.Debug("download progress",
			slog.Int("percent", int(percent)),
			slog.Duration("eta", update.ETA()),
		)
	})

	start := time.Now()
	res, err := dl.Run(ctx, videoURL)
	if err != nil {
		return downloadError(res, err)
	}
	log.Info("download complete", slog.String("format", format), slog.Duration("elapsed", time.Since(start)))
	return nil
}

func downloadError(res *ytdlp.Result, err error) error {
	de := &engine.DownloadError{Err: err}
	if res != nil {
		de.ExitCode = res.ExitCode
		if res.Stderr != "" {
			de.Err = fmt.Errorf("%w: %s", err, engine.Tail(res.Stderr, 512))
		}
	}
	return de
}
