// Package media runs ffmpeg to cut and convert local audio files.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/anatolykoptev/go_snippets/internal/engine"
)

// ffmpeg flags and codec settings.
const (
	FFmpegCommand = "ffmpeg"

	flagInput       = "-i"
	flagSeek        = "-ss"
	flagDuration    = "-t"
	flagOverwrite   = "-y"
	flagNoStdin     = "-nostdin"
	flagLogLevel    = "-loglevel"
	flagAudioCodec  = "-acodec"
	flagNoVideo     = "-vn"
	flagQuality     = "-q:a"
	flagMap         = "-map"
	logLevelError   = "error"
	codecCopy       = "copy"
	codecMP3        = "libmp3lame"
	transcodeVBR    = "2"
	extractVBR      = "0"
	mapAudioStreams = "a"
)

// Bytes of stderr kept in a MediaToolError.
const stderrTail = 1024

// Killed processes get this long to release their pipes.
const waitDelay = 2 * time.Second

// FFmpeg is the media transform adapter.
type FFmpeg struct {
	binary string
}

// New returns an adapter for binary, or ffmpeg from PATH when empty.
func New(binary string) *FFmpeg {
	if binary == "" {
		binary = FFmpegCommand
	}
	return &FFmpeg{binary: binary}
}

func baseArgs() []string {
	return []string{flagNoStdin, flagLogLevel, logLevelError, flagOverwrite}
}

// BuildTrimArgs returns the arguments for a stream-copy cut.
func BuildTrimArgs(src, dst string, start, duration int) []string {
	return append(baseArgs(),
		flagInput, src,
		flagSeek, strconv.Itoa(start),
		flagDuration, strconv.Itoa(duration),
		flagAudioCodec, codecCopy,
		dst,
	)
}

// BuildTranscodeArgs returns the arguments for converting any audio to mp3.
func BuildTranscodeArgs(src, dst string) []string {
	return append(baseArgs(),
		flagInput, src,
		flagNoVideo,
		flagAudioCodec, codecMP3,
		flagQuality, transcodeVBR,
		dst,
	)
}

// BuildExtractArgs returns the arguments for pulling the audio track out of a video.
func BuildExtractArgs(src, dst string) []string {
	return append(baseArgs(),
		flagInput, src,
		flagQuality, extractVBR,
		flagMap, mapAudioStreams,
		dst,
	)
}

// Trim cuts [start, start+duration) from src into dst without re-encoding.
// A timeout of zero means no deadline beyond ctx.
func (f *FFmpeg) Trim(ctx context.Context, src, dst string, start, duration int, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return f.run(ctx, "trim", dst, BuildTrimArgs(src, dst, start, duration))
}

// TranscodeToAudio converts src into an mp3 at dst.
func (f *FFmpeg) TranscodeToAudio(ctx context.Context, src, dst string) error {
	return f.run(ctx, "transcode", dst, BuildTranscodeArgs(src, dst))
}

// ExtractAudioTrack writes the audio stream of srcVideo to dstAudio.
func (f *FFmpeg) ExtractAudioTrack(ctx context.Context, srcVideo, dstAudio string) error {
	return f.run(ctx, "extract", dstAudio, BuildExtractArgs(srcVideo, dstAudio))
}

// run executes ffmpeg and removes dst on any failure so a partial file is
// never mistaken for a finished cut.
func (f *FFmpeg) run(ctx context.Context, op, dst string, args []string) error {
	cmd := exec.CommandContext(ctx, f.binary, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		slog.Debug("ffmpeg done", slog.String("op", op), slog.String("dest", dst), slog.Duration("elapsed", time.Since(start)))
		return nil
	}

	if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
		slog.Warn("ffmpeg: remove partial output failed", slog.String("dest", dst), slog.Any("error", rmErr))
	}

	mte := &engine.MediaToolError{Op: op, Stderr: engine.Tail(stderr.String(), stderrTail), Err: err}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		mte.Timeout = true
		mte.Err = fmt.Errorf("%w after %s", context.DeadlineExceeded, time.Since(start).Round(time.Millisecond))
	}
	return mte
}
