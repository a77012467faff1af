package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Workspace is the per-video directory owned by one run.
type Workspace struct {
	Dir        string
	VideoPath  string // video mode download target
	SourcePath string // audio mode download target
	AudioPath  string // full mp3 that sections are cut from
	CutDir     string // per-section cuts
}

// NewWorkspace lays out <root>/<videoID>. Nothing is created until Ensure.
func NewWorkspace(root, videoID string) *Workspace {
	dir := filepath.Join(root, videoID)
	return &Workspace{
		Dir:        dir,
		VideoPath:  filepath.Join(dir, "video.mp4"),
		SourcePath: filepath.Join(dir, "audio.m4a"),
		AudioPath:  filepath.Join(dir, "audio"+DefaultClipExt),
		CutDir:     filepath.Join(dir, CutDirName),
	}
}

// Ensure creates the workspace directory.
func (w *Workspace) Ensure() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create workspace %s: %w", w.Dir, err)
	}
	return nil
}

// Cleanup deletes the full-media artifacts and the cut directory when it
// is empty. Cuts that failed to upload are kept.
func (w *Workspace) Cleanup() {
	for _, p := range []string{w.VideoPath, w.SourcePath, w.AudioPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("workspace cleanup failed", slog.String("path", p), slog.Any("error", err))
		}
	}
	_ = os.Remove(w.CutDir) // fails while cuts remain
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
