package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

type fakeMeta struct {
	md    *VideoMetadata
	err   error
	calls int
}

func (f *fakeMeta) FetchMetadata(ctx context.Context, videoURL string) (*VideoMetadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.md, nil
}

type fakeComments struct {
	comments []string
	err      error
	calls    int
	gotID    string
	gotLimit int
}

func (f *fakeComments) FetchComments(ctx context.Context, videoID string, limit int) ([]string, error) {
	f.calls++
	f.gotID, f.gotLimit = videoID, limit
	return f.comments, f.err
}

// fakeMedia writes a small file for every trim and records the event order.
type fakeMedia struct {
	mu       sync.Mutex
	events   []string
	inflight int
	peak     int
	delay    time.Duration
	delayFor map[int]time.Duration // by section start, overrides delay
	failKey  map[string]error
	trims    int

	transcodeErr error
	extractErr   error
}

func (f *fakeMedia) Trim(ctx context.Context, src, dst string, start, duration int, timeout time.Duration) error {
	f.mu.Lock()
	f.trims++
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	f.events = append(f.events, "start "+dst)
	f.mu.Unlock()

	delay := f.delay
	if d, ok := f.delayFor[start]; ok {
		delay = d
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inflight--
	f.events = append(f.events, "end "+dst)
	err := f.failKey[dst]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(fmt.Sprintf("%d+%d", start, duration)), 0o644)
}

func (f *fakeMedia) TranscodeToAudio(ctx context.Context, src, dst string) error {
	if f.transcodeErr != nil {
		return f.transcodeErr
	}
	return os.WriteFile(dst, []byte("mp3"), 0o644)
}

func (f *fakeMedia) ExtractAudioTrack(ctx context.Context, src, dst string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(dst, []byte("mp3"), 0o644)
}

// fakeSink records persisted keys and their content.
type fakeSink struct {
	mu      sync.Mutex
	stored  map[string]string
	failKey string
	delay   time.Duration
}

func newFakeSink() *fakeSink { return &fakeSink{stored: map[string]string{}} }

func (s *fakeSink) Persist(ctx context.Context, key, localPath string) error {
	if key == s.failKey {
		return &StorageError{Op: "put", Key: key, Err: errors.New("upload refused")}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.stored[key] = string(data)
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) Reference(ctx context.Context, key string) (string, error) {
	return "https://bucket.example/" + key, nil
}

// fakeAcquirer writes placeholder media files.
type fakeAcquirer struct {
	fakeMeta
	downloadErr error
	audioCalls  int
	videoCalls  int
	skipWrite   bool
}

func (f *fakeAcquirer) DownloadAudio(ctx context.Context, videoURL, dest string) error {
	f.audioCalls++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if f.skipWrite {
		return nil
	}
	return os.WriteFile(dest, []byte("m4a"), 0o644)
}

func (f *fakeAcquirer) DownloadVideo(ctx context.Context, videoURL, dest string) error {
	f.videoCalls++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return os.WriteFile(dest, []byte("mp4"), 0o644)
}
