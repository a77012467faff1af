package jobserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_snippets/internal/engine"
)

type fakeProcessor struct {
	mu      sync.Mutex
	calls   int
	result  *engine.RunResult
	err     error
	block   chan struct{} // when set, ProcessVideo waits on it
	started chan struct{}
}

func (f *fakeProcessor) ProcessVideo(ctx context.Context, videoURL string) (*engine.RunResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

func (f *fakeProcessor) ListSnippets(ctx context.Context, videoURL string) ([]engine.Snippet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.Attach(ctx, f.result.Snippets(engine.DefaultClipExt))
}

func (f *fakeProcessor) Attach(_ context.Context, snippets []engine.Snippet) ([]engine.Snippet, error) {
	for i := range snippets {
		snippets[i].URL = "https://clips.s3.ap-northeast-1.amazonaws.com/" + snippets[i].Key
	}
	return snippets, nil
}

func sampleResult() *engine.RunResult {
	return &engine.RunResult{
		VideoID: "abc123",
		Source:  engine.SourceChapters,
		Sections: []engine.Section{
			{StartTime: 0, EndTime: 60, Title: "Intro"},
			{StartTime: 60, EndTime: 120, Title: "Part Two!"},
		},
		Outcomes: []engine.Outcome{{Key: "intro.mp3", OK: true}, {Key: "part_two_.mp3", OK: true}},
	}
}

type memObjects map[string]string

func (m memObjects) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m[key]
	if !ok {
		return nil, &engine.StorageError{Op: "get", Key: key, Err: errors.New("NoSuchKey")}
	}
	return io.NopCloser(bytes.NewReader([]byte(data))), nil
}

func (m memObjects) KeyFromURL(raw string) (string, error) {
	_, key, ok := strings.Cut(raw, ".com/")
	if !ok || key == "" {
		return "", errors.New("no key in url")
	}
	return key, nil
}
