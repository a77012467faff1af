package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVideoID is returned when a URL carries no "v" query parameter.
	ErrInvalidVideoID = errors.New("invalid video id")
	// ErrBucketNotConfigured is returned by sinks with an empty destination bucket.
	ErrBucketNotConfigured = errors.New("bucket name is not defined")
	// ErrRunInProgress is returned when another run already holds the video lock.
	ErrRunInProgress = errors.New("a run for this video is already in progress")
)

// DownloadError reports an acquisition failure: a non-zero downloader exit
// code or a transport error (ExitCode 0).
type DownloadError struct {
	ExitCode int
	Err      error
}

func (e *DownloadError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("download failed (exit %d): %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// MediaToolError reports a trim or transcode failure.
type MediaToolError struct {
	Op      string
	Stderr  string
	Timeout bool
	Err     error
}

func (e *MediaToolError) Error() string {
	msg := e.Op + " failed"
	if e.Timeout {
		msg = e.Op + " timed out"
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", msg, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *MediaToolError) Unwrap() error { return e.Err }

// CommentFetchError reports a failed comments page. Status is 0 for transport errors.
type CommentFetchError struct {
	Status int
	Err    error
}

func (e *CommentFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("comment fetch failed (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("comment fetch failed: %v", e.Err)
}

func (e *CommentFetchError) Unwrap() error { return e.Err }

// StorageError reports an object-store put or get failure.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ResolutionError reports that no sections could be derived because an
// id-dependent step failed.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve sections for %q: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// BatchError reports a batch whose aggregate wait failed.
// Err is the first section error observed in that batch.
type BatchError struct {
	Batch  int
	Failed int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d: %d section(s) failed: %v", e.Batch, e.Failed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
