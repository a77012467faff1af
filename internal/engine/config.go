package engine

import (
	"net/http"
	"time"
)

// Acquisition modes.
const (
	ModeAudio = "audio" // download bestaudio, transcode to mp3
	ModeVideo = "video" // download mp4, extract the audio track
)

// Defaults applied by Config.withDefaults.
const (
	DefaultBatchSize       = 16
	DefaultTrimTimeout     = 300 * time.Second
	DefaultCommentPageSize = 100
	DefaultCommentCap      = 3000
	DefaultTailSeconds     = 3600
	DefaultStorageRoot     = "storage"
	DefaultClipExt         = ".mp3"
	DefaultLockTTL         = 2 * time.Hour
	DefaultCommentsPerSec  = 5.0
	DefaultAnchorThreshold = 3
)

// Config holds all engine configuration, injected from main.
type Config struct {
	StorageRoot string
	Mode        string
	BatchSize   int
	TrimTimeout time.Duration
	YTDLPPath   string
	FFmpegPath  string

	YouTubeAPIKey         string
	YouTubeAPIKeyFallback string
	CommentPageSize       int
	CommentCap            int
	CommentsPerSecond     float64
	CommentsDebugDir      string // empty disables the corpus dump

	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Endpoint      string // non-empty switches to path-style addressing
	KeyPrefix       string
	SignedURLTTL    time.Duration // 0 = public URLs
	PublicURLBase   string

	RedisURL    string
	LockTTL     time.Duration
	JournalPath string
	DatabaseURL string

	HTTPClient *http.Client
}

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.StorageRoot == "" {
		c.StorageRoot = DefaultStorageRoot
	}
	if c.Mode != ModeVideo {
		c.Mode = ModeAudio
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.TrimTimeout <= 0 {
		c.TrimTimeout = DefaultTrimTimeout
	}
	if c.CommentPageSize <= 0 {
		c.CommentPageSize = DefaultCommentPageSize
	}
	if c.CommentCap <= 0 {
		c.CommentCap = DefaultCommentCap
	}
	if c.CommentsPerSecond <= 0 {
		c.CommentsPerSecond = DefaultCommentsPerSec
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}
