// go_snippets splits YouTube videos into per-section mp3 clips.
//
// Sections come from chapters, description timestamps or a timestamp
// comment. Clips go to S3. Serves a REST API and an MCP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_snippets/internal/engine"
	"github.com/anatolykoptev/go_snippets/internal/engine/journal"
	"github.com/anatolykoptev/go_snippets/internal/engine/media"
	"github.com/anatolykoptev/go_snippets/internal/engine/sources"
	"github.com/anatolykoptev/go_snippets/internal/engine/storage"
	"github.com/anatolykoptev/go_snippets/internal/jobserver"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}
	initLogger(env.Str("LOG_LEVEL", "INFO"), env.Str("LOG_FORMAT", "text"))

	port := env.Str("PORT", "3001")
	mcpPort := env.Str("MCP_PORT", "8891")
	cfg := loadConfig()

	slog.Info("starting go_snippets",
		slog.String("port", port),
		slog.String("mcp_port", mcpPort),
		slog.String("mode", cfg.Mode),
		slog.Int("batch_size", cfg.BatchSize),
	)

	ctx := context.Background()
	runner, objects, closeJournal := buildRunner(ctx, cfg)
	defer closeJournal()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           jobserver.NewRouter(runner, objects),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("rest api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("rest api failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_snippets",
		Version: version,
	}, nil)
	jobserver.RegisterTools(server, runner)
	slog.Info("tools registered", slog.Int("count", 2))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_snippets",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("rest api shutdown", slog.Any("error", err))
	}
}

func initLogger(level, format string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler).With("service", "go_snippets"))
}

func loadConfig() engine.Config {
	secret := env.Str("S3_ACCESS_KEY", "")
	if secret == "" {
		secret = env.Str("AWS_SECRET_ACCESS_KEY", "")
	}
	c := engine.Config{
		StorageRoot: env.Str("STORAGE_ROOT", engine.DefaultStorageRoot),
		Mode:        env.Str("ACQUISITION_MODE", engine.ModeAudio),
		BatchSize:   env.Int("BATCH_SIZE", engine.DefaultBatchSize),
		TrimTimeout: env.Duration("TRIM_TIMEOUT", engine.DefaultTrimTimeout),
		YTDLPPath:   env.Str("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:  env.Str("FFMPEG_PATH", "ffmpeg"),

		YouTubeAPIKey:         env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIKeyFallback: env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		CommentPageSize:       env.Int("COMMENT_PAGE_SIZE", engine.DefaultCommentPageSize),
		CommentCap:            env.Int("COMMENT_CAP", engine.DefaultCommentCap),
		CommentsPerSecond:     env.Float("COMMENTS_RPS", engine.DefaultCommentsPerSec),
		CommentsDebugDir:      env.Str("COMMENTS_DEBUG_DIR", ""),

		Bucket:          env.Str("BUCKET_NAME", ""),
		Region:          env.Str("AWS_REGION", "ap-northeast-1"),
		AccessKeyID:     env.Str("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: secret,
		S3Endpoint:      env.Str("S3_ENDPOINT", ""),
		KeyPrefix:       env.Str("KEY_PREFIX", ""),
		SignedURLTTL:    env.Duration("SIGNED_URL_TTL", 0),
		PublicURLBase:   env.Str("PUBLIC_URL_BASE", ""),

		RedisURL:    env.Str("REDIS_URL", ""),
		LockTTL:     env.Duration("LOCK_TTL", engine.DefaultLockTTL),
		JournalPath: env.Str("JOURNAL_PATH", ""),
		DatabaseURL: env.Str("DATABASE_URL", ""),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	if c.Bucket == "" {
		slog.Warn("BUCKET_NAME is not set, uploads will fail")
	}
	return c.WithDefaults()
}

// buildRunner wires the adapters into a runner. The returned func closes
// the journal.
func buildRunner(ctx context.Context, cfg engine.Config) (*jobserver.Runner, jobserver.ObjectSource, func()) {
	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		slog.Error("s3 client init failed", slog.Any("error", err))
		os.Exit(1)
	}
	bucket := storage.NewBucket(store, cfg)
	slog.Info("object storage ready",
		slog.String("bucket", bucket.Name()),
		slog.String("region", cfg.Region),
		slog.Bool("signed_urls", cfg.SignedURLTTL > 0),
	)

	ytdlp := sources.NewYTDLP(cfg.YTDLPPath)
	ffmpeg := media.New(cfg.FFmpegPath)
	var comments engine.CommentSource
	if cfg.YouTubeAPIKey != "" || cfg.YouTubeAPIKeyFallback != "" {
		comments = sources.NewCommentFetcher(cfg)
	} else {
		slog.Warn("no YouTube API key, comment fallback disabled")
	}

	pipeline := engine.NewPipeline(cfg, ytdlp, ffmpeg, comments, bucket, bucket)
	locker := engine.NewLocker(cfg.RedisURL, cfg.LockTTL)

	jr, err := journal.Open(ctx, cfg.JournalPath, cfg.DatabaseURL)
	if err != nil {
		slog.Warn("journal init failed, runs are not recorded", slog.Any("error", err))
		jr = journal.Nop{}
	}

	closeJournal := func() {
		if err := jr.Close(); err != nil {
			slog.Warn("journal close", slog.Any("error", err))
		}
	}
	return jobserver.NewRunner(pipeline, locker, jr), bucket, closeJournal
}
