package jobserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/anatolykoptev/go_snippets/internal/engine"
	"github.com/anatolykoptev/go_snippets/internal/engine/journal"
	"github.com/gin-gonic/gin"
)

const (
	msgMissingURL      = "Missing URL parameter."
	msgProcessFailed   = "Error processing video or fetching snippets: "
	msgListFailed      = "Error fetching snippets: "
	msgNoSnippets      = "No snippets provided."
	msgArchiveFailed   = "Error preparing download: "
	archiveName        = "snippets.zip"
	archiveContentType = "application/zip"
)

type snippetsResponse struct {
	RunID    string           `json:"run_id,omitempty"`
	Source   string           `json:"source,omitempty"`
	Uploaded int              `json:"uploaded,omitempty"`
	Snippets []engine.Snippet `json:"snippets"`
}

type downloadRequest struct {
	Snippets []ArchiveEntry `json:"snippets"`
}

// NewRouter builds the REST surface.
func NewRouter(runner *Runner, objects ObjectSource) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, engine.FormatMetrics())
	})

	r.GET("/process-and-fetch-snippets", func(c *gin.Context) {
		videoURL := c.Query("url")
		if videoURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingURL})
			return
		}
		report, err := runner.Process(c.Request.Context(), videoURL)
		if err != nil {
			slog.Error("process failed", slog.String("url", videoURL), slog.Any("error", err))
			c.JSON(statusFor(err), gin.H{"error": msgProcessFailed + err.Error()})
			return
		}
		c.JSON(http.StatusOK, snippetsResponse{
			RunID:    report.RunID,
			Source:   report.Source,
			Uploaded: report.Uploaded,
			Snippets: report.Snippets,
		})
	})

	r.GET("/snippets", func(c *gin.Context) {
		videoURL := c.Query("url")
		if videoURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingURL})
			return
		}
		snippets, err := runner.List(c.Request.Context(), videoURL)
		if err != nil {
			slog.Error("list snippets failed", slog.String("url", videoURL), slog.Any("error", err))
			c.JSON(statusFor(err), gin.H{"error": msgListFailed + err.Error()})
			return
		}
		c.JSON(http.StatusOK, snippetsResponse{Snippets: snippets})
	})

	r.POST("/download-all", func(c *gin.Context) {
		var req downloadRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.Snippets) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgNoSnippets})
			return
		}
		if err := resolveKeys(req.Snippets, objects); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgArchiveFailed + err.Error()})
			return
		}

		c.Header("Content-Type", archiveContentType)
		c.Header("Content-Disposition", `attachment; filename="`+archiveName+`"`)
		c.Status(http.StatusOK)
		if err := WriteArchive(c.Request.Context(), c.Writer, req.Snippets, objects); err != nil {
			// headers are already sent; the client sees a truncated archive
			slog.Error("archive failed", slog.Int("entries", len(req.Snippets)), slog.Any("error", err))
			c.Abort()
		}
	})

	r.GET("/runs", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		runs, err := runner.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if runs == nil {
			runs = []journal.Run{}
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	})

	return r
}

func statusFor(err error) int {
	if errors.Is(err, engine.ErrRunInProgress) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
