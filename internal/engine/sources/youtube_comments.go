package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/anatolykoptev/go_snippets/internal/engine"
	"golang.org/x/time/rate"
)

const ytDataAPIBase = "https://www.googleapis.com/youtube/v3"

// --- YouTube Data API v3 commentThreads types ---

type ytCommentThreadsResp struct {
	NextPageToken string            `json:"nextPageToken"`
	Items         []ytCommentThread `json:"items"`
}

type ytCommentThread struct {
	Snippet struct {
		TopLevelComment struct {
			Snippet struct {
				TextDisplay string `json:"textDisplay"`
			} `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

// CommentFetcher pages through commentThreads in relevance order.
type CommentFetcher struct {
	client   *http.Client
	baseURL  string
	keys     []string
	pageSize int
	limiter  *rate.Limiter
	retry    engine.RetryConfig
}

// NewCommentFetcher builds a fetcher from cfg. The fallback key is tried
// when a page fails with the primary key.
func NewCommentFetcher(cfg engine.Config) *CommentFetcher {
	cfg = cfg.WithDefaults()
	var keys []string
	for _, k := range []string{cfg.YouTubeAPIKey, cfg.YouTubeAPIKeyFallback} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return &CommentFetcher{
		client:   cfg.HTTPClient,
		baseURL:  ytDataAPIBase,
		keys:     keys,
		pageSize: cfg.CommentPageSize,
		limiter:  rate.NewLimiter(rate.Limit(cfg.CommentsPerSecond), 1),
		retry:    engine.DefaultRetryConfig,
	}
}

// FetchComments returns up to limit top-level comment texts for videoID.
// On a failed page it returns the comments gathered so far with the error.
func (f *CommentFetcher) FetchComments(ctx context.Context, videoID string, limit int) ([]string, error) {
	if len(f.keys) == 0 {
		return nil, &engine.CommentFetchError{Err: errors.New("no YouTube API key configured")}
	}

	var comments []string
	token := ""
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return comments, &engine.CommentFetchError{Err: err}
		}
		page, err := f.fetchPageWithFallback(ctx, videoID, token)
		if err != nil {
			return comments, err
		}
		engine.IncrCommentPages()

		for _, item := range page.Items {
			comments = append(comments, item.Snippet.TopLevelComment.Snippet.TextDisplay)
			if limit > 0 && len(comments) >= limit {
				return comments, nil
			}
		}
		slog.Debug("comments page", slog.String("video_id", videoID), slog.Int("total", len(comments)))

		token = page.NextPageToken
		if token == "" {
			return comments, nil
		}
	}
}

func (f *CommentFetcher) fetchPageWithFallback(ctx context.Context, videoID, token string) (*ytCommentThreadsResp, error) {
	var lastErr error
	for _, key := range f.keys {
		page, err := f.fetchPage(ctx, videoID, token, key)
		if err == nil {
			return page, nil
		}
		lastErr = err
		slog.Debug("youtube data API key failed, trying fallback", slog.Any("error", err))
	}
	return nil, lastErr
}

func (f *CommentFetcher) fetchPage(ctx context.Context, videoID, token, apiKey string) (*ytCommentThreadsResp, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("key", apiKey)
	params.Set("maxResults", strconv.Itoa(f.pageSize))
	params.Set("order", "relevance")
	if token != "" {
		params.Set("pageToken", token)
	}

	apiURL := f.baseURL + "/commentThreads?" + params.Encode()
	resp, err := engine.RetryHTTP(ctx, f.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return f.client.Do(req)
	})
	if err != nil {
		var se *engine.HTTPStatusError
		if errors.As(err, &se) {
			return nil, &engine.CommentFetchError{Status: se.StatusCode, Err: err}
		}
		return nil, &engine.CommentFetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &engine.CommentFetchError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("commentThreads: %s", string(body)),
		}
	}

	var page ytCommentThreadsResp
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &engine.CommentFetchError{Status: resp.StatusCode, Err: fmt.Errorf("decode commentThreads: %w", err)}
	}
	return &page, nil
}
