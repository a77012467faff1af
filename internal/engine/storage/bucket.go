package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/anatolykoptev/go_snippets/internal/engine"
)

// ObjectStore is the subset of S3Store the bucket needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader) error
	GetStream(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Bucket binds an ObjectStore to one bucket and key prefix. It is the sink
// the batch processor persists clips through and the source of snippet URLs.
type Bucket struct {
	store      ObjectStore
	name       string
	prefix     string
	region     string
	signedTTL  time.Duration
	publicBase string
}

// NewBucket binds store to cfg's bucket settings.
func NewBucket(store ObjectStore, cfg engine.Config) *Bucket {
	return &Bucket{
		store:      store,
		name:       cfg.Bucket,
		prefix:     strings.Trim(cfg.KeyPrefix, "/"),
		region:     cfg.Region,
		signedTTL:  cfg.SignedURLTTL,
		publicBase: strings.TrimRight(cfg.PublicURLBase, "/"),
	}
}

// Name returns the configured bucket name.
func (b *Bucket) Name() string { return b.name }

func (b *Bucket) objectKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}

// Persist uploads the clip at localPath under key.
func (b *Bucket) Persist(ctx context.Context, key, localPath string) error {
	objKey := b.objectKey(key)
	if b.name == "" {
		return &engine.StorageError{Op: "put", Key: objKey, Err: engine.ErrBucketNotConfigured}
	}
	f, err := os.Open(localPath)
	if err != nil {
		return &engine.StorageError{Op: "put", Bucket: b.name, Key: objKey, Err: err}
	}
	defer f.Close()

	if err := b.store.Put(ctx, b.name, objKey, f); err != nil {
		return err
	}
	slog.Debug("uploaded", slog.String("bucket", b.name), slog.String("key", objKey))
	return nil
}

// Open streams a stored clip by its unprefixed key.
func (b *Bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if b.name == "" {
		return nil, &engine.StorageError{Op: "get", Key: key, Err: engine.ErrBucketNotConfigured}
	}
	return b.store.GetStream(ctx, b.name, b.objectKey(key))
}

// Reference returns a presigned URL when a TTL is configured, or the public
// object URL otherwise.
func (b *Bucket) Reference(ctx context.Context, key string) (string, error) {
	objKey := b.objectKey(key)
	if b.signedTTL > 0 {
		return b.store.SignedURL(ctx, b.name, objKey, b.signedTTL)
	}
	return b.PublicURL(objKey), nil
}

// PublicURL builds the virtual-hosted URL for objKey.
func (b *Bucket) PublicURL(objKey string) string {
	if b.publicBase != "" {
		return b.publicBase + "/" + objKey
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.name, b.region, objKey)
}

// KeyFromURL recovers the unprefixed key from a URL returned by Reference.
func (b *Bucket) KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse snippet url: %w", err)
	}
	p := strings.TrimPrefix(u.Path, "/")
	if b.publicBase != "" {
		if base, err := url.Parse(b.publicBase); err == nil {
			p = strings.TrimPrefix(p, strings.TrimPrefix(base.Path, "/"))
			p = strings.TrimPrefix(p, "/")
		}
	}
	// path-style endpoints put the bucket first
	p = strings.TrimPrefix(p, b.name+"/")
	if b.prefix != "" {
		p = strings.TrimPrefix(p, b.prefix+"/")
	}
	if p == "" || path.Base(p) != p {
		return "", fmt.Errorf("no object key in %q", raw)
	}
	return p, nil
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
