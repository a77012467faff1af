package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anatolykoptev/go_snippets/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, bucket, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memStore) GetStream(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, &engine.StorageError{Op: "get", Bucket: bucket, Key: key, Err: errors.New("NoSuchKey")}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) SignedURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + bucket + "/" + key + "?ttl=" + ttl.String(), nil
}

func writeClip(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestPersistAndOpen(t *testing.T) {
	store := newMemStore()
	b := NewBucket(store, engine.Config{Bucket: "clips", KeyPrefix: "/shows/"})

	require.NoError(t, b.Persist(context.Background(), "intro.mp3", writeClip(t, "audio")))
	assert.Equal(t, []byte("audio"), store.objects["clips/shows/intro.mp3"])

	rc, err := b.Open(context.Background(), "intro.mp3")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "audio", string(data))
}

func TestPersistWithoutBucket(t *testing.T) {
	b := NewBucket(newMemStore(), engine.Config{})
	err := b.Persist(context.Background(), "intro.mp3", writeClip(t, "x"))

	var se *engine.StorageError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, engine.ErrBucketNotConfigured)
	assert.Equal(t, "intro.mp3", se.Key)
}

func TestPersistMissingFile(t *testing.T) {
	b := NewBucket(newMemStore(), engine.Config{Bucket: "clips"})
	err := b.Persist(context.Background(), "gone.mp3", filepath.Join(t.TempDir(), "gone.mp3"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReference(t *testing.T) {
	ctx := context.Background()

	public := NewBucket(newMemStore(), engine.Config{Bucket: "clips", Region: "ap-northeast-1"})
	u, err := public.Reference(ctx, "intro.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://clips.s3.ap-northeast-1.amazonaws.com/intro.mp3", u)

	cdn := NewBucket(newMemStore(), engine.Config{Bucket: "clips", PublicURLBase: "https://cdn.example/audio/", KeyPrefix: "v1"})
	u, err = cdn.Reference(ctx, "intro.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/audio/v1/intro.mp3", u)

	signed := NewBucket(newMemStore(), engine.Config{Bucket: "clips", SignedURLTTL: time.Hour})
	u, err = signed.Reference(ctx, "intro.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/clips/intro.mp3?ttl=1h0m0s", u)
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     engine.Config
		url     string
		want    string
		wantErr bool
	}{
		{"virtual hosted", engine.Config{Bucket: "clips"}, "https://clips.s3.ap-northeast-1.amazonaws.com/intro.mp3", "intro.mp3", false},
		{"prefixed", engine.Config{Bucket: "clips", KeyPrefix: "v1"}, "https://clips.s3.us-east-1.amazonaws.com/v1/intro.mp3", "intro.mp3", false},
		{"signed query ignored", engine.Config{Bucket: "clips"}, "https://clips.s3.amazonaws.com/a_b.mp3?X-Amz-Signature=abc", "a_b.mp3", false},
		{"path style", engine.Config{Bucket: "clips"}, "http://localhost:9000/clips/intro.mp3", "intro.mp3", false},
		{"public base", engine.Config{Bucket: "clips", PublicURLBase: "https://cdn.example/audio"}, "https://cdn.example/audio/intro.mp3", "intro.mp3", false},
		{"no key", engine.Config{Bucket: "clips"}, "https://clips.s3.amazonaws.com/", "", true},
		{"nested", engine.Config{Bucket: "clips"}, "https://clips.s3.amazonaws.com/a/b.mp3", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewBucket(newMemStore(), tt.cfg).KeyFromURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", contentType("a.MP3"))
	assert.Equal(t, "audio/mp4", contentType("a.m4a"))
	assert.Equal(t, "application/octet-stream", contentType("a"))
}
