package jobserver

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/anatolykoptev/go_snippets/internal/engine"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ObjectSource opens stored clips for the bulk download.
type ObjectSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	KeyFromURL(raw string) (string, error)
}

// ArchiveEntry is one requested clip. Key wins over URL when both are set.
type ArchiveEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Key   string `json:"key,omitempty"`
}

// resolveKeys fills in missing keys from URLs.
func resolveKeys(entries []ArchiveEntry, src ObjectSource) error {
	for i := range entries {
		if entries[i].Key != "" {
			continue
		}
		key, err := src.KeyFromURL(entries[i].URL)
		if err != nil {
			return err
		}
		entries[i].Key = key
	}
	return nil
}

// entryName returns a flat "<title>.mp3" name safe to extract.
func entryName(e ArchiveEntry) string {
	name := path.Base(strings.ReplaceAll(e.Title, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		name = strings.TrimSuffix(e.Key, path.Ext(e.Key))
	}
	return name + engine.DefaultClipExt
}

// WriteArchive streams every entry into a zip written to w. Entries must
// already carry keys.
func WriteArchive(ctx context.Context, w io.Writer, entries []ArchiveEntry, src ObjectSource) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addEntry(ctx, zw, e, src); err != nil {
			return err
		}
	}
	return zw.Close()
}

func addEntry(ctx context.Context, zw *zip.Writer, e ArchiveEntry, src ObjectSource) error {
	rc, err := src.Open(ctx, e.Key)
	if err != nil {
		return err
	}
	defer rc.Close()

	fw, err := zw.Create(entryName(e))
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", e.Key, err)
	}
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("copy %s: %w", e.Key, err)
	}
	return nil
}
