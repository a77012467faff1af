package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const watchURL = "https://www.youtube.com/watch?v=abc123"

func tocComment() string {
	var b strings.Builder
	for i, title := range []string{"Intro", "First", "Second", "Third"} {
		b.WriteString(`<a href="https://www.youtube.com/watch?v=abc123&amp;t=` + string(rune('0'+i)) + `">`)
		b.WriteString("0:0" + string(rune('0'+i)) + "</a> " + title + "<br>")
	}
	return b.String()
}

func TestResolveChapters(t *testing.T) {
	chapters := []Section{
		{StartTime: 0, EndTime: 61, Title: "Opening"},
		{StartTime: 61, EndTime: 61, Title: ""},
	}
	meta := &fakeMeta{md: &VideoMetadata{Chapters: chapters, Description: "0:00 ignored"}}
	comments := &fakeComments{}
	r := NewResolver(Config{}, meta, comments)

	got, src, err := r.Resolve(context.Background(), watchURL)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Section{
		{StartTime: 0, EndTime: 61, Title: "Opening"},
		{StartTime: 61, EndTime: 61, Title: "section_1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sections = %+v, want %+v", got, want)
	}
	if src != SourceChapters {
		t.Errorf("source = %q", src)
	}
	if comments.calls != 0 {
		t.Errorf("comments fetched %d times, want 0", comments.calls)
	}
	if chapters[1].Title != "" {
		t.Error("chapter input was mutated")
	}
}

func TestResolveDescription(t *testing.T) {
	meta := &fakeMeta{md: &VideoMetadata{Description: "0:00 A\n2:00 B"}}
	comments := &fakeComments{comments: []string{tocComment()}}
	r := NewResolver(Config{}, meta, comments)

	got, src, err := r.Resolve(context.Background(), watchURL)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if src != SourceDescription || len(got) != 2 || got[1].Title != "B" {
		t.Errorf("got %q %+v", src, got)
	}
	if comments.calls != 0 {
		t.Errorf("comments fetched %d times, want 0", comments.calls)
	}
}

func TestResolveComments(t *testing.T) {
	meta := &fakeMeta{md: &VideoMetadata{Description: "no timestamps"}}
	comments := &fakeComments{comments: []string{
		"great video",
		`<a href="x">0:10</a> only one link`,
		tocComment(),
		`<a href="y">9:00</a><a href="y">9:01</a><a href="y">9:02</a><a href="y">9:03</a> later`,
	}}
	dir := t.TempDir()
	r := NewResolver(Config{CommentCap: 500, CommentsDebugDir: dir}, meta, comments)

	got, src, err := r.Resolve(context.Background(), watchURL)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if src != SourceComments {
		t.Fatalf("source = %q", src)
	}
	if comments.gotID != "abc123" || comments.gotLimit != 500 {
		t.Errorf("fetch called with %q/%d", comments.gotID, comments.gotLimit)
	}
	titles := make([]string, len(got))
	for i, s := range got {
		titles[i] = s.Title
	}
	if want := []string{"Intro", "First", "Second", "Third"}; !reflect.DeepEqual(titles, want) {
		t.Errorf("titles = %v, want %v", titles, want)
	}

	dump, err := os.ReadFile(filepath.Join(dir, "abc123-comments.txt"))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.HasPrefix(string(dump), "great video\n\n") {
		t.Errorf("dump = %q", dump)
	}
}

func TestResolveNoSource(t *testing.T) {
	meta := &fakeMeta{md: &VideoMetadata{}}
	comments := &fakeComments{comments: []string{"nice", "<a href=\"x\">1:00</a>"}}
	r := NewResolver(Config{}, meta, comments)

	got, src, err := r.Resolve(context.Background(), watchURL)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 0 || src != SourceNone {
		t.Errorf("got %q %+v, want empty", src, got)
	}
}

func TestResolveInvalidVideoID(t *testing.T) {
	meta := &fakeMeta{md: &VideoMetadata{}}
	comments := &fakeComments{}
	r := NewResolver(Config{}, meta, comments)

	_, _, err := r.Resolve(context.Background(), "https://youtu.be/abc123")
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidVideoID) {
		t.Errorf("expected ErrInvalidVideoID in chain, got %v", err)
	}
	if comments.calls != 0 {
		t.Error("comments fetched without a video id")
	}
}

func TestResolveErrors(t *testing.T) {
	t.Run("metadata", func(t *testing.T) {
		dlErr := &DownloadError{ExitCode: 1, Err: errors.New("boom")}
		r := NewResolver(Config{}, &fakeMeta{err: dlErr}, &fakeComments{})
		_, _, err := r.Resolve(context.Background(), watchURL)
		var de *DownloadError
		if !errors.As(err, &de) || de.ExitCode != 1 {
			t.Errorf("expected DownloadError, got %v", err)
		}
	})
	t.Run("comments", func(t *testing.T) {
		cErr := &CommentFetchError{Status: 403, Err: errors.New("quota")}
		r := NewResolver(Config{}, &fakeMeta{md: &VideoMetadata{}}, &fakeComments{err: cErr})
		_, _, err := r.Resolve(context.Background(), watchURL)
		var ce *CommentFetchError
		if !errors.As(err, &ce) || ce.Status != 403 {
			t.Errorf("expected CommentFetchError, got %v", err)
		}
	})
}
