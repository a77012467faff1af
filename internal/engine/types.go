package engine

// Section is a titled, time-bounded sub-range of a source audio track.
type Section struct {
	StartTime int    `json:"start_time"`
	EndTime   int    `json:"end_time"`
	Title     string `json:"title"`
}

// Duration returns the section length in seconds.
func (s Section) Duration() int {
	return s.EndTime - s.StartTime
}

// SectionSource names the fallback step that produced a resolved section list.
type SectionSource string

const (
	SourceChapters    SectionSource = "chapters"
	SourceDescription SectionSource = "description"
	SourceComments    SectionSource = "comments"
	SourceNone        SectionSource = "none"
)

// VideoMetadata is the subset of downloader metadata the resolver consumes.
// Chapter titles are kept as reported; the resolver fills in defaults.
type VideoMetadata struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Chapters    []Section `json:"chapters"`
}

// Outcome is the result of cutting and persisting one section.
type Outcome struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	Batch      int    `json:"batch"`
	OK         bool   `json:"ok"`
	CutSkipped bool   `json:"cut_skipped,omitempty"`
	Err        error  `json:"-"`
}

// Snippet is a stored section reference returned to callers.
type Snippet struct {
	Title string `json:"title"`
	Key   string `json:"key"`
	URL   string `json:"url,omitempty"`
}

// RunResult summarizes one ProcessVideo invocation.
type RunResult struct {
	RunID    string        `json:"run_id,omitempty"`
	URL      string        `json:"url"`
	VideoID  string        `json:"video_id"`
	Source   SectionSource `json:"source"`
	Sections []Section     `json:"sections"`
	Outcomes []Outcome     `json:"outcomes"`
}

// Uploaded counts outcomes that reached storage.
func (r *RunResult) Uploaded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK {
			n++
		}
	}
	return n
}

// Snippets maps every resolved section to its storage key, in section order.
func (r *RunResult) Snippets(ext string) []Snippet {
	return snippetsFor(r.Sections, ext)
}

func snippetsFor(sections []Section, ext string) []Snippet {
	out := make([]Snippet, 0, len(sections))
	for _, s := range sections {
		key := SanitizeKey(s.Title)
		out = append(out, Snippet{Title: key, Key: key + ext})
	}
	return out
}
