package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// timestampRe matches H:MM:SS or M:SS. Hours and minutes in the leading
// field may run to three digits.
var timestampRe = regexp.MustCompile(`\b(\d{1,3}):([0-5]\d)(?::([0-5]\d))?\b`)

// titleTrim is stripped from both ends of a captured title.
const titleTrim = " \t-–—|:•·"

// ParseTimestamps scans text for timestamp tokens and returns one section per
// token. A title runs from the token to the next token or the end of its line.
// Each end_time is the next start_time; the last gets a one-hour tail.
// Text without tokens yields an empty slice.
func ParseTimestamps(text string) []Section {
	plain := StripHTML(text)
	locs := timestampRe.FindAllStringSubmatchIndex(plain, -1)
	sections := make([]Section, 0, len(locs))
	for i, loc := range locs {
		end := len(plain)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		title := plain[loc[1]:end]
		if nl := strings.IndexAny(title, "\r\n"); nl >= 0 {
			title = title[:nl]
		}
		title = strings.Trim(title, titleTrim)
		if title == "" {
			title = fmt.Sprintf("section_%d", i)
		}
		sections = append(sections, Section{
			StartTime: tokenSeconds(plain, loc),
			Title:     title,
		})
	}
	for i := 0; i+1 < len(sections); i++ {
		sections[i].EndTime = sections[i+1].StartTime
	}
	if n := len(sections); n > 0 {
		sections[n-1].EndTime = sections[n-1].StartTime + DefaultTailSeconds
	}
	return sections
}

// tokenSeconds converts a submatch index set into total seconds.
func tokenSeconds(s string, loc []int) int {
	field := func(g int) int {
		if loc[2*g] < 0 {
			return 0
		}
		n, _ := strconv.Atoi(s[loc[2*g]:loc[2*g+1]])
		return n
	}
	if loc[6] < 0 {
		return field(1)*60 + field(2)
	}
	return field(1)*3600 + field(2)*60 + field(3)
}
