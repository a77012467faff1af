package engine

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
	"golang.org/x/net/html"
)

// Tags that end a line of visible text.
var lineBreakTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var anchorRe = regexp.MustCompile(`(?i)<a\s+href=`)

// StripHTML drops markup from s, turning line-level tags into newlines
// and decoding entities. Plain text passes through unchanged.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if lineBreakTags[string(name)] {
				sb.WriteByte('\n')
			}
		}
	}
}

// CountAnchors returns the number of <a href=...> openings in raw markup.
func CountAnchors(s string) int {
	return len(anchorRe.FindAllStringIndex(s, -1))
}

// SanitizeKey lower-cases title and replaces every rune outside [a-zA-Z0-9]
// with an underscore, one for one.
func SanitizeKey(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// Tail returns at most the last n bytes of s, trimmed. Used to summarize
// subprocess stderr.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
