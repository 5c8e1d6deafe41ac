package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/pders01/roundnews/internal/newsapi"
)

const (
	noTitle       = "No title"
	unknownAuthor = "Unknown author"
)

// truncateEnd shortens s to at most limit runes, ending in an ellipsis
// when cut.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle keeps both ends of s, which suits URLs.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	n := len(r)
	if n <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left
	return string(r[:left]) + "…" + string(r[n-right:])
}

// oneLine collapses whitespace runs, including newlines, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func displayTitle(a newsapi.Article) string {
	if t := oneLine(a.Title); t != "" {
		return t
	}
	return noTitle
}

func displayAuthor(a newsapi.Article) string {
	if au := oneLine(a.Author); au != "" {
		return au
	}
	return unknownAuthor
}

func displayDate(a newsapi.Article, layout string) string {
	t := a.PublishedTime()
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(layout)
}

// sanitizeQuery trims, flattens and bounds user input.
func sanitizeQuery(input string) string {
	input = oneLine(input)
	if r := []rune(input); len(r) > 500 {
		input = strings.TrimSpace(string(r[:500]))
	}
	return input
}

// wrapWidth is the reader's word wrap for a terminal width, bounded by the
// configured limits.
func wrapWidth(width, minWidth, maxWidth int) int {
	w := (width * 9) / 10
	if w > maxWidth {
		w = maxWidth
	}
	if w < minWidth {
		w = minWidth
	}
	if width < 50 {
		w = max(width-4, 20)
	}
	return w
}

func relativeAge(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return formatAgo(int(d.Minutes()), "m")
	case d < 24*time.Hour:
		return formatAgo(int(d.Hours()), "h")
	case d < 7*24*time.Hour:
		return formatAgo(int(d.Hours()/24), "d")
	default:
		return t.Format("Jan 2")
	}
}

func formatAgo(n int, unit string) string {
	return fmt.Sprintf("%d%s ago", n, unit)
}
