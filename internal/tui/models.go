package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/pagedsearch"
	"github.com/pders01/roundnews/internal/search"
)

type View int

const (
	ViewResults View = iota
	ViewQuery
	ViewReader
	ViewFind
)

func (v View) String() string {
	switch v {
	case ViewQuery:
		return "query"
	case ViewReader:
		return "reader"
	case ViewFind:
		return "find"
	default:
		return "results"
	}
}

// stateMsg carries a controller snapshot. ok is false once the
// subscription is closed.
type stateMsg struct {
	state pagedsearch.State
	ok    bool
}

type articleRenderedMsg struct {
	url     string
	content string
}

type findResultsMsg struct {
	query   string
	results []search.Result
	err     error
}

type statusMsg struct {
	text string
	kind StatusKind
}

type errorMsg struct {
	err error
}

// articleItem is a result row. index is the position in the loaded list.
type articleItem struct {
	article newsapi.Article
	index   int
	now     time.Time
}

func (i articleItem) Title() string {
	return ArticleTitleStyle.Render(displayTitle(i.article))
}

func (i articleItem) Description() string {
	parts := []string{}
	if src := oneLine(i.article.Source.Name); src != "" {
		parts = append(parts, src)
	}
	parts = append(parts, displayAuthor(i.article))
	if age := relativeAge(i.article.PublishedTime(), i.now); age != "" {
		parts = append(parts, age)
	}
	return renderMuted(strings.Join(parts, " • "))
}

func (i articleItem) FilterValue() string { return displayTitle(i.article) }

// findItem is a match from the local index.
type findItem struct {
	result search.Result
}

func (i findItem) Title() string {
	return ArticleTitleStyle.Render(fmt.Sprintf("%d. %s", i.result.Index+1, displayTitle(i.result.Article)))
}

func (i findItem) Description() string {
	if len(i.result.Matches) > 0 {
		m := i.result.Matches[0]
		return renderMuted(m.Field + ": " + oneLine(m.Text))
	}
	return renderMuted(truncateEnd(oneLine(i.result.Article.Description), 80))
}

func (i findItem) FilterValue() string { return i.result.Article.Title }
