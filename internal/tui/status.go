package tui

import (
	"fmt"

	"github.com/pders01/roundnews/internal/newsapi"
)

// StatusKind indicates severity for status messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

const (
	MsgSearching       = "Searching…"
	MsgLoadingMore     = "Loading more…"
	MsgLoadingArticle  = "Loading article…"
	MsgNoResults       = "No articles found"
	MsgEndOfResults    = "End of results"
	MsgErrorDismissed  = "Error dismissed, scroll to retry"
	MsgBlankQuery      = "Type something to search"
	MsgFindTooShort    = "Type at least two characters"
	MsgOpenedInBrowser = "Opened in browser"
	MsgOpenedImage     = "Opened image"
)

func MsgResultsCount(loaded, total int) string {
	if total <= 0 || loaded >= total {
		if loaded == 1 {
			return "1 article"
		}
		return fmt.Sprintf("%d articles", loaded)
	}
	return fmt.Sprintf("%d of %d articles", loaded, total)
}

func MsgFindCount(n int) string {
	if n == 1 {
		return "1 match"
	}
	return fmt.Sprintf("%d matches", n)
}

func MsgSearchFor(query string, sortBy newsapi.SortBy) string {
	return fmt.Sprintf("%q by %s", query, sortBy)
}

func (k StatusKind) style() func(...string) string {
	switch k {
	case StatusSuccess:
		return StatusSuccessStyle.Render
	case StatusWarn:
		return StatusWarnStyle.Render
	case StatusError:
		return StatusErrorStyle.Render
	default:
		return StatusInfoStyle.Render
	}
}
