// Package pagedsearch owns the state of one paged news search: the articles
// fetched so far, the paging position, loading flags and the last error.
package pagedsearch

import (
	"context"

	"github.com/pders01/roundnews/internal/newsapi"
)

// Searcher fetches a single page. *newsapi.Client satisfies it.
type Searcher interface {
	FetchPage(ctx context.Context, q newsapi.Query) (newsapi.SearchResult, error)
}

// State is an immutable snapshot of the controller. Articles is shared
// between snapshots and must not be modified.
type State struct {
	// IsLoading is true only while a page-1 fetch is outstanding.
	IsLoading bool
	// IsLoadingMore is true only while a page>1 fetch is outstanding.
	IsLoadingMore bool
	Articles      []newsapi.Article
	TotalResults  int
	// CurrentPage is the last page fetched successfully.
	CurrentPage  int
	ErrorMessage string
	// Session identifies the search that produced Articles. It changes only
	// when a new search starts.
	Session uint64
}

func initialState() State {
	return State{
		Articles:    []newsapi.Article{},
		CurrentPage: 1,
	}
}

func (s State) HasError() bool {
	return s.ErrorMessage != ""
}

// Exhausted reports whether every known result has been fetched.
func (s State) Exhausted() bool {
	return len(s.Articles) >= s.TotalResults
}

// Idle reports whether no fetch is outstanding.
func (s State) Idle() bool {
	return !s.IsLoading && !s.IsLoadingMore
}

// Request describes a fresh search.
type Request struct {
	Query string
	// SortBy defaults to newsapi.SortPublishedAt.
	SortBy newsapi.SortBy
	// PageSize <= 0 uses the controller default.
	PageSize int
	Filters  newsapi.Filters
}
