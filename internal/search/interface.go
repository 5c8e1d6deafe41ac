// Package search finds articles among those already loaded by a paged
// search, without another round trip to the API.
package search

import "github.com/pders01/roundnews/internal/newsapi"

// MinQueryLen is the shortest query that produces results.
const MinQueryLen = 2

// Finder indexes loaded articles by their position in the result list.
type Finder interface {
	// Reset drops everything indexed so far.
	Reset() error
	// Add indexes articles at positions offset, offset+1, ...
	Add(offset int, articles []newsapi.Article) error
	// Find returns up to limit matches, best first.
	Find(query string, limit int) ([]Result, error)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is one match. Index is the article's position in the loaded list.
type Result struct {
	Index   int
	Article newsapi.Article
	Score   float64
	Matches []Match
}

// Match represents where text was found
type Match struct {
	Field  string // "title", "description", "content", "source"
	Text   string
	Weight float64
}
