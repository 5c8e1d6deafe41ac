package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/pders01/roundnews/internal/newsapi"
)

// Engine scores loaded articles in memory without an index. It is the
// fallback when the bleve index cannot be created.
type Engine struct {
	mu       sync.RWMutex
	articles []newsapi.Article
	now      func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

func (e *Engine) Reset() error {
	e.mu.Lock()
	e.articles = nil
	e.mu.Unlock()
	return nil
}

func (e *Engine) Add(offset int, articles []newsapi.Article) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.articles = placeAt(e.articles, offset, articles)
	return nil
}

func (e *Engine) DocCount() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.articles), nil
}

func (e *Engine) Find(query string, limit int) ([]Result, error) {
	if len(strings.TrimSpace(query)) < MinQueryLen {
		return []Result{}, nil
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return []Result{}, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	results := []Result{}
	for i, a := range e.articles {
		if r, ok := e.scoreArticle(i, a, terms); ok {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) scoreArticle(index int, article newsapi.Article, terms []string) (Result, bool) {
	var matches []Match
	var total float64

	add := func(field, text string, weight float64, snippet func(string) string) {
		if s := scoreField(text, terms, weight); s > 0 {
			matches = append(matches, Match{Field: field, Text: snippet(text), Weight: s})
			total += s
		}
	}
	keep := func(s string) string { return s }

	add("title", article.Title, 4.0, keep)
	add("description", article.Description, 2.0, func(s string) string { return truncate(s, 150) })
	add("content", article.Content, 1.0, func(s string) string { return findBestSnippet(s, terms, 200) })
	add("source", article.Source.Name, 0.5, keep)

	if total == 0 {
		return Result{}, false
	}
	total *= 1.0 + recencyBoost(article.PublishedTime(), e.now())
	return Result{Index: index, Article: article, Score: total, Matches: matches}, true
}

// placeAt writes articles into dst starting at offset, growing dst as needed.
func placeAt(dst []newsapi.Article, offset int, articles []newsapi.Article) []newsapi.Article {
	if offset < 0 {
		offset = 0
	}
	if need := offset + len(articles); need > len(dst) {
		grown := make([]newsapi.Article, need)
		copy(grown, dst)
		dst = grown
	}
	copy(dst[offset:], articles)
	return dst
}

// scoreField calculates relevance score for a field
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet returns the window of text holding the most query terms.
func findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	windowSize := maxLength / 8
	if windowSize >= len(words) {
		return truncate(text, maxLength)
	}

	bestScore, bestStart := 0, 0
	for i := 0; i <= len(words)-windowSize; i++ {
		window := strings.ToLower(strings.Join(words[i:i+windowSize], " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore, bestStart = score, i
		}
	}

	return truncate(strings.Join(words[bestStart:bestStart+windowSize], " "), maxLength)
}

// tokenize lowercases text and splits it into terms of two or more letters
// or digits.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 1 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return terms
}

// truncate limits text to maxLen runes, ending in an ellipsis when cut.
func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

// recencyBoost favours articles from the last week, up to 10%.
func recencyBoost(published, now time.Time) float64 {
	if published.IsZero() {
		return 0
	}
	age := now.Sub(published)
	const week = 7 * 24 * time.Hour
	switch {
	case age < 0:
		return 0.1
	case age >= week:
		return 0
	default:
		return 0.1 * (1 - float64(age)/float64(week))
	}
}
