package newsapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SortBy is the ordering of /everything results.
type SortBy string

const (
	SortRelevancy   SortBy = "relevancy"
	SortPopularity  SortBy = "popularity"
	SortPublishedAt SortBy = "publishedAt"
)

// ParseSortBy accepts the wire names case-insensitively. An empty string
// yields SortPublishedAt.
func ParseSortBy(s string) (SortBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "publishedat", "published":
		return SortPublishedAt, nil
	case "relevancy", "relevance":
		return SortRelevancy, nil
	case "popularity", "popular":
		return SortPopularity, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (want relevancy, popularity or publishedAt)", s)
	}
}

// SearchIn restricts which article fields the query is matched against.
type SearchIn string

const (
	InTitle       SearchIn = "title"
	InDescription SearchIn = "description"
	InContent     SearchIn = "content"
)

func ParseSearchIn(s string) (SearchIn, error) {
	switch v := SearchIn(strings.ToLower(strings.TrimSpace(s))); v {
	case InTitle, InDescription, InContent:
		return v, nil
	default:
		return "", fmt.Errorf("unknown searchIn field %q", s)
	}
}

const (
	MaxPageSize     = 100
	DefaultPageSize = 20
)

// Filters are the optional narrowing parameters of /everything.
type Filters struct {
	SearchIn       []SearchIn
	Sources        []string
	Domains        []string
	ExcludeDomains []string
	From           string
	To             string
	Language       string
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return len(f.SearchIn) == 0 && len(f.Sources) == 0 && len(f.Domains) == 0 &&
		len(f.ExcludeDomains) == 0 && f.From == "" && f.To == "" && f.Language == ""
}

// Query is one page request against /everything.
type Query struct {
	Text     string
	Filters  Filters
	SortBy   SortBy
	PageSize int
	Page     int
}

// ClampPageSize bounds n to [1, MaxPageSize].
func ClampPageSize(n int) int {
	return min(max(n, 1), MaxPageSize)
}

// ClampPage bounds n to >= 1.
func ClampPage(n int) int {
	return max(n, 1)
}

// Values encodes q as /everything query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("q", q.Text)

	if len(q.Filters.SearchIn) > 0 {
		fields := make([]string, len(q.Filters.SearchIn))
		for i, f := range q.Filters.SearchIn {
			fields[i] = string(f)
		}
		v.Set("searchIn", strings.Join(fields, ","))
	}
	setList(v, "sources", q.Filters.Sources)
	setList(v, "domains", q.Filters.Domains)
	setList(v, "excludeDomains", q.Filters.ExcludeDomains)
	setOptional(v, "from", q.Filters.From)
	setOptional(v, "to", q.Filters.To)
	setOptional(v, "language", q.Filters.Language)

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = SortPublishedAt
	}
	v.Set("sortBy", string(sortBy))
	v.Set("pageSize", strconv.Itoa(ClampPageSize(q.PageSize)))
	v.Set("page", strconv.Itoa(ClampPage(q.Page)))
	return v
}

// SourcesQuery filters /top-headlines/sources.
type SourcesQuery struct {
	Category string
	Language string
	Country  string
}

func (q SourcesQuery) Values() url.Values {
	v := url.Values{}
	setOptional(v, "category", q.Category)
	setOptional(v, "language", q.Language)
	setOptional(v, "country", q.Country)
	return v
}

func setList(v url.Values, key string, items []string) {
	if len(items) == 0 {
		return
	}
	v.Set(key, strings.Join(items, ","))
}

func setOptional(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

// SplitList splits a comma separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
