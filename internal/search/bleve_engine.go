package search

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/roundnews/internal/debuglog"
	"github.com/pders01/roundnews/internal/newsapi"
)

const docPrefix = "article:"

// BleveEngine keeps loaded articles in an in-memory bleve index.
type BleveEngine struct {
	mu       sync.RWMutex
	idx      bleve.Index
	articles []newsapi.Article
}

func NewBleveEngine() (*BleveEngine, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating in-memory index: %w", err)
	}
	return &BleveEngine{idx: idx}, nil
}

// NewFinder returns a bleve-backed Finder, or the scoring Engine when the
// index cannot be created.
func NewFinder() Finder {
	be, err := NewBleveEngine()
	if err != nil {
		debuglog.Warnf("search: falling back to scoring engine: %v", err)
		return NewEngine()
	}
	return be
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false

	source := bleve.NewTextFieldMapping()
	source.Analyzer = standard.Name

	author := bleve.NewTextFieldMapping()
	author.Analyzer = standard.Name

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("source", source)
	dm.AddFieldMappingsAt("author", author)

	im.DefaultMapping = dm
	return im
}

func (b *BleveEngine) Reset() error {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("recreating in-memory index: %w", err)
	}

	b.mu.Lock()
	old := b.idx
	b.idx = idx
	b.articles = nil
	b.mu.Unlock()

	return old.Close()
}

func (b *BleveEngine) Add(offset int, articles []newsapi.Article) error {
	if len(articles) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.idx.NewBatch()
	for i, a := range articles {
		if err := batch.Index(docID(offset+i), map[string]any{
			"title":       a.Title,
			"description": a.Description,
			"content":     a.Content,
			"source":      a.Source.Name,
			"author":      a.Author,
		}); err != nil {
			return fmt.Errorf("indexing article %d: %w", offset+i, err)
		}
	}
	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("indexing batch: %w", err)
	}
	b.articles = placeAt(b.articles, offset, articles)
	return nil
}

func (b *BleveEngine) Find(query string, limit int) ([]Result, error) {
	if len(strings.TrimSpace(query)) < MinQueryLen {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	// per-term match and prefix queries with field boosts
	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, f := range []struct {
			field       string
			match, pref float64
		}{
			{"title", 4.0, 3.5},
			{"description", 2.0, 1.8},
			{"content", 1.0, 0.8},
			{"source", 0.5, 0.3},
			{"author", 0.5, 0.3},
		} {
			mq := bleve.NewMatchQuery(tok)
			mq.SetField(f.field)
			mq.SetBoost(f.match)
			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f.field)
			pq.SetBoost(f.pref)
			qs = append(qs, mq, pq)
		}
	}
	if len(qs) == 0 {
		return []Result{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		i, ok := indexFromDocID(h.ID)
		if !ok || i >= len(b.articles) {
			continue
		}
		out = append(out, Result{Index: i, Article: b.articles[i], Score: h.Score})
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (b *BleveEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx.Close()
}

func docID(i int) string { return docPrefix + strconv.Itoa(i) }

func indexFromDocID(id string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, docPrefix))
	if err != nil || !strings.HasPrefix(id, docPrefix) {
		return 0, false
	}
	return n, true
}
