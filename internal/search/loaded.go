package search

import (
	"github.com/pders01/roundnews/internal/debuglog"
	"github.com/pders01/roundnews/internal/newsapi"
)

// Loaded keeps a Finder in step with the article list of a paged search.
// Pages are only ever appended within a session, so Sync indexes just the
// tail it has not seen; a new session starts over.
type Loaded struct {
	finder  Finder
	session uint64
	indexed int
}

func NewLoaded(f Finder) *Loaded {
	return &Loaded{finder: f}
}

// Sync indexes articles produced by session.
func (l *Loaded) Sync(session uint64, articles []newsapi.Article) error {
	if session != l.session || len(articles) < l.indexed {
		if err := l.finder.Reset(); err != nil {
			return err
		}
		l.session = session
		l.indexed = 0
	}
	if len(articles) == l.indexed {
		return nil
	}
	if err := l.finder.Add(l.indexed, articles[l.indexed:]); err != nil {
		return err
	}
	l.indexed = len(articles)

	if ds, ok := l.finder.(DebugStatser); ok && debuglog.Enabled(debuglog.LevelDebug) {
		if n, err := ds.DocCount(); err == nil {
			debuglog.Debugf("search: session %d, %d articles indexed", session, n)
		}
	}
	return nil
}

func (l *Loaded) Find(query string, limit int) ([]Result, error) {
	return l.finder.Find(query, limit)
}

// Indexed reports how many articles have been indexed for the current session.
func (l *Loaded) Indexed() int {
	return l.indexed
}
