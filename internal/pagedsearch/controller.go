package pagedsearch

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/pders01/roundnews/internal/debuglog"
	"github.com/pders01/roundnews/internal/metrics"
	"github.com/pders01/roundnews/internal/newsapi"
)

// GenericError is shown when a failure carries no usable text.
const GenericError = "An unexpected error occurred"

// Load-more skip reasons, as reported to metrics.
const (
	skipInFlight   = "in_flight"
	skipBlankQuery = "blank_query"
	skipExhausted  = "exhausted"
)

type session struct {
	id       uint64
	query    string
	sortBy   newsapi.SortBy
	filters  newsapi.Filters
	pageSize int
	ctx      context.Context
	cancel   context.CancelFunc
}

func (s session) page(n int) newsapi.Query {
	return newsapi.Query{
		Text:     s.query,
		Filters:  s.filters,
		SortBy:   s.sortBy,
		PageSize: s.pageSize,
		Page:     n,
	}
}

// Controller is the single writer of a search State. Intents return
// immediately; fetches run on their own goroutine and their results are
// applied only if the search that issued them is still current.
type Controller struct {
	client   Searcher
	pageSize int

	mu      sync.Mutex
	state   State
	sess    session
	subs    map[int]chan State
	nextSub int
	closed  bool

	inflight sync.WaitGroup
}

type Option func(*Controller)

// WithPageSize sets the page size used when a Request does not carry one.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = newsapi.ClampPageSize(n)
		}
	}
}

func New(client Searcher, opts ...Option) *Controller {
	c := &Controller{
		client:   client,
		pageSize: newsapi.DefaultPageSize,
		state:    initialState(),
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel that holds the current snapshot and then
// receives the newest snapshot after each transition. A slow reader skips
// intermediate snapshots but always sees the latest one. The channel is
// closed by cancel or Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// publish must be called with mu held.
func (c *Controller) publish() {
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.state
	}
}

// Search starts a new session for req and fetches its first page. A blank
// query is ignored. Any fetch still running for an older session is
// cancelled and its result discarded.
func (c *Controller) Search(req Request) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return
	}

	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = newsapi.SortPublishedAt
	}
	pageSize := c.pageSize
	if req.PageSize > 0 {
		pageSize = newsapi.ClampPageSize(req.PageSize)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.sess.cancel != nil {
		c.sess.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.sess = session{
		id:       c.sess.id + 1,
		query:    query,
		sortBy:   sortBy,
		filters:  req.Filters,
		pageSize: pageSize,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.state = State{
		IsLoading:   true,
		Articles:    []newsapi.Article{},
		CurrentPage: 1,
		Session:     c.sess.id,
	}
	c.publish()
	sess := c.sess
	c.inflight.Add(1)
	c.mu.Unlock()

	debuglog.WithFields(debuglog.Fields{
		"session": sess.id,
		"sort":    sess.sortBy,
	}).Infof("search %q", sess.query)

	go c.fetch(sess, 1, metrics.KindFresh)
}

// LoadMore fetches the page after CurrentPage and appends it. It does nothing
// while a load-more is already running, when no query is active, or when all
// known results have been fetched.
func (c *Controller) LoadMore() {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return
	case c.state.IsLoadingMore:
		c.mu.Unlock()
		metrics.ObserveLoadMoreSkipped(skipInFlight)
		return
	case strings.TrimSpace(c.sess.query) == "":
		c.mu.Unlock()
		metrics.ObserveLoadMoreSkipped(skipBlankQuery)
		return
	case c.state.Exhausted():
		c.mu.Unlock()
		metrics.ObserveLoadMoreSkipped(skipExhausted)
		return
	}

	next := c.state.CurrentPage + 1
	c.state.IsLoadingMore = true
	c.publish()
	sess := c.sess
	c.inflight.Add(1)
	c.mu.Unlock()

	debuglog.WithFields(debuglog.Fields{"session": sess.id, "page": next}).Debugf("load more")

	go c.fetch(sess, next, metrics.KindLoadMore)
}

// ClearError drops the current error message without fetching.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ErrorMessage == "" {
		return
	}
	c.state.ErrorMessage = ""
	c.publish()
}

// Wait blocks until every fetch started so far has been applied or discarded.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close cancels outstanding fetches and closes all subscriber channels.
// Intents after Close are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.sess.cancel != nil {
		c.sess.cancel()
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
}

func (c *Controller) fetch(sess session, page int, kind string) {
	defer c.inflight.Done()
	done := metrics.StartFetch(kind)
	result, err := c.client.FetchPage(sess.ctx, sess.page(page))
	done()
	c.apply(sess.id, page, result, err)
}

func (c *Controller) apply(id uint64, page int, result newsapi.SearchResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := debuglog.WithFields(debuglog.Fields{"session": id, "page": page})
	if c.closed || id != c.sess.id {
		metrics.ObserveStaleResult()
		log.Debugf("discarding result of superseded search")
		return
	}

	fresh := page == 1
	if fresh {
		c.state.IsLoading = false
	} else {
		c.state.IsLoadingMore = false
	}

	if err != nil {
		c.fail(log, err.Error())
		c.publish()
		return
	}

	switch r := result.(type) {
	case *newsapi.Success:
		if r == nil {
			c.fail(log, GenericError)
			break
		}
		c.succeed(log, fresh, page, r)
	case *newsapi.ErrorResponse:
		if r == nil {
			c.fail(log, GenericError)
			break
		}
		log.With("code", r.Code).Debugf("api error")
		c.fail(log, r.Describe())
	default:
		c.fail(log, GenericError)
	}

	c.publish()
}

// succeed must be called with mu held.
func (c *Controller) succeed(log *debuglog.FieldLogger, fresh bool, page int, r *newsapi.Success) {
	if fresh {
		articles := r.Articles
		if articles == nil {
			articles = []newsapi.Article{}
		}
		c.state.Articles = articles
		c.state.TotalResults = r.TotalResults
		c.state.CurrentPage = 1
		log.Infof("received %d of %d results", len(articles), r.TotalResults)
		return
	}

	c.state.Articles = slices.Concat(c.state.Articles, r.Articles)
	c.state.CurrentPage = page
	if len(r.Articles) == 0 {
		// the API reported more results than it will page through
		c.state.TotalResults = len(c.state.Articles)
	}
	log.Debugf("appended %d articles, now %d of %d", len(r.Articles), len(c.state.Articles), c.state.TotalResults)
}

// fail must be called with mu held.
func (c *Controller) fail(log *debuglog.FieldLogger, msg string) {
	if strings.TrimSpace(msg) == "" {
		msg = GenericError
	}
	log.Warnf("fetch failed: %s", msg)
	c.state.ErrorMessage = msg
}
