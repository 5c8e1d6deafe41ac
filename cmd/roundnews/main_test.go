package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/roundnews/internal/config"
	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/pagedsearch"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-outC
}

func TestVersionCommand(t *testing.T) {
	out := captureStdout(t, func() { versionCmd.Run(nil, nil) })

	// Version is "dev" by default in tests
	if !strings.Contains(out, "roundnews dev") {
		t.Errorf("Expected version output to contain 'roundnews dev', got: %s", out)
	}
	if !strings.Contains(out, "github.com/pders01/roundnews") {
		t.Errorf("Expected version output to contain the module path, got: %s", out)
	}
}

func TestGenerateConfigCommand(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	configFile := filepath.Join(tmpDir, ".config", "roundnews", "config.toml")

	configPath, forceConfig = "", false
	out := captureStdout(t, func() { configGenCmd.Run(nil, nil) })

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Errorf("Config file was not created at %s", configFile)
	}
	if !strings.Contains(out, "Generated default configuration at:") {
		t.Errorf("Expected output to contain 'Generated default configuration at:', got: %s", out)
	}

	cfg, err := config.Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, newsapi.DefaultPageSize, cfg.Search.PageSize)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"version", "config", "search", "sources"} {
		assert.True(t, names[want], "missing %s command", want)
	}
	assert.NotNil(t, rootCmd.Flags().Lookup("query"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestSearchFlagsRequest(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Search.Language = "en"

	tests := []struct {
		name    string
		flags   searchFlags
		query   string
		check   func(t *testing.T, req pagedsearch.Request)
		wantErr string
	}{
		{
			name:  "defaults from config",
			flags: searchFlags{pages: 1},
			query: "  open source ",
			check: func(t *testing.T, req pagedsearch.Request) {
				assert.Equal(t, "open source", req.Query)
				assert.Equal(t, newsapi.SortPublishedAt, req.SortBy)
				assert.Equal(t, cfg.Search.PageSize, req.PageSize)
				assert.Equal(t, "en", req.Filters.Language)
			},
		},
		{
			name: "flags override config",
			flags: searchFlags{
				sort:           "popularity",
				pageSize:       50,
				pages:          2,
				searchIn:       "title, content",
				sources:        "bbc-news,the-verge",
				domains:        "bbc.co.uk",
				excludeDomains: "example.net",
				from:           "2024-01-01",
				to:             "2024-01-31",
				language:       "de",
			},
			query: "wahl",
			check: func(t *testing.T, req pagedsearch.Request) {
				assert.Equal(t, newsapi.SortPopularity, req.SortBy)
				assert.Equal(t, 50, req.PageSize)
				assert.Equal(t, []newsapi.SearchIn{newsapi.InTitle, newsapi.InContent}, req.Filters.SearchIn)
				assert.Equal(t, []string{"bbc-news", "the-verge"}, req.Filters.Sources)
				assert.Equal(t, []string{"bbc.co.uk"}, req.Filters.Domains)
				assert.Equal(t, []string{"example.net"}, req.Filters.ExcludeDomains)
				assert.Equal(t, "2024-01-01", req.Filters.From)
				assert.Equal(t, "2024-01-31", req.Filters.To)
				assert.Equal(t, "de", req.Filters.Language)
			},
		},
		{name: "blank query", flags: searchFlags{pages: 1}, query: "   ", wantErr: "blank"},
		{name: "bad sort", flags: searchFlags{pages: 1, sort: "newest"}, query: "go", wantErr: "unknown sort order"},
		{name: "bad page size", flags: searchFlags{pages: 1, pageSize: 101}, query: "go", wantErr: "--page-size"},
		{name: "bad pages", flags: searchFlags{pages: 0}, query: "go", wantErr: "--pages"},
		{name: "bad search-in", flags: searchFlags{pages: 1, searchIn: "body"}, query: "go", wantErr: "searchIn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.flags.request(cfg, tt.query)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, req)
		})
	}
}

// pagedServer serves total articles in pages of the requested size.
func pagedServer(t *testing.T, total int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get(newsapi.APIKeyHeader))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

		var articles []string
		for i := (page - 1) * size; i < min(page*size, total); i++ {
			articles = append(articles, fmt.Sprintf(
				`{"source":{"id":null,"name":"Wire"},"title":"Story %d","url":"https://news.example.org/%d","publishedAt":"2024-03-01T10:00:00Z"}`, i, i))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","totalResults":%d,"articles":[%s]}`, total, strings.Join(articles, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunSearch(t *testing.T) {
	srv := pagedServer(t, 5)
	client := newsapi.NewClient("test-key", newsapi.WithBaseURL(srv.URL))

	var out, summary bytes.Buffer
	req := pagedsearch.Request{Query: "story", PageSize: 2}
	err := runSearch(context.Background(), &out, &summary, client, req, 10)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5, "stops once every result is loaded")
	assert.Equal(t, "2024-03-01 10:00\tWire\tStory 0\thttps://news.example.org/0", lines[0])
	assert.Contains(t, lines[4], "Story 4")
	assert.Equal(t, "5 of 5 articles\n", summary.String())
}

func TestRunSearch_PageLimit(t *testing.T) {
	srv := pagedServer(t, 50)
	client := newsapi.NewClient("test-key", newsapi.WithBaseURL(srv.URL))

	var out, summary bytes.Buffer
	err := runSearch(context.Background(), &out, &summary, client, pagedsearch.Request{Query: "story", PageSize: 3}, 2)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 6)
	assert.Equal(t, "6 of 50 articles\n", summary.String())
}

func TestRunSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"status":"error","code":"rateLimited","message":"You have made too many requests recently."}`)
	}))
	defer srv.Close()
	client := newsapi.NewClient("test-key", newsapi.WithBaseURL(srv.URL))

	var out, summary bytes.Buffer
	err := runSearch(context.Background(), &out, &summary, client, pagedsearch.Request{Query: "story"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many requests")
	assert.Empty(t, out.String())
	assert.Empty(t, summary.String(), "no summary without articles")
}

func TestListSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-headlines/sources", r.URL.Path)
		assert.Equal(t, "technology", r.URL.Query().Get("category"))
		fmt.Fprint(w, `{"status":"ok","sources":[
			{"id":"ars-technica","name":"Ars Technica","description":"","url":"https://arstechnica.com","category":"technology","language":"en","country":"us"},
			{"id":"wired","name":"Wired","description":"","url":"https://www.wired.com","category":"technology","language":"en","country":"us"}]}`)
	}))
	defer srv.Close()
	client := newsapi.NewClient("test-key", newsapi.WithBaseURL(srv.URL))

	var out bytes.Buffer
	err := listSources(context.Background(), &out, client, newsapi.SourcesQuery{Category: "technology"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "ars-technica")
	assert.Contains(t, out.String(), "Wired")
	assert.Contains(t, out.String(), "CATEGORY")
}

func TestListSources_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","sources":[]}`)
	}))
	defer srv.Close()
	client := newsapi.NewClient("test-key", newsapi.WithBaseURL(srv.URL))

	var out bytes.Buffer
	require.NoError(t, listSources(context.Background(), &out, client, newsapi.SourcesQuery{}))
	assert.Equal(t, "No sources found\n", out.String())
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid key", &newsapi.APIError{Code: "apiKeyInvalid", Message: "Your API key is invalid"}, "ROUNDNEWS_API_KEY"},
		{"rate limited", &newsapi.StatusError{StatusCode: 429}, "try again later"},
		{"decode", fmt.Errorf("%w: missing status field", newsapi.ErrDecode), "unexpected response"},
		{"other", errors.New("dial tcp: refused"), "dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := describeError(tt.err)
			assert.Contains(t, err.Error(), tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	cfg := config.TestConfig()
	cfg.API.Key = ""
	_, err := newClient(cfg)
	require.ErrorIs(t, err, newsapi.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), config.LegacyKeyEnv)

	client, err := newClient(config.TestConfig())
	require.NoError(t, err)
	assert.NotNil(t, client)
}
