package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pders01/roundnews/internal/config"
	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/pagedsearch"
)

type searchFlags struct {
	sort           string
	pageSize       int
	pages          int
	searchIn       string
	sources        string
	domains        string
	excludeDomains string
	from           string
	to             string
	language       string
}

var searchOpts searchFlags

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search articles and print one line per article",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()

		req, err := searchOpts.request(cfg, strings.Join(args, " "))
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		return runSearch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), client, req, searchOpts.pages)
	},
}

type sourcesFlags struct {
	category string
	language string
	country  string
}

var sourcesOpts sourcesFlags

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the sources available for searching",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()

		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		q := newsapi.SourcesQuery{
			Category: sourcesOpts.category,
			Language: sourcesOpts.language,
			Country:  sourcesOpts.country,
		}
		return listSources(cmd.Context(), cmd.OutOrStdout(), client, q)
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.sort, "sort", "", "Sort order: publishedAt, relevancy or popularity (default from config)")
	f.IntVar(&searchOpts.pageSize, "page-size", 0, "Articles per page, 1-100 (default from config)")
	f.IntVar(&searchOpts.pages, "pages", 1, "Number of pages to fetch")
	f.StringVar(&searchOpts.searchIn, "search-in", "", "Comma separated fields to match: title, description, content")
	f.StringVar(&searchOpts.sources, "sources", "", "Comma separated source ids")
	f.StringVar(&searchOpts.domains, "domains", "", "Comma separated domains to restrict to")
	f.StringVar(&searchOpts.excludeDomains, "exclude-domains", "", "Comma separated domains to exclude")
	f.StringVar(&searchOpts.from, "from", "", "Oldest publish date (ISO 8601)")
	f.StringVar(&searchOpts.to, "to", "", "Newest publish date (ISO 8601)")
	f.StringVar(&searchOpts.language, "language", "", "Two letter language code (default from config)")

	s := sourcesCmd.Flags()
	s.StringVar(&sourcesOpts.category, "category", "", "Only sources in this category")
	s.StringVar(&sourcesOpts.language, "language", "", "Only sources in this language")
	s.StringVar(&sourcesOpts.country, "country", "", "Only sources from this country")
}

// request builds a search from the flags, falling back to cfg.
func (o searchFlags) request(cfg *config.Config, query string) (pagedsearch.Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return pagedsearch.Request{}, errors.New("query must not be blank")
	}

	sortBy := cfg.SortBy()
	if o.sort != "" {
		var err error
		if sortBy, err = newsapi.ParseSortBy(o.sort); err != nil {
			return pagedsearch.Request{}, err
		}
	}

	pageSize := cfg.Search.PageSize
	if o.pageSize != 0 {
		if o.pageSize < 1 || o.pageSize > newsapi.MaxPageSize {
			return pagedsearch.Request{}, fmt.Errorf("--page-size must be between 1 and %d", newsapi.MaxPageSize)
		}
		pageSize = o.pageSize
	}
	if o.pages < 1 {
		return pagedsearch.Request{}, errors.New("--pages must be at least 1")
	}

	var searchIn []newsapi.SearchIn
	for _, field := range newsapi.SplitList(o.searchIn) {
		in, err := newsapi.ParseSearchIn(field)
		if err != nil {
			return pagedsearch.Request{}, err
		}
		searchIn = append(searchIn, in)
	}

	language := cfg.Search.Language
	if o.language != "" {
		language = o.language
	}

	return pagedsearch.Request{
		Query:    query,
		SortBy:   sortBy,
		PageSize: pageSize,
		Filters: newsapi.Filters{
			SearchIn:       searchIn,
			Sources:        newsapi.SplitList(o.sources),
			Domains:        newsapi.SplitList(o.domains),
			ExcludeDomains: newsapi.SplitList(o.excludeDomains),
			From:           o.from,
			To:             o.to,
			Language:       language,
		},
	}, nil
}

// runSearch drives a controller through up to pages pages and prints what
// was loaded to w, with a count summary on errW. An error after the first
// page still prints the articles.
func runSearch(ctx context.Context, w, errW io.Writer, client pagedsearch.Searcher, req pagedsearch.Request, pages int) error {
	ctrl := pagedsearch.New(client, pagedsearch.WithPageSize(req.PageSize))
	defer ctrl.Close()

	stop := context.AfterFunc(ctx, ctrl.Close)
	defer stop()

	ctrl.Search(req)
	ctrl.Wait()

	state := ctrl.State()
	for page := 1; page < pages && !state.HasError() && !state.Exhausted(); page++ {
		ctrl.LoadMore()
		ctrl.Wait()
		state = ctrl.State()
	}

	printArticles(w, errW, state)
	if state.HasError() {
		return errors.New(state.ErrorMessage)
	}
	return ctx.Err()
}

// printArticles writes one tab separated line per article: date, source,
// title and link. The count summary goes to errW.
func printArticles(w, errW io.Writer, s pagedsearch.State) {
	for _, a := range s.Articles {
		date := a.PublishedAt
		if t := a.PublishedTime(); !t.IsZero() {
			date = t.UTC().Format("2006-01-02 15:04")
		}
		title := strings.Join(strings.Fields(a.Title), " ")
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", date, a.Source.Name, title, a.URL)
	}
	if len(s.Articles) > 0 {
		fmt.Fprintf(errW, "%d of %d articles\n", len(s.Articles), s.TotalResults)
	}
}

func listSources(ctx context.Context, w io.Writer, client *newsapi.Client, q newsapi.SourcesQuery) error {
	resp, err := client.Sources(ctx, q)
	if err != nil {
		return describeError(err)
	}
	if len(resp.Sources) == 0 {
		fmt.Fprintln(w, "No sources found")
		return nil
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "CATEGORY", "LANG", "COUNTRY").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, s := range resp.Sources {
		t.Row(s.ID, s.Name, s.Category, s.Language, s.Country)
	}
	fmt.Fprintln(w, t.Render())
	return nil
}

// describeError adds a hint for the failures a user can fix.
func describeError(err error) error {
	var apiErr *newsapi.APIError
	var statusErr *newsapi.StatusError
	switch {
	case errors.As(err, &apiErr) && (apiErr.Code == "apiKeyInvalid" || apiErr.Code == "apiKeyMissing"):
		return fmt.Errorf("%w (check %s_API_KEY)", err, "ROUNDNEWS")
	case errors.As(err, &statusErr) && statusErr.StatusCode == 429:
		return fmt.Errorf("%w (rate limited, try again later)", err)
	case errors.Is(err, newsapi.ErrDecode):
		return fmt.Errorf("unexpected response from the news API: %w", err)
	}
	return err
}
