package tui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/roundnews/internal/debuglog"
	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/pagedsearch"
	"github.com/pders01/roundnews/internal/search"
)

// truncatedContent matches the "[+1234 chars]" marker the API appends to
// shortened content.
var truncatedContent = regexp.MustCompile(`\s*\[\+\d+ chars\]\s*$`)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// waitForState blocks on the controller subscription for the next snapshot.
func waitForState(ch <-chan pagedsearch.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		return stateMsg{state: s, ok: ok}
	}
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	art := a.config.UI.Article
	width := wrapWidth(a.width, art.WordWrapMinWidth, art.WordWrapMaxWidth)

	if a.glamourRenderer == nil || abs(a.rendererWidth-width) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = width
	}
	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func articleMarkdown(article newsapi.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", displayTitle(article))

	byline := []string{}
	if src := oneLine(article.Source.Name); src != "" {
		byline = append(byline, src)
	}
	byline = append(byline, displayAuthor(article))
	if date := displayDate(article, time.RFC1123); date != "" {
		byline = append(byline, date)
	}
	fmt.Fprintf(&b, "*%s*\n\n", strings.Join(byline, " • "))

	if article.URL != "" {
		fmt.Fprintf(&b, "[Read online](%s)\n\n", article.URL)
	}
	if article.ImageURL != "" {
		fmt.Fprintf(&b, "[Lead image](%s)\n\n", article.ImageURL)
	}

	b.WriteString("---\n\n")

	if d := strings.TrimSpace(article.Description); d != "" {
		fmt.Fprintf(&b, "%s\n\n", d)
	}
	if c := strings.TrimSpace(truncatedContent.ReplaceAllString(article.Content, "")); c != "" {
		fmt.Fprintf(&b, "%s\n\n", c)
		if truncatedContent.MatchString(article.Content) && article.URL != "" {
			b.WriteString("*The full text is available online.*\n")
		}
	}
	return b.String()
}

func (a *App) renderArticle(article newsapi.Article) tea.Cmd {
	r, err := a.getRenderer()
	if err != nil {
		return func() tea.Msg {
			return articleRenderedMsg{url: article.URL, content: "Error initializing renderer: " + err.Error()}
		}
	}

	return func() tea.Msg {
		rendered, err := r.Render(articleMarkdown(article))
		if err != nil {
			debuglog.Warnf("tui: render article: %v", err)
			rendered = fmt.Sprintf("Failed to render article: %s\n\nPress esc to go back.", err)
		}
		return articleRenderedMsg{url: article.URL, content: rendered}
	}
}

func (a *App) openArticle(article newsapi.Article) tea.Cmd {
	return func() tea.Msg {
		if err := a.opener.OpenArticle(article); err != nil {
			return errorMsg{err: wrapErr("open article", err)}
		}
		return statusMsg{text: MsgOpenedInBrowser, kind: StatusSuccess}
	}
}

func (a *App) openImage(article newsapi.Article) tea.Cmd {
	return func() tea.Msg {
		if err := a.opener.OpenImage(article); err != nil {
			return errorMsg{err: wrapErr("open image", err)}
		}
		return statusMsg{text: MsgOpenedImage, kind: StatusSuccess}
	}
}

// performFind queries the index of loaded articles.
func (a *App) performFind(query string) tea.Cmd {
	finder := a.finder
	limit := a.config.Search.FindLimit
	return func() tea.Msg {
		if len([]rune(strings.TrimSpace(query))) < search.MinQueryLen {
			return findResultsMsg{query: query}
		}
		results, err := finder.Find(query, limit)
		return findResultsMsg{query: query, results: results, err: err}
	}
}
