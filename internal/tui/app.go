package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/roundnews/internal/config"
	"github.com/pders01/roundnews/internal/debuglog"
	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/pagedsearch"
	"github.com/pders01/roundnews/internal/search"
)

// Controller is the part of the paged search the renderer drives.
// *pagedsearch.Controller satisfies it.
type Controller interface {
	Search(req pagedsearch.Request)
	LoadMore()
	ClearError()
	Subscribe() (<-chan pagedsearch.State, func())
}

// Opener hands article links to external applications.
type Opener interface {
	OpenArticle(a newsapi.Article) error
	OpenImage(a newsapi.Article) error
}

// Layout rows taken by chrome around the main content.
const (
	titleRows         = 1
	chipRows          = 3
	inputRows         = 3
	footerRows        = 3
	resultsFooterRows = 1
	minBodyRows       = 3
)

var sortCycle = []newsapi.SortBy{newsapi.SortPublishedAt, newsapi.SortRelevancy, newsapi.SortPopularity}

type App struct {
	config     *config.Config
	ctrl       Controller
	opener     Opener
	finder     *search.Loaded
	keyHandler *KeyHandler
	chips      *Chips

	resultsList list.Model
	findList    list.Model
	queryInput  textinput.Model
	findInput   textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model
	help        help.Model

	view         View
	previousView View

	states      <-chan pagedsearch.State
	unsubscribe func()
	state       pagedsearch.State

	// activeQuery is the query of the current session.
	activeQuery  string
	initialQuery string
	sortBy       newsapi.SortBy
	threshold    int

	currentArticle *newsapi.Article
	loadingArticle bool

	status     string
	statusKind StatusKind
	err        error

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
	now             func() time.Time
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

func NewApp(cfg *config.Config, ctrl Controller, opener Opener) *App {
	ApplyTheme(cfg.UI.Colors)

	categories, err := loadCategories()
	if err != nil {
		debuglog.Errorf("tui: %v", err)
	}

	qi := textinput.New()
	qi.Placeholder = "Search news…"
	qi.Prompt = "› "
	qi.CharLimit = 500

	fi := textinput.New()
	fi.Placeholder = "Find in loaded articles…"
	fi.Prompt = "› "
	fi.CharLimit = 200

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(AccentColor)),
	)

	threshold := cfg.Search.LoadMoreThreshold
	if threshold < 1 {
		threshold = 1
	}

	app := &App{
		config:       cfg,
		ctrl:         ctrl,
		opener:       opener,
		finder:       search.NewLoaded(search.NewFinder()),
		chips:        NewChips(categories),
		resultsList:  newList("› results"),
		findList:     newList("› find"),
		queryInput:   qi,
		findInput:    fi,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		help:         help.New(),
		view:         ViewResults,
		previousView: ViewResults,
		initialQuery: cfg.Search.InitialQuery,
		sortBy:       cfg.SortBy(),
		threshold:    threshold,
		now:          time.Now,
	}
	app.keyHandler = NewKeyHandler(app, cfg)
	app.states, app.unsubscribe = ctrl.Subscribe()
	app.state = pagedsearch.State{Articles: []newsapi.Article{}, CurrentPage: 1}

	return app
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForState(a.states),
		a.spinner.Tick,
		tea.EnterAltScreen,
	}
	if strings.TrimSpace(a.initialQuery) != "" {
		a.queryInput.SetValue(a.initialQuery)
		a.search(a.initialQuery)
	}
	return tea.Batch(cmds...)
}

// Close releases the controller subscription.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case stateMsg:
		if !msg.ok {
			return a, nil
		}
		a.applyState(msg.state)
		return a, waitForState(a.states)

	case articleRenderedMsg:
		if a.view == ViewReader && a.currentArticle != nil && a.currentArticle.URL == msg.url {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingArticle = false
			a.setStatus("", StatusInfo)
		}
		return a, nil

	case findResultsMsg:
		if a.view != ViewFind || msg.query != a.findInput.Value() {
			return a, nil
		}
		if msg.err != nil {
			a.err = wrapErr("find", msg.err)
			return a, nil
		}
		items := make([]list.Item, len(msg.results))
		for i, r := range msg.results {
			items[i] = findItem{result: r}
		}
		cmd := a.findList.SetItems(items)
		if len([]rune(strings.TrimSpace(msg.query))) < search.MinQueryLen {
			a.setStatus(MsgFindTooShort, StatusInfo)
		} else {
			a.setStatus(MsgFindCount(len(items)), StatusInfo)
		}
		return a, cmd

	case statusMsg:
		a.setStatus(msg.text, msg.kind)
		return a, nil

	case errorMsg:
		a.err = msg.err
		debuglog.Warnf("tui: %v", msg.err)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		switch a.view {
		case ViewReader:
			a.viewport, cmd = a.viewport.Update(msg)
		case ViewResults:
			a.resultsList, cmd = a.resultsList.Update(msg)
			a.maybeLoadMore()
		}
		return a, cmd
	}

	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	resultsRows := height - titleRows - chipRows - inputRows - footerRows - resultsFooterRows
	a.resultsList.SetSize(width, max(resultsRows, minBodyRows))

	findRows := height - titleRows - inputRows - 2 - footerRows
	a.findList.SetSize(width, max(findRows, minBodyRows))

	a.viewport.Width = width
	a.viewport.Height = max(height-titleRows-footerRows, minBodyRows)

	inputWidth := max(width-8, 10)
	a.queryInput.Width = inputWidth
	a.findInput.Width = inputWidth
	a.help.Width = width
}

// applyState takes a controller snapshot into the view.
func (a *App) applyState(s pagedsearch.State) {
	prev := a.state
	a.state = s

	if s.Session != prev.Session || len(s.Articles) != len(a.resultsList.Items()) {
		now := a.now()
		items := make([]list.Item, len(s.Articles))
		for i, art := range s.Articles {
			items[i] = articleItem{article: art, index: i, now: now}
		}
		a.resultsList.SetItems(items)
		if s.Session != prev.Session {
			a.resultsList.Select(0)
		}
	}

	if err := a.finder.Sync(s.Session, s.Articles); err != nil {
		debuglog.Warnf("tui: indexing loaded articles: %v", err)
	}

	switch {
	case s.IsLoading:
		a.setStatus(MsgSearching, StatusInfo)
	case s.IsLoadingMore:
		a.setStatus(MsgLoadingMore, StatusInfo)
	case s.HasError():
		a.setStatus(s.ErrorMessage, StatusError)
	case len(s.Articles) == 0 && a.activeQuery != "":
		a.setStatus(MsgNoResults, StatusWarn)
	case len(s.Articles) > 0:
		a.setStatus(MsgResultsCount(len(s.Articles), s.TotalResults), StatusSuccess)
	}
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) request(query string) pagedsearch.Request {
	return pagedsearch.Request{
		Query:    query,
		SortBy:   a.sortBy,
		PageSize: a.config.Search.PageSize,
		Filters:  newsapi.Filters{Language: a.config.Search.Language},
	}
}

// search hands query to the controller. A blank query is passed through
// too; the controller ignores it.
func (a *App) search(query string) {
	query = sanitizeQuery(query)
	if query != "" {
		a.activeQuery = query
		a.err = nil
	}
	debuglog.WithFields(debuglog.Fields{"query": query, "sort": a.sortBy}).Debugf("tui: search")
	a.ctrl.Search(a.request(query))
}

// submitQuery searches for what the user typed.
func (a *App) submitQuery(input string) tea.Cmd {
	query := sanitizeQuery(input)
	a.queryInput.SetValue(query)
	a.queryInput.Blur()
	a.view = ViewResults
	a.chips.Deselect()

	if query == "" {
		a.setStatus(MsgBlankQuery, StatusWarn)
		return nil
	}
	a.search(query)
	return nil
}

// toggleChip selects or deselects the chip under the cursor and searches
// for the resulting query.
func (a *App) toggleChip() tea.Cmd {
	query, ok := a.chips.Toggle()
	if !ok {
		return nil
	}
	// deselecting leaves the category text in the input
	if query != "" {
		a.queryInput.SetValue(query)
	}
	a.search(query)
	return nil
}

func (a *App) cycleSort() tea.Cmd {
	next := sortCycle[0]
	for i, s := range sortCycle {
		if s == a.sortBy {
			next = sortCycle[(i+1)%len(sortCycle)]
			break
		}
	}
	a.sortBy = next
	if a.activeQuery != "" {
		a.search(a.activeQuery)
	}
	a.setStatus(fmt.Sprintf("Sorted by %s", next), StatusInfo)
	return nil
}

// maybeLoadMore asks for the next page when the cursor is near the end of
// the loaded articles.
func (a *App) maybeLoadMore() {
	n := len(a.resultsList.Items())
	if n == 0 || a.state.HasError() || a.state.IsLoadingMore {
		return
	}
	if a.resultsList.Index() >= n-a.threshold {
		a.ctrl.LoadMore()
	}
}

func (a *App) clearError() {
	a.err = nil
	if a.state.HasError() {
		a.ctrl.ClearError()
		a.setStatus(MsgErrorDismissed, StatusInfo)
	}
}

func (a *App) selectedArticle() (newsapi.Article, bool) {
	if i, ok := a.resultsList.SelectedItem().(articleItem); ok {
		return i.article, true
	}
	return newsapi.Article{}, false
}

func (a *App) enterQueryMode() {
	a.view = ViewQuery
	a.queryInput.Focus()
	a.queryInput.CursorEnd()
}

func (a *App) enterFindMode() {
	a.view = ViewFind
	a.findInput.Reset()
	a.findInput.Focus()
	a.findList.SetItems([]list.Item{})
	a.setStatus(fmt.Sprintf("Find in %d loaded articles", a.finder.Indexed()), StatusInfo)
}

func (a *App) openReader(index int, from View) tea.Cmd {
	if index < 0 || index >= len(a.state.Articles) {
		return nil
	}
	article := a.state.Articles[index]
	a.currentArticle = &article
	a.previousView = from
	a.view = ViewReader
	a.loadingArticle = true
	a.viewport.SetContent("")
	a.setStatus(MsgLoadingArticle, StatusInfo)
	return a.renderArticle(article)
}

func (a *App) openReaderFromFind(index int) tea.Cmd {
	a.resultsList.Select(index)
	a.findInput.Blur()
	return a.openReader(index, ViewFind)
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewResults, ViewQuery:
		content = lipgloss.JoinVertical(lipgloss.Top,
			a.chips.View(a.width),
			renderInputFrame(a.queryInput.View(), a.view == ViewQuery, a.queryInput.Width),
			a.resultsView(),
		)
	case ViewReader:
		if a.loadingArticle {
			content = renderCentered(a.width, a.viewport.Height,
				a.spinner.View()+" "+renderMuted(MsgLoadingArticle))
		} else {
			content = a.viewport.View()
		}
	case ViewFind:
		content = lipgloss.JoinVertical(lipgloss.Top,
			renderInputFrame(a.findInput.View(), a.findInput.Focused(), a.findInput.Width),
			"",
			a.findList.View(),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Top,
		a.titleBar(),
		content,
		renderSeparator(a.width),
		a.statusBar(),
		a.keyHandler.HelpView(),
	)
}

func (a *App) titleBar() string {
	logo := LogoStyle.Render(CompactLogo)
	room := max(a.width-lipgloss.Width(logo)-1, 0)

	var subtitle string
	switch a.view {
	case ViewReader:
		if a.currentArticle != nil {
			subtitle = truncateMiddle(a.currentArticle.URL, room)
		}
	case ViewFind:
		subtitle = truncateEnd(fmt.Sprintf("find in %d loaded articles", a.finder.Indexed()), room)
	default:
		switch cat, ok := a.chips.Selected(); {
		case ok:
			subtitle = truncateEnd(cat.Label+" • "+string(a.sortBy), room)
		case a.activeQuery != "":
			subtitle = truncateEnd(MsgSearchFor(a.activeQuery, a.sortBy), room)
		default:
			subtitle = truncateEnd("sorted by "+string(a.sortBy), room)
		}
	}
	return logo + " " + TitleStyle.Render(subtitle)
}

func (a *App) resultsView() string {
	s := a.state
	height := max(a.resultsList.Height(), minBodyRows)

	if len(s.Articles) == 0 {
		switch {
		case s.IsLoading:
			return renderCentered(a.width, height, a.spinner.View()+" "+renderMuted(MsgSearching))
		case s.HasError():
			return renderCentered(a.width, height, lipgloss.JoinVertical(lipgloss.Center,
				ErrorMessageStyle.Render("✗ "+s.ErrorMessage),
				"",
				renderHelp(fmt.Sprintf("%s: dismiss • %s: search again", a.config.Keys.Bindings.ClearError, a.config.Keys.Bindings.Query)),
			))
		case a.activeQuery == "":
			return renderCentered(a.width, height, GetWelcomeMessage(a.config.Keys.Bindings.Query))
		default:
			return renderCentered(a.width, height, renderMuted(MsgNoResults))
		}
	}

	var footer string
	switch {
	case s.IsLoadingMore:
		footer = a.spinner.View() + " " + renderMuted(MsgLoadingMore)
	case s.HasError():
		footer = ErrorMessageStyle.Render("✗ "+s.ErrorMessage) + " " +
			renderHelp(a.config.Keys.Bindings.ClearError+": dismiss")
	case s.Exhausted():
		footer = renderMuted(MsgEndOfResults + " • " + MsgResultsCount(len(s.Articles), s.TotalResults))
	default:
		footer = renderMuted(MsgResultsCount(len(s.Articles), s.TotalResults))
	}

	return lipgloss.JoinVertical(lipgloss.Top, a.resultsList.View(), footer)
}

func (a *App) statusBar() string {
	if a.err != nil {
		return StatusBarStyle.Width(max(a.width, 1)).Render(ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	}
	if a.status == "" {
		return ""
	}
	return StatusBarStyle.Width(max(a.width, 1)).Render(a.statusKind.style()(a.status))
}
