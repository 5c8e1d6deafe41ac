package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/roundnews/internal/config"
)

// KeyMap holds the configurable bindings.
type KeyMap struct {
	Quit           key.Binding
	Query          key.Binding
	Find           key.Binding
	Open           key.Binding
	OpenImage      key.Binding
	ClearError     key.Binding
	NextCategory   key.Binding
	PrevCategory   key.Binding
	ToggleCategory key.Binding
	CycleSort      key.Binding
	Back           key.Binding
	Help           key.Binding
	Select         key.Binding
}

func NewKeyMap(b config.KeyBindings) KeyMap {
	bind := func(k, desc string) key.Binding {
		return key.NewBinding(key.WithKeys(k), key.WithHelp(k, desc))
	}
	return KeyMap{
		Quit:           bind(b.Quit, "quit"),
		Query:          bind(b.Query, "search"),
		Find:           bind(b.Find, "find loaded"),
		Open:           bind(b.Open, "open"),
		OpenImage:      bind(b.OpenImage, "image"),
		ClearError:     bind(b.ClearError, "dismiss error"),
		NextCategory:   bind(b.NextCategory, "next category"),
		PrevCategory:   bind(b.PrevCategory, "prev category"),
		ToggleCategory: bind(b.ToggleCategory, "toggle category"),
		CycleSort:      bind(b.CycleSort, "sort"),
		Back:           bind(b.Back, "back"),
		Help:           bind(b.Help, "help"),
		Select:         bind("enter", "read"),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Query, k.ToggleCategory, k.Select, k.Open, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Query, k.Find, k.CycleSort},
		{k.NextCategory, k.PrevCategory, k.ToggleCategory},
		{k.Select, k.Open, k.OpenImage},
		{k.ClearError, k.Back, k.Help, k.Quit},
	}
}

type KeyHandler struct {
	app  *App
	keys KeyMap
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, keys: NewKeyMap(cfg.Keys.Bindings)}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return kh.app, tea.Quit
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewQuery:
		return true
	case ViewFind:
		return kh.app.findInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch msg.Type {
	case tea.KeyEsc:
		return kh.navigateBack()
	case tea.KeyEnter:
		if a.view == ViewQuery {
			return a, a.submitQuery(a.queryInput.Value())
		}
		if items := a.findList.Items(); len(items) > 0 {
			if i, ok := items[0].(findItem); ok {
				return a, a.openReaderFromFind(i.result.Index)
			}
		}
		return a, nil
	case tea.KeyTab, tea.KeyDown:
		if a.view == ViewFind && len(a.findList.Items()) > 0 {
			a.findInput.Blur()
			a.findList.Select(0)
			return a, nil
		}
	}
	return kh.delegateToTextInput(msg)
}

func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	var cmd tea.Cmd

	switch a.view {
	case ViewQuery:
		prev := a.queryInput.Value()
		a.queryInput, cmd = a.queryInput.Update(msg)
		if a.queryInput.Value() != prev {
			// a typed query no longer matches the chip
			a.chips.Deselect()
		}
		return a, cmd

	case ViewFind:
		prev := a.findInput.Value()
		a.findInput, cmd = a.findInput.Update(msg)
		if q := a.findInput.Value(); q != prev {
			return a, tea.Batch(cmd, a.performFind(q))
		}
		return a, cmd
	}
	return a, nil
}

func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	k := kh.keys

	switch {
	case key.Matches(msg, k.Quit):
		return a, tea.Quit, true
	case key.Matches(msg, k.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil, true
	case key.Matches(msg, k.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case key.Matches(msg, k.ClearError):
		a.clearError()
		return a, nil, true
	}

	switch a.view {
	case ViewResults:
		return kh.handleResultsCustomKeys(msg)
	case ViewReader:
		return kh.handleReaderCustomKeys(msg)
	case ViewFind:
		return kh.handleFindCustomKeys(msg)
	}
	return a, nil, false
}

func (kh *KeyHandler) handleResultsCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	k := kh.keys

	switch {
	case key.Matches(msg, k.Query):
		a.enterQueryMode()
		return a, nil, true
	case key.Matches(msg, k.Find):
		a.enterFindMode()
		return a, nil, true
	case key.Matches(msg, k.NextCategory):
		a.chips.Next()
		return a, nil, true
	case key.Matches(msg, k.PrevCategory):
		a.chips.Prev()
		return a, nil, true
	case key.Matches(msg, k.ToggleCategory):
		return a, a.toggleChip(), true
	case key.Matches(msg, k.CycleSort):
		return a, a.cycleSort(), true
	case key.Matches(msg, k.Open):
		if art, ok := a.selectedArticle(); ok {
			return a, a.openArticle(art), true
		}
		return a, nil, true
	case key.Matches(msg, k.OpenImage):
		if art, ok := a.selectedArticle(); ok {
			return a, a.openImage(art), true
		}
		return a, nil, true
	case key.Matches(msg, k.Select):
		if i, ok := a.resultsList.SelectedItem().(articleItem); ok {
			return a, a.openReader(i.index, ViewResults), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleReaderCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	if a.currentArticle == nil {
		return a, nil, false
	}

	switch {
	case key.Matches(msg, kh.keys.Open):
		return a, a.openArticle(*a.currentArticle), true
	case key.Matches(msg, kh.keys.OpenImage):
		return a, a.openImage(*a.currentArticle), true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleFindCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Query), key.Matches(msg, kh.keys.Find), msg.Type == tea.KeyTab:
		a.findInput.Focus()
		return a, nil, true
	case msg.Type == tea.KeyUp && a.findList.Index() == 0:
		a.findInput.Focus()
		return a, nil, true
	case key.Matches(msg, kh.keys.Select):
		if i, ok := a.findList.SelectedItem().(findItem); ok {
			return a, a.openReaderFromFind(i.result.Index), true
		}
		return a, nil, true
	}
	return a, nil, false
}

// delegateToCharm lets the bubbles components handle the remaining keys.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	var cmd tea.Cmd

	switch a.view {
	case ViewResults:
		a.resultsList, cmd = a.resultsList.Update(msg)
		a.maybeLoadMore()
		return a, cmd
	case ViewFind:
		a.findList, cmd = a.findList.Update(msg)
		return a, cmd
	case ViewReader:
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app

	switch a.view {
	case ViewQuery:
		a.queryInput.Blur()
		a.queryInput.SetValue(a.activeQuery)
		a.view = ViewResults
	case ViewFind:
		a.findInput.Blur()
		a.view = ViewResults
	case ViewReader:
		a.view = a.previousView
		a.currentArticle = nil
		a.loadingArticle = false
		if a.view == ViewFind {
			a.findInput.Blur()
		}
	case ViewResults:
		a.err = nil
	}
	return a, nil
}

// HelpView renders the key help for the current view.
func (kh *KeyHandler) HelpView() string {
	a := kh.app
	switch a.view {
	case ViewQuery:
		return renderHelp("enter: search • esc: cancel")
	case ViewFind:
		if a.findInput.Focused() {
			return renderHelp("type to find in loaded articles • tab/↓: results • esc: back")
		}
		return renderHelp("↑↓: navigate • enter: read • tab: find box • esc: back")
	case ViewReader:
		return a.help.ShortHelpView([]key.Binding{kh.keys.Open, kh.keys.OpenImage, kh.keys.Back, kh.keys.Quit})
	}
	return a.help.View(kh.keys)
}
