package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/pders01/roundnews/internal/config"
)

func TestNewKeyMap_UsesConfiguredKeys(t *testing.T) {
	b := config.TestConfig().Keys.Bindings
	b.Query = "ctrl+s"
	b.CycleSort = "S"
	km := NewKeyMap(b)

	assert.Equal(t, []string{"ctrl+s"}, km.Query.Keys())
	assert.Equal(t, []string{"S"}, km.CycleSort.Keys())
	assert.Equal(t, []string{"enter"}, km.Select.Keys())
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlS}, km.Query))
}

func TestKeyHandler_CustomQueryKey(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Keys.Bindings.Query = "ctrl+s"
	app := NewApp(cfg, newFakeController(), &fakeOpener{})

	app.Update(keyRunes("/"))
	assert.Equal(t, ViewResults, app.view, "default key no longer bound")

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, ViewQuery, app.view)
}

func TestKeyHandler_TextInputSwallowsShortcuts(t *testing.T) {
	app, ctrl, _ := newTestApp(t)

	app.Update(keyRunes("/"))
	for _, r := range "qcsef" {
		app.Update(keyRunes(string(r)))
	}

	assert.Equal(t, ViewQuery, app.view)
	assert.Equal(t, "qcsef", app.queryInput.Value())
	assert.Empty(t, ctrl.searches)
	assert.Equal(t, 0, ctrl.clears)
}

func TestKeyHandler_CtrlCAlwaysQuits(t *testing.T) {
	for _, view := range []View{ViewResults, ViewQuery, ViewReader, ViewFind} {
		t.Run(view.String(), func(t *testing.T) {
			app, _, _ := newTestApp(t)
			app.view = view
			if view == ViewQuery {
				app.queryInput.Focus()
			}
			_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
			if assert.NotNil(t, cmd) {
				assert.Equal(t, tea.Quit(), cmd())
			}
		})
	}
}

func TestKeyHandler_Help(t *testing.T) {
	app, _, _ := newTestApp(t)
	assert.False(t, app.help.ShowAll)

	app.Update(keyRunes("?"))
	assert.True(t, app.help.ShowAll)
	assert.Contains(t, app.keyHandler.HelpView(), "find loaded")

	app.Update(keyRunes("?"))
	assert.False(t, app.help.ShowAll)
}

func TestKeyHandler_HelpViewPerView(t *testing.T) {
	app, _, _ := newTestApp(t)

	app.view = ViewQuery
	assert.Contains(t, app.keyHandler.HelpView(), "enter: search")

	app.view = ViewFind
	app.findInput.Focus()
	assert.Contains(t, app.keyHandler.HelpView(), "type to find")
	app.findInput.Blur()
	assert.Contains(t, app.keyHandler.HelpView(), "enter: read")

	app.view = ViewReader
	assert.Contains(t, app.keyHandler.HelpView(), "image")
}

func TestKeyHandler_FindListFocus(t *testing.T) {
	app, _, _ := newTestApp(t)
	send(app, stateMsg{state: loaded(1, makeArticles(3), 3), ok: true})

	app.Update(keyRunes("f"))
	app.Update(keyRunes("story"))
	app.Update(app.performFind("story")())
	if !assert.NotEmpty(t, app.findList.Items()) {
		return
	}

	app.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.False(t, app.findInput.Focused(), "down moves focus to the list")
	assert.Equal(t, 0, app.findList.Index())

	app.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.True(t, app.findInput.Focused(), "up on the first row returns to the input")
}

func TestKeyHandler_BackFromResultsClearsError(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.err = assert.AnError

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, app.err)
	assert.Equal(t, ViewResults, app.view)
}
