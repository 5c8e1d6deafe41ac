package tui

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

//go:embed categories.toml
var categoriesTOML []byte

type Category struct {
	Name  string `toml:"name"`
	Label string `toml:"label"`
	Query string `toml:"query"`
}

func loadCategories() ([]Category, error) {
	var doc struct {
		Categories []Category `toml:"categories"`
	}
	if err := toml.Unmarshal(categoriesTOML, &doc); err != nil {
		return nil, fmt.Errorf("parsing categories.toml: %w", err)
	}
	return doc.Categories, nil
}

// Chips is the category selector. At most one chip is selected; cursor
// marks the chip the toggle key acts on.
type Chips struct {
	categories []Category
	cursor     int
	selected   int
}

func NewChips(categories []Category) *Chips {
	return &Chips{categories: categories, selected: -1}
}

func (c *Chips) Len() int { return len(c.categories) }

func (c *Chips) Next() {
	if len(c.categories) > 0 {
		c.cursor = (c.cursor + 1) % len(c.categories)
	}
}

func (c *Chips) Prev() {
	if len(c.categories) > 0 {
		c.cursor = (c.cursor - 1 + len(c.categories)) % len(c.categories)
	}
}

// Toggle flips the chip under the cursor and returns the query to search
// for: the chip's query when it became selected, "" when it was deselected.
func (c *Chips) Toggle() (string, bool) {
	if len(c.categories) == 0 {
		return "", false
	}
	if c.selected == c.cursor {
		c.selected = -1
		return "", true
	}
	c.selected = c.cursor
	return c.categories[c.cursor].Query, true
}

func (c *Chips) Deselect() { c.selected = -1 }

// Selected returns the selected category, if any.
func (c *Chips) Selected() (Category, bool) {
	if c.selected < 0 || c.selected >= len(c.categories) {
		return Category{}, false
	}
	return c.categories[c.selected], true
}

func (c *Chips) View(width int) string {
	rendered := make([]string, 0, len(c.categories))
	for i, cat := range c.categories {
		style := ChipStyle
		switch {
		case i == c.selected:
			style = ChipSelectedStyle
		case i == c.cursor:
			style = ChipCursorStyle
		}
		rendered = append(rendered, style.Render(cat.Label))
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	if width > 0 && lipgloss.Width(row) > width {
		// fall back to a plain line when the chips do not fit
		labels := make([]string, 0, len(c.categories))
		for i, cat := range c.categories {
			label := cat.Label
			if i == c.selected {
				label = "[" + label + "]"
			}
			labels = append(labels, label)
		}
		return truncateEnd(strings.Join(labels, " · "), width)
	}
	return row
}
