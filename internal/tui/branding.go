package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/roundnews/internal/config"
)

const AppName = "roundnews"

var LogoLines = []string{
	"▄▄▄▄▄   ▄▄▄▄▄  ▄   ▄  ▄▄▄▄▄",
	"██  ██ ██▀ ▀██ ██  ██ ██  ██",
	"██▀▀▄▄ ██   ██ ██  ██ ██  ██",
	"██  ██ ▀██▄██▀ ▀██▄█▀ ██  ██",
	"              news",
}

const CompactLogo = "roundnews ›"

// Brand colors, overridden from config by ApplyTheme.
var (
	PrimaryColor   = lipgloss.Color("#FF6B6B")
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#95E1D3")

	BackgroundColor = lipgloss.Color("#1A1A2E")
	SurfaceColor    = lipgloss.Color("#16213E")
	TextColor       = lipgloss.Color("#EAEAEA")
	MutedColor      = lipgloss.Color("#94A3B8")

	HighlightColor = lipgloss.Color("#FFE66D")
	ErrorColor     = lipgloss.Color("#F87171")
	SuccessColor   = lipgloss.Color("#4ADE80")
)

var (
	LogoStyle          lipgloss.Style
	TitleStyle         lipgloss.Style
	HeaderStyle        lipgloss.Style
	StatusBarStyle     lipgloss.Style
	ArticleTitleStyle  lipgloss.Style
	HelpStyle          lipgloss.Style
	TimeStyle          lipgloss.Style
	ChipStyle          lipgloss.Style
	ChipSelectedStyle  lipgloss.Style
	ChipCursorStyle    lipgloss.Style
	ErrorMessageStyle  lipgloss.Style
	SeparatorStyle     lipgloss.Style
	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style
)

func init() {
	buildStyles()
}

// ApplyTheme replaces the brand colors with the configured ones. Empty
// values keep the built-in color.
func ApplyTheme(c config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, c.Primary)
	set(&SecondaryColor, c.Secondary)
	set(&AccentColor, c.Accent)
	set(&BackgroundColor, c.Background)
	set(&SurfaceColor, c.Surface)
	set(&TextColor, c.Text)
	set(&MutedColor, c.Muted)
	set(&ErrorColor, c.Error)
	set(&SuccessColor, c.Success)
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true)

	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Bold(true).
		Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Padding(0, 1)

	ArticleTitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true)

	HelpStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	TimeStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Faint(true)

	ChipStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Padding(0, 1)

	ChipSelectedStyle = ChipStyle.
		Foreground(BackgroundColor).
		Background(AccentColor).
		BorderForeground(AccentColor).
		Bold(true)

	ChipCursorStyle = ChipStyle.
		Foreground(HighlightColor).
		BorderForeground(HighlightColor)

	ErrorMessageStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)

	SeparatorStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	StatusInfoStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	StatusSuccessStyle = lipgloss.NewStyle().
		Foreground(SuccessColor)

	StatusWarnStyle = lipgloss.NewStyle().
		Foreground(HighlightColor)

	StatusErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)
}

func GetWelcomeMessage(queryKey string) string {
	return GetCompactBanner(fmt.Sprintf("Press %s to search the news", queryKey))
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	return lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, coloredLines...),
		"",
		HelpStyle.Render(message),
	)
}

// ShowBanner writes the boxed logo with the version tagline to w.
func ShowBanner(w io.Writer, version string) {
	lines := append([]string{}, LogoLines...)
	lines = append(lines, "")

	tagline := "    News search in your terminal"
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tagline += " " + version
	}
	lines = append(lines, tagline)

	gradient := []lipgloss.Color{PrimaryColor, HighlightColor, AccentColor, SecondaryColor}
	colored := make([]string, 0, len(lines))
	for i, line := range lines {
		if line == "" {
			colored = append(colored, line)
			continue
		}
		colored = append(colored, lipgloss.NewStyle().
			Foreground(gradient[i%len(gradient)]).
			Bold(i < len(LogoLines)).
			Render(line))
	}

	border := lipgloss.Border{
		Top:         "═",
		Bottom:      "═",
		Left:        "║",
		Right:       "║",
		TopLeft:     "╔",
		TopRight:    "╗",
		BottomLeft:  "╚",
		BottomRight: "╝",
	}
	box := lipgloss.NewStyle().
		Border(border).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1).
		Render(lipgloss.JoinVertical(lipgloss.Center, colored...))

	center := lipgloss.NewStyle().Width(70).Align(lipgloss.Center)
	fmt.Fprintln(w, center.Render(box))
	fmt.Fprintln(w, center.MarginBottom(1).Render(SeparatorStyle.Render("◆ ◇ ◆ ◇ ◆")))
}
