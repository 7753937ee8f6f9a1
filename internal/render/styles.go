package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme defines the color palette for rendered output
type Theme struct {
	Heading lipgloss.Color // headers and their markers
	Code    lipgloss.Color // code block text
	Quote   lipgloss.Color // blockquote text
	Link    lipgloss.Color // link text
	Accent  lipgloss.Color // rules, table borders, list bullets
	Muted   lipgloss.Color // annotations, urls, secondary text
	Text    lipgloss.Color // body text
}

// DefaultTheme returns the default color theme (gruvbox)
func DefaultTheme() *Theme {
	return &Theme{
		Heading: lipgloss.Color("#b8bb26"), // gruvbox green
		Code:    lipgloss.Color("#fabd2f"), // gruvbox yellow
		Quote:   lipgloss.Color("#928374"), // gruvbox gray
		Link:    lipgloss.Color("#83a598"), // gruvbox aqua
		Accent:  lipgloss.Color("#83a598"), // gruvbox aqua
		Muted:   lipgloss.Color("#928374"), // gruvbox gray
		Text:    lipgloss.Color("#ebdbb2"), // gruvbox foreground
	}
}

// ThemeConfig mirrors config.ThemeConfig for applying overrides without an
// import cycle.
type ThemeConfig struct {
	Heading string
	Code    string
	Quote   string
	Link    string
	Accent  string
	Muted   string
}

// ThemeFromConfig creates a theme with config overrides applied
func ThemeFromConfig(cfg ThemeConfig) *Theme {
	theme := DefaultTheme()

	if cfg.Heading != "" {
		theme.Heading = lipgloss.Color(cfg.Heading)
	}
	if cfg.Code != "" {
		theme.Code = lipgloss.Color(cfg.Code)
	}
	if cfg.Quote != "" {
		theme.Quote = lipgloss.Color(cfg.Quote)
	}
	if cfg.Link != "" {
		theme.Link = lipgloss.Color(cfg.Link)
	}
	if cfg.Accent != "" {
		theme.Accent = lipgloss.Color(cfg.Accent)
	}
	if cfg.Muted != "" {
		theme.Muted = lipgloss.Color(cfg.Muted)
	}

	return theme
}

// styles bundles the per-element lipgloss styles derived from a theme.
type styles struct {
	heading lipgloss.Style
	code    lipgloss.Style
	quote   lipgloss.Style
	link    lipgloss.Style
	em      lipgloss.Style
	strong  lipgloss.Style
	strike  lipgloss.Style
	rule    lipgloss.Style
	muted   lipgloss.Style
	text    lipgloss.Style
}

func newStyles(theme *Theme) styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	return styles{
		heading: lipgloss.NewStyle().Bold(true).Foreground(theme.Heading),
		code:    lipgloss.NewStyle().Foreground(theme.Code),
		quote:   lipgloss.NewStyle().Italic(true).Foreground(theme.Quote),
		link:    lipgloss.NewStyle().Underline(true).Foreground(theme.Link),
		em:      lipgloss.NewStyle().Italic(true),
		strong:  lipgloss.NewStyle().Bold(true),
		strike:  lipgloss.NewStyle().Strikethrough(true),
		rule:    lipgloss.NewStyle().Foreground(theme.Accent),
		muted:   lipgloss.NewStyle().Faint(true).Foreground(theme.Muted),
		text:    lipgloss.NewStyle(),
	}
}

// ColorEnabled reports whether the environment wants styled output at all.
// NO_COLOR and dumb terminals turn it off.
func ColorEnabled() bool {
	return !termenv.EnvNoColor() && termenv.ColorProfile() != termenv.Ascii
}
