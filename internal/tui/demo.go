// Package tui implements the interactive demo playground. A built-in sample
// is fed through the parser a few bytes at a tick, and the screen shows what
// the event stream looks like to a consumer: finished elements render once
// and never repaint, only the open element changes.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/streammd/streammd/internal/render"
	"github.com/streammd/streammd/parser"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	dimStyle = lipgloss.NewStyle().
			Faint(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	eventTypeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// tickMsg advances the stream by one chunk.
type tickMsg time.Time

// ViewMode determines what the UI is showing.
type ViewMode int

const (
	ViewPick ViewMode = iota
	ViewPlay
)

// Model is the Bubble Tea model for the demo playground.
type Model struct {
	width  int
	height int

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	samples  []Sample
	filtered []Sample
	cursor   int
	viewMode ViewMode

	chunkSize int
	tick      time.Duration

	// Play state
	sample   Sample
	p        *parser.Parser
	ansi     *render.ANSIRenderer
	rendered strings.Builder // finished-element output, append-only
	fed      int
	playing  bool
	done     bool
	docView  bool // viewport shows the glamour-rendered document instead
	err      error

	// Open elements, for the in-progress preview
	openOrder []string
	openPart  map[string]string

	log      []string // recent event lines
	events   int
	elements int
}

// New creates a demo model. Chunk size and tick control how fast the sample
// streams.
func New(chunkSize int, tick time.Duration) *Model {
	width, height := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}

	ti := textinput.New()
	ti.Placeholder = "Type to filter samples..."
	ti.Focus()
	ti.CharLimit = 60
	ti.Width = width - 10

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(width-2, height-10)

	if chunkSize <= 0 {
		chunkSize = 3
	}
	if tick <= 0 {
		tick = 40 * time.Millisecond
	}

	samples := Samples()
	return &Model{
		width:     width,
		height:    height,
		input:     ti,
		spinner:   s,
		viewport:  vp,
		samples:   samples,
		filtered:  samples,
		chunkSize: chunkSize,
		tick:      tick,
		viewMode:  ViewPick,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 10
		m.viewport.Width = m.width - 2
		m.viewport.Height = m.height - 10
		if m.viewMode == ViewPlay {
			m.refreshViewport()
		}
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if m.viewMode == ViewPick {
			return m.updatePickView(key, msg)
		}
		return m.updatePlayView(key, msg)

	case tickMsg:
		if m.viewMode == ViewPlay && m.playing && !m.done {
			m.advance()
			return m, m.scheduleTick()
		}

	case spinner.TickMsg:
		if m.playing && !m.done {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updatePickView(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "q":
		if m.input.Value() == "" {
			return m, tea.Quit
		}
		m.input.SetValue("")
		m.applyFilter()
		return m, nil
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if len(m.filtered) > 0 && m.cursor < len(m.filtered) {
			return m, m.startPlay(m.filtered[m.cursor])
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Model) updatePlayView(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc":
		m.viewMode = ViewPick
		m.playing = false
		return m, nil
	case " ":
		if !m.done {
			m.playing = !m.playing
			if m.playing {
				return m, tea.Batch(m.scheduleTick(), m.spinner.Tick)
			}
		}
		return m, nil
	case "r":
		return m, m.startPlay(m.sample)
	case "d":
		m.docView = !m.docView
		m.refreshViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// startPlay resets play state and begins streaming the sample.
func (m *Model) startPlay(sample Sample) tea.Cmd {
	p, err := parser.New(render.ParserOptions()...)
	if err != nil {
		m.err = err
		return nil
	}

	m.sample = sample
	m.p = p
	m.rendered.Reset()
	m.ansi = render.NewANSI(&m.rendered,
		render.WithWidth(m.viewport.Width-2),
		render.WithAnnotations(true))
	m.fed = 0
	m.err = nil
	m.done = false
	m.docView = false
	m.playing = true
	m.viewMode = ViewPlay
	m.openOrder = nil
	m.openPart = make(map[string]string)
	m.log = nil
	m.events = 0
	m.elements = 0
	m.refreshViewport()

	return tea.Batch(m.scheduleTick(), m.spinner.Tick)
}

func (m *Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// advance feeds the next chunk into the parser and absorbs its events.
func (m *Model) advance() {
	text := m.sample.Text
	if m.fed < len(text) {
		end := m.fed + m.chunkSize
		if end > len(text) {
			end = len(text)
		}
		events, err := m.p.ProcessChunk(text[m.fed:end])
		if err != nil {
			m.err = err
			m.playing = false
			return
		}
		m.fed = end
		m.absorb(events.Collect())
	}
	if m.fed >= len(text) && !m.done {
		events, err := m.p.Complete()
		if err != nil {
			m.err = err
			m.playing = false
			return
		}
		m.absorb(events.Collect())
		m.done = true
		m.playing = false
		if err := m.ansi.Flush(); err != nil {
			m.err = err
		}
	}
	m.refreshViewport()
}

// absorb routes events to the renderer, the open-element previews, and the
// event log.
func (m *Model) absorb(events []parser.Event) {
	for _, ev := range events {
		m.events++
		switch ev.Type {
		case parser.EventBegin:
			m.elements++
			m.openOrder = append(m.openOrder, ev.ElementID)
			m.openPart[ev.ElementID] = ""
		case parser.EventDelta:
			m.openPart[ev.ElementID] += ev.Content
		case parser.EventEnd:
			delete(m.openPart, ev.ElementID)
			for i, id := range m.openOrder {
				if id == ev.ElementID {
					m.openOrder = append(m.openOrder[:i], m.openOrder[i+1:]...)
					break
				}
			}
		}
		if err := m.ansi.Render(ev); err != nil {
			m.err = err
		}
		m.log = append(m.log, eventLine(ev))
	}
	if len(m.log) > 500 {
		m.log = m.log[len(m.log)-500:]
	}
}

// refreshViewport rebuilds the viewport content and follows the tail.
func (m *Model) refreshViewport() {
	if m.docView {
		m.viewport.SetContent(render.RenderMarkdown(m.sample.Text, m.viewport.Width-2))
		m.viewport.GotoTop()
		return
	}

	var b strings.Builder
	b.WriteString(m.rendered.String())
	if preview := m.openPreview(); preview != "" {
		b.WriteString(dimStyle.Render(preview))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// openPreview shows the partial content of the newest open element. It is
// the only part of the screen that repaints between events.
func (m *Model) openPreview() string {
	for i := len(m.openOrder) - 1; i >= 0; i-- {
		if part := m.openPart[m.openOrder[i]]; part != "" {
			return part + "▌"
		}
	}
	if len(m.openOrder) > 0 {
		return "▌"
	}
	return ""
}

func (m *Model) applyFilter() {
	m.filtered = FilterSamples(m.input.Value(), m.samples)
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
	}
}

func (m *Model) View() string {
	if m.viewMode == ViewPick {
		return m.viewPick()
	}
	return m.viewPlay()
}

func (m *Model) viewPick() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("streammd demo"))
	b.WriteString(mutedStyle.Render("  pick a sample"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("No samples match %q.", m.input.Value())))
		b.WriteString("\n")
	}
	for i, sample := range m.filtered {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + sample.Name))
		} else {
			b.WriteString("  " + sample.Name)
		}
		b.WriteString(mutedStyle.Render("  " + sample.Desc))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("[↑↓] select  [Enter] play  [Esc] quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) viewPlay() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("streammd demo"))
	b.WriteString(mutedStyle.Render("  " + m.sample.Name))
	if m.docView {
		b.WriteString(mutedStyle.Render("  (document)"))
	}
	b.WriteString("\n")

	// Status line
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.done:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("done  %d bytes  %d events  %d elements",
			m.fed, m.events, m.elements)))
	case m.playing:
		b.WriteString(m.spinner.View())
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" %d/%d bytes  %d events  %d elements",
			m.fed, len(m.sample.Text), m.events, m.elements)))
	default:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("paused  %d/%d bytes  %d events  %d elements",
			m.fed, len(m.sample.Text), m.events, m.elements)))
	}
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	// Recent events
	if !m.docView {
		tail := m.log
		if len(tail) > 4 {
			tail = tail[len(tail)-4:]
		}
		for _, line := range tail {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(helpStyle.Render("[Space] pause  [r] restart  [d] document  [↑↓] scroll  [Esc] back"))
	b.WriteString("\n")
	return b.String()
}

// eventLine formats one event for the log pane.
func eventLine(ev parser.Event) string {
	var detail string
	switch ev.Type {
	case parser.EventBegin:
		detail = string(ev.Element)
	case parser.EventDelta:
		detail = fmt.Sprintf("+%d bytes", len(ev.Content))
	case parser.EventEnd:
		detail = preview(ev.FinalContent, 36)
	case parser.EventAnnotation:
		if ev.Annotation != nil {
			detail = fmt.Sprintf("%s %s", ev.Annotation.Kind, preview(ev.Annotation.Text, 36))
		}
	}
	return fmt.Sprintf("  %s %s %s",
		eventTypeStyle.Render(fmt.Sprintf("%-10s", ev.Type)),
		mutedStyle.Render(fmt.Sprintf("%-8s", ev.ElementID)),
		detail)
}

// preview flattens and truncates content for a log line.
func preview(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", "⏎")
	if len(s) > max {
		return s[:max-1] + "…"
	}
	return s
}

// RunDemo runs the demo playground TUI.
func RunDemo(chunkSize int, tick time.Duration) error {
	model := New(chunkSize, tick)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
