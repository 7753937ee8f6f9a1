package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/streammd/streammd/parser"
)

// ANSIRenderer converts a parser event stream into styled terminal output.
// Inline siblings (text, links, emphasis) flow together into paragraphs;
// block elements render on their End event. The renderer only needs End
// events to be in document order, which the parser guarantees no matter how
// the input was chunked.
type ANSIRenderer struct {
	out    io.Writer
	width  int
	styles styles

	showAnnotations bool

	para        strings.Builder                // styled inline runs of the open paragraph
	pending     map[string]*pendingEl          // element metadata by id
	table       *tableGrid                     // open structured table, if any
	anns        map[string][]parser.Annotation // annotations by element id
	afterInline bool                           // last flow element was an inline sibling
	prevList    bool                           // last written block was a list item
	wrote       bool                           // anything emitted yet
}

type pendingEl struct {
	typ  parser.ElementType
	meta map[string]any
}

// tableGrid collects a structured table's cells until the table closes.
type tableGrid struct {
	head   [][]string
	body   [][]string
	row    []string
	inHead bool
}

// ANSIOption configures an ANSIRenderer.
type ANSIOption func(*ANSIRenderer)

// WithWidth sets the wrap width. Zero disables wrapping.
func WithWidth(w int) ANSIOption {
	return func(r *ANSIRenderer) { r.width = w }
}

// WithTheme overrides the default color theme.
func WithTheme(theme *Theme) ANSIOption {
	return func(r *ANSIRenderer) { r.styles = newStyles(theme) }
}

// WithAnnotations prints annotations that carry no url as muted notes under
// their element. Annotations with a url always fold into the content as
// links, whether or not notes are shown.
func WithAnnotations(show bool) ANSIOption {
	return func(r *ANSIRenderer) { r.showAnnotations = show }
}

func NewANSI(out io.Writer, opts ...ANSIOption) *ANSIRenderer {
	r := &ANSIRenderer{
		out:     out,
		styles:  newStyles(nil),
		pending: make(map[string]*pendingEl),
		anns:    make(map[string][]parser.Annotation),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParserOptions is the parser configuration renderers expect: paragraph
// splitting off, so blank-line runs survive inside text content and mark
// paragraph breaks exactly even around inline siblings.
func ParserOptions() []parser.Option {
	return []parser.Option{parser.WithSplitParagraphs(false)}
}

// Render consumes one event.
func (r *ANSIRenderer) Render(ev parser.Event) error {
	switch ev.Type {
	case parser.EventBegin:
		r.pending[ev.ElementID] = &pendingEl{typ: ev.Element, meta: ev.Metadata}
		if ev.Element == parser.ElementText && r.para.Len() > 0 && !r.afterInline {
			// Two plain text elements back to back means the paragraph
			// between them closed.
			return r.flushPara()
		}
		if r.table == nil && ev.Element == parser.ElementTable {
			r.table = &tableGrid{}
		}
		if r.table != nil && ev.Element == parser.ElementTableHead {
			r.table.inHead = true
		}

	case parser.EventAnnotation:
		if ev.Annotation != nil {
			r.anns[ev.ElementID] = append(r.anns[ev.ElementID], *ev.Annotation)
		}

	case parser.EventEnd:
		el := r.pending[ev.ElementID]
		delete(r.pending, ev.ElementID)
		if el == nil {
			return nil
		}
		return r.endElement(el, ev)
	}
	return nil
}

// RenderAll consumes a whole event sequence.
func (r *ANSIRenderer) RenderAll(events []parser.Event) error {
	for _, ev := range events {
		if err := r.Render(ev); err != nil {
			return err
		}
	}
	return nil
}

// Flush terminates any open paragraph. Call once after the last event.
func (r *ANSIRenderer) Flush() error {
	return r.flushPara()
}

// PendingParagraph returns the styled inline flow accumulated since the
// last paragraph break. Live displays show it as the in-progress tail
// while the stream is still arriving.
func (r *ANSIRenderer) PendingParagraph() string {
	return r.para.String()
}

func (r *ANSIRenderer) endElement(el *pendingEl, ev parser.Event) error {
	if r.table != nil {
		switch el.typ {
		case parser.ElementTableCol:
			cell := plainCitations(ev.FinalContent, r.takeAnns(ev.ElementID))
			r.table.row = append(r.table.row, cell)
			return nil
		case parser.ElementTableRow:
			if r.table.inHead {
				r.table.head = append(r.table.head, r.table.row)
			} else {
				r.table.body = append(r.table.body, r.table.row)
			}
			r.table.row = nil
			return nil
		case parser.ElementTableHead:
			r.table.inHead = false
			return nil
		case parser.ElementTableBody, parser.ElementTableFoot:
			return nil
		case parser.ElementTable:
			grid := r.table
			r.table = nil
			anns := r.takeAnns(ev.ElementID)
			if len(grid.head) == 0 && len(grid.body) == 0 {
				// Text-mode tables are a single element of raw lines.
				return r.writeBlock(r.styles.text.Render(ev.FinalContent), r.blockNotes(anns))
			}
			return r.writeBlock(r.renderGrid(grid), r.blockNotes(anns))
		}
	}

	switch el.typ {
	case parser.ElementText:
		r.afterInline = false
		anns := r.takeAnns(ev.ElementID)
		if err := r.appendText(ev.FinalContent, anns); err != nil {
			return err
		}
		for _, note := range r.blockNotes(anns) {
			r.para.WriteString(r.styles.muted.Render(" " + note))
		}
		return nil
	case parser.ElementLink:
		r.afterInline = true
		r.para.WriteString(r.styles.link.Render(ev.FinalContent))
		if url, ok := el.meta["url"].(string); ok && url != "" {
			r.para.WriteString(r.styles.muted.Render(" (" + url + ")"))
		}
		return nil
	case parser.ElementEmphasis:
		r.afterInline = true
		r.para.WriteString(r.styles.em.Render(ev.FinalContent))
		return nil
	case parser.ElementStrong:
		r.afterInline = true
		r.para.WriteString(r.styles.strong.Render(ev.FinalContent))
		return nil
	case parser.ElementStrikethrough:
		r.afterInline = true
		r.para.WriteString(r.styles.strike.Render(ev.FinalContent))
		return nil

	case parser.ElementHeader:
		level, _ := el.meta["level"].(int)
		if level < 1 {
			level = 1
		}
		anns := r.takeAnns(ev.ElementID)
		marker := r.styles.heading.Render(strings.Repeat("#", level) + " ")
		body := r.styledContent(ev.FinalContent, anns, r.styles.heading)
		return r.writeBlock(marker+body, r.blockNotes(anns))
	case parser.ElementCode:
		lang, _ := el.meta["language"].(string)
		return r.writeBlock(r.renderCode(ev.FinalContent, lang), nil)
	case parser.ElementMath:
		return r.writeBlock(r.styles.code.Render(indentLines(ev.FinalContent, "  ")), nil)
	case parser.ElementList:
		anns := r.takeAnns(ev.ElementID)
		return r.writeAnyBlock(r.renderListItem(el.meta, ev.FinalContent, anns), r.blockNotes(anns), true)
	case parser.ElementQuote:
		anns := r.takeAnns(ev.ElementID)
		return r.writeBlock(r.renderQuote(ev.FinalContent, anns), r.blockNotes(anns))
	case parser.ElementHorizontalRule:
		w := r.width
		if w <= 0 {
			w = 40
		}
		return r.writeBlock(r.styles.rule.Render(strings.Repeat("─", w)), nil)
	default:
		// Custom elements render as plain blocks.
		anns := r.takeAnns(ev.ElementID)
		return r.writeBlock(r.styledContent(ev.FinalContent, anns, r.styles.text), r.blockNotes(anns))
	}
}

func (r *ANSIRenderer) takeAnns(id string) []parser.Annotation {
	anns := r.anns[id]
	delete(r.anns, id)
	return anns
}

// blockNotes formats the annotation notes to print under a block. Citations
// and other url-carrying annotations are already folded into the content, so
// only the remaining kinds appear, and only when notes are enabled.
func (r *ANSIRenderer) blockNotes(anns []parser.Annotation) []string {
	if !r.showAnnotations {
		return nil
	}
	var notes []string
	for _, ann := range anns {
		if ann.URL != "" {
			continue
		}
		notes = append(notes, "["+ann.Kind+": "+ann.Text+"]")
	}
	return notes
}

// styledContent styles block content, folding url-carrying annotations into
// display form: the span's raw syntax is replaced by its text plus a muted
// url. Spans without a url stay as they are.
func (r *ANSIRenderer) styledContent(content string, anns []parser.Annotation, style lipgloss.Style) string {
	if len(anns) == 0 {
		return style.Render(content)
	}
	var sb strings.Builder
	pos := 0
	for _, ann := range anns {
		if ann.URL == "" || ann.Start < pos || ann.End > len(content) || ann.Start > ann.End {
			continue
		}
		if ann.Start > pos {
			sb.WriteString(style.Render(content[pos:ann.Start]))
		}
		text := ann.Text
		if text == "" {
			text = content[ann.Start:ann.End]
		}
		sb.WriteString(r.styles.link.Render(text))
		sb.WriteString(r.styles.muted.Render(" (" + ann.URL + ")"))
		pos = ann.End
	}
	if pos < len(content) {
		sb.WriteString(style.Render(content[pos:]))
	}
	return sb.String()
}

// plainCitations folds url-carrying annotation spans without styling, for
// table cells where display-width math runs on the result.
func plainCitations(content string, anns []parser.Annotation) string {
	if len(anns) == 0 {
		return content
	}
	var sb strings.Builder
	pos := 0
	for _, ann := range anns {
		if ann.URL == "" || ann.Start < pos || ann.End > len(content) || ann.Start > ann.End {
			continue
		}
		sb.WriteString(content[pos:ann.Start])
		text := ann.Text
		if text == "" {
			text = content[ann.Start:ann.End]
		}
		sb.WriteString(text + " (" + ann.URL + ")")
		pos = ann.End
	}
	sb.WriteString(content[pos:])
	return sb.String()
}

// appendText adds paragraph text to the inline flow. Runs of two or more
// newlines carried in the content are paragraph breaks; single newlines are
// soft wraps. Breaks arrive in-band when the parser runs with paragraph
// splitting off, which is how the render command configures it.
func (r *ANSIRenderer) appendText(s string, anns []parser.Annotation) error {
	styled := r.styledContent(s, anns, r.styles.text)
	for styled != "" {
		i := strings.Index(styled, "\n\n")
		if i < 0 {
			r.para.WriteString(strings.ReplaceAll(styled, "\n", " "))
			return nil
		}
		if i > 0 {
			r.para.WriteString(strings.ReplaceAll(styled[:i], "\n", " "))
		}
		if err := r.flushPara(); err != nil {
			return err
		}
		styled = strings.TrimLeft(styled[i:], "\n")
	}
	return nil
}

// flushPara wraps and writes the accumulated inline flow as a paragraph.
func (r *ANSIRenderer) flushPara() error {
	if r.para.Len() == 0 {
		return nil
	}
	s := r.para.String()
	r.para.Reset()
	if r.width > 0 {
		s = wordwrap.String(s, r.width)
	}
	r.prevList = false
	if r.wrote {
		if err := r.write("\n"); err != nil {
			return err
		}
	}
	return r.write(s + "\n")
}

// writeBlock flushes the paragraph, then writes a block with a separating
// blank line.
func (r *ANSIRenderer) writeBlock(s string, notes []string) error {
	return r.writeAnyBlock(s, notes, false)
}

// writeAnyBlock writes a block. Consecutive list items stay tight; every
// other adjacency gets a blank line.
func (r *ANSIRenderer) writeAnyBlock(s string, notes []string, list bool) error {
	if err := r.flushPara(); err != nil {
		return err
	}
	if r.wrote && !(list && r.prevList) {
		if err := r.write("\n"); err != nil {
			return err
		}
	}
	r.prevList = list
	if err := r.write(s + "\n"); err != nil {
		return err
	}
	for _, note := range notes {
		if err := r.write(r.styles.muted.Render("  "+note) + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (r *ANSIRenderer) write(s string) error {
	r.wrote = true
	_, err := io.WriteString(r.out, s)
	return err
}

func (r *ANSIRenderer) renderListItem(meta map[string]any, content string, anns []parser.Annotation) string {
	indent := ""
	if level, ok := meta["level"].(int); ok && level > 0 {
		indent = strings.Repeat("  ", level)
	}
	bullet := "•"
	if ordered, _ := meta["ordered"].(bool); ordered {
		if n, ok := meta["number"].(int); ok {
			bullet = fmt.Sprintf("%d.", n)
		} else {
			bullet = "1."
		}
	}
	return indent + r.styles.rule.Render(bullet) + " " + r.styledContent(content, anns, r.styles.text)
}

func (r *ANSIRenderer) renderQuote(content string, anns []parser.Annotation) string {
	lines := strings.Split(r.styledContent(content, anns, r.styles.quote), "\n")
	for i, line := range lines {
		lines[i] = r.styles.rule.Render("│ ") + line
	}
	return strings.Join(lines, "\n")
}

func (r *ANSIRenderer) renderCode(content, lang string) string {
	// Lexers may append a newline the source did not have.
	highlighted := strings.TrimSuffix(highlightCode(content, lang), "\n")
	return indentLines(highlighted, "  ")
}

// renderGrid lays a structured table out with runewidth-aware column
// alignment.
func (r *ANSIRenderer) renderGrid(g *tableGrid) string {
	rows := append(append([][]string{}, g.head...), g.body...)
	if len(rows) == 0 {
		return ""
	}
	widths := columnWidths(rows)

	var sb strings.Builder
	for i, row := range g.head {
		sb.WriteString(r.gridRow(row, widths, r.styles.strong))
		if i == len(g.head)-1 {
			sb.WriteString(r.gridSeparator(widths))
		}
	}
	for _, row := range g.body {
		sb.WriteString(r.gridRow(row, widths, r.styles.text))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (r *ANSIRenderer) gridRow(row []string, widths []int, style lipgloss.Style) string {
	cells := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		cells[i] = style.Render(padCell(cell, widths[i]))
	}
	border := r.styles.rule.Render("│")
	return border + " " + strings.Join(cells, " "+border+" ") + " " + border + "\n"
}

func (r *ANSIRenderer) gridSeparator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return r.styles.rule.Render("├"+strings.Join(parts, "┼")+"┤") + "\n"
}

func columnWidths(rows [][]string) []int {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			w := runewidth.StringWidth(cell)
			if i >= len(widths) {
				widths = append(widths, w)
			} else if w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func padCell(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

func indentLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// VisibleWidth reports the display width of a styled string, ignoring ANSI
// escape sequences.
func VisibleWidth(s string) int {
	return ansi.StringWidth(s)
}
