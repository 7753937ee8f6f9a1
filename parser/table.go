package parser

import "strings"

// tableBuilder emits the nested element structure for structured table
// output: one table element containing table_head and table_body sections,
// rows, and cols. Containers carry no content of their own; cols carry the
// trimmed cell text. The first row is withheld until the following line is
// known, because a separator line retypes it as the head row. table_foot is
// reserved for custom matchers and never produced here.
type tableBuilder struct {
	m        *elementStateMachine
	nextID   func() string
	annotate func(el *element, final string)

	tableID   string
	sectionID string
	firstRow  string
	pending   bool // first row held, table not yet begun
	started   bool
	aligns    []string
}

func newTableBuilder(m *elementStateMachine, nextID func() string, annotate func(el *element, final string)) *tableBuilder {
	return &tableBuilder{m: m, nextID: nextID, annotate: annotate}
}

// active reports whether a table is in progress, held or begun.
func (b *tableBuilder) active() bool { return b.pending || b.started }

// addLine feeds the next complete pipe-led line of the current table.
func (b *tableBuilder) addLine(line string) {
	if !b.started && !b.pending {
		b.firstRow = line
		b.pending = true
		return
	}
	if b.pending {
		b.pending = false
		if aligns, ok := parseTableSeparator(line); ok {
			b.aligns = aligns
			b.begin(len(aligns))
			b.openSection(ElementTableHead)
			b.emitRow(b.firstRow)
			b.closeSection()
			b.openSection(ElementTableBody)
			return
		}
		b.begin(len(splitTableCells(b.firstRow)))
		b.openSection(ElementTableBody)
		b.emitRow(b.firstRow)
		b.emitRow(line)
		return
	}
	b.emitRow(line)
}

// finish closes out the table, first flushing a held lone row if no second
// line ever arrived.
func (b *tableBuilder) finish() {
	if b.pending {
		b.pending = false
		b.begin(len(splitTableCells(b.firstRow)))
		b.openSection(ElementTableBody)
		b.emitRow(b.firstRow)
	}
	if !b.started {
		return
	}
	b.closeSection()
	b.m.end(b.tableID, b.annotate)
	b.reset()
}

func (b *tableBuilder) reset() {
	b.tableID, b.sectionID, b.firstRow = "", "", ""
	b.pending, b.started = false, false
	b.aligns = nil
}

func (b *tableBuilder) begin(columns int) {
	b.tableID = b.nextID()
	b.m.begin(b.tableID, ElementTable, map[string]any{"columns": columns}, false)
	b.started = true
}

func (b *tableBuilder) openSection(typ ElementType) {
	b.sectionID = b.nextID()
	b.m.begin(b.sectionID, typ, nil, false)
}

func (b *tableBuilder) closeSection() {
	if b.sectionID == "" {
		return
	}
	b.m.end(b.sectionID, nil)
	b.sectionID = ""
}

func (b *tableBuilder) emitRow(line string) {
	cells := splitTableCells(line)
	if n := len(b.aligns); n > 0 {
		// Rows conform to the header width: short rows pad out with empty
		// cells, long rows drop the extras.
		for len(cells) < n {
			cells = append(cells, "")
		}
		cells = cells[:n]
	}
	rowID := b.nextID()
	b.m.begin(rowID, ElementTableRow, nil, false)
	for i, cell := range cells {
		var meta map[string]any
		if i < len(b.aligns) && b.aligns[i] != "" {
			meta = map[string]any{"align": b.aligns[i]}
		}
		colID := b.nextID()
		b.m.begin(colID, ElementTableCol, meta, false)
		b.m.appendContent(colID, cell)
		b.m.end(colID, b.annotate)
	}
	b.m.end(rowID, nil)
}

// splitTableCells splits a pipe row into trimmed cell strings. Outer pipes
// are decorative; \| escapes a literal pipe inside a cell.
func splitTableCells(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	var cells []string
	var cell strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '|':
			cell.WriteByte('|')
			i++
		case s[i] == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(s[i])
		}
	}
	last := strings.TrimSpace(cell.String())
	if last != "" || !strings.HasSuffix(s, "|") {
		cells = append(cells, last)
	}
	return cells
}

// parseTableSeparator recognizes a header separator row like |---|:--:| and
// returns the per-column alignments: "left", "center", "right", or "" for
// unspecified.
func parseTableSeparator(line string) ([]string, bool) {
	cells := splitTableCells(line)
	if len(cells) == 0 {
		return nil, false
	}
	aligns := make([]string, len(cells))
	for i, cell := range cells {
		align, ok := separatorAlign(cell)
		if !ok {
			return nil, false
		}
		aligns[i] = align
	}
	return aligns, true
}

func separatorAlign(cell string) (string, bool) {
	if cell == "" {
		return "", false
	}
	left := cell[0] == ':'
	right := len(cell) > 1 && cell[len(cell)-1] == ':'
	body := strings.Trim(cell, ":")
	if body == "" || strings.Trim(body, "-") != "" {
		return "", false
	}
	switch {
	case left && right:
		return "center", true
	case left:
		return "left", true
	case right:
		return "right", true
	}
	return "", true
}
