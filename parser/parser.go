// Package parser implements an incremental markdown parser for streamed
// text. Input arrives in arbitrary chunks, ProcessChunk returns the events
// each chunk releases, and the resulting element stream is identical no
// matter where the chunk boundaries fall: ambiguous input is buffered until
// it resolves instead of being guessed at and corrected later.
package parser

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrCompleted is returned by ProcessChunk once Complete has been called.
// Reset restores the parser to an accepting state.
var ErrCompleted = errors.New("parser already completed")

type blockState int

const (
	stateReady blockState = iota
	stateParagraph
	stateFence
	stateMath
	stateCustomBlock
	stateQuote
	stateTable
	stateTableStructured
)

// Parser turns chunked markdown into a stream of element lifecycle events.
// Each instance is single-use between Resets and not safe for concurrent
// callers.
type Parser struct {
	cfg      config
	matchers []matcherEntry
	machine  *elementStateMachine
	scanner  *inlineScanner
	tables   *tableBuilder
	extract  annotationExtractor

	buf       chunkBuffer
	out       []Event
	idSeq     int
	completed bool

	state        blockState
	blockID      string // open block element outside paragraph flow
	textID       string // open text element inside paragraph flow
	fenceChar    byte
	fenceLen     int
	endMarker    string // closing line for a custom block
	firstBody    bool   // next body line is the block's first
	paraMid      bool   // current paragraph line partially consumed
	pendingBreak string // line breaks held until more paragraph content
	inBlankRun   bool
}

// New builds a Parser. Invalid option values fall back to defaults;
// contradictory combinations return an error.
func New(opts ...Option) (*Parser, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Parser{
		cfg:       cfg,
		matchers:  buildMatchers(cfg.matchers),
		extract:   annotationExtractor{citations: cfg.citations, custom: cfg.detectors},
		firstBody: true,
	}
	p.machine = newElementStateMachine(p.emit, cfg.maxDelta)
	p.scanner = newInlineScanner(p, cfg.enabled, cfg.emphasis == EmphasisStrip)
	p.tables = newTableBuilder(p.machine, p.nextID, p.annotate)
	return p, nil
}

// ProcessChunk feeds the next chunk of markdown text and returns the events
// it released. Chunk boundaries carry no meaning: splitting the same input
// differently changes delta granularity at most, never the elements, their
// order, or their final content.
func (p *Parser) ProcessChunk(chunk string) (*Events, error) {
	if p.completed {
		return nil, ErrCompleted
	}
	p.buf.append(chunk)
	p.run(false)
	return p.drain(), nil
}

// Complete flushes all buffered input, resolving still-ambiguous syntax in
// favor of what has actually been seen, and closes every open element.
// Calling Complete again returns an empty sequence.
func (p *Parser) Complete() (*Events, error) {
	if p.completed {
		return &Events{}, nil
	}
	p.completed = true
	p.buf.seal()
	p.run(true)
	p.closeBlock()
	p.machine.endAll(p.annotate)
	return p.drain(), nil
}

// Reset returns the parser to its initial state. Configuration is kept;
// buffered input, open elements, and the id counter are discarded.
func (p *Parser) Reset() {
	p.buf.reset()
	p.machine.reset()
	p.scanner.reset()
	p.tables.reset()
	p.out = nil
	p.idSeq = 0
	p.completed = false
	p.state = stateReady
	p.blockID, p.textID = "", ""
	p.fenceChar, p.fenceLen = 0, 0
	p.endMarker = ""
	p.firstBody = true
	p.paraMid = false
	p.pendingBreak = ""
	p.inBlankRun = false
}

// Parse runs a complete document through a fresh parser in one call.
func Parse(input string, opts ...Option) ([]Event, error) {
	p, err := New(opts...)
	if err != nil {
		return nil, err
	}
	seq, err := p.ProcessChunk(input)
	if err != nil {
		return nil, err
	}
	events := seq.Collect()
	seq, err = p.Complete()
	if err != nil {
		return nil, err
	}
	return append(events, seq.Collect()...), nil
}

// ---- orchestration ----

// run drives the detection loop until no further progress is possible.
// Every iteration either emits at least one event or consumes at least one
// byte, so the loop always terminates.
func (p *Parser) run(final bool) {
	for {
		if p.cfg.maxBuffer > 0 && p.bufferedSize() > p.cfg.maxBuffer {
			p.forceFlush()
			continue
		}
		if p.buf.len() == 0 {
			return
		}
		if !p.step(final) {
			return
		}
	}
}

func (p *Parser) step(final bool) bool {
	switch p.state {
	case stateReady:
		return p.stepReady(final)
	case stateParagraph:
		return p.stepParagraph(final)
	case stateFence, stateMath, stateCustomBlock:
		return p.stepFenced(final)
	case stateQuote:
		return p.stepQuote(final)
	case stateTable:
		return p.stepTableText(final)
	case stateTableStructured:
		return p.stepTableStructured(final)
	}
	return false
}

// stepReady classifies the line at the head of the buffer and opens the
// element it starts. No match means the line is plain text.
func (p *Parser) stepReady(final bool) bool {
	v := p.buf.visible()
	if v == "" {
		return false
	}
	raw, complete := p.buf.line()
	line := stripCR(raw)
	if (complete || final) && isBlankLine(line) {
		p.takeLine(final)
		p.handleBlank()
		return true
	}
	p.inBlankRun = false

	det, fromCustom := p.detect(p.probe(v, final))
	switch det.State {
	case NeedMoreInput:
		if !final {
			return false
		}
		// Complete forces a decision; what never resolved is text.
	case Matched:
		return p.openBlock(det, fromCustom, final)
	}
	p.state = stateParagraph
	return p.stepParagraph(final)
}

// probe is the prefix handed to matchers. On Complete a missing final
// newline is supplied virtually so single-line constructs can still match;
// content handling only ever consumes real bytes.
func (p *Parser) probe(v string, final bool) string {
	if final && !strings.HasSuffix(v, "\n") {
		return v + "\n"
	}
	return v
}

// detect runs the priority-ordered matcher table against the prefix. Any
// higher-priority NeedMoreInput halts detection outright: committing to a
// lower-priority type while a higher one is still possible would break
// chunk invariance.
func (p *Parser) detect(prefix string) (Detection, bool) {
	for _, e := range p.matchers {
		var det Detection
		custom := e.custom != nil
		if custom {
			det = e.custom.Detect(prefix)
			if det.State == Matched && isBuiltinBlock(det.Element) && !p.cfg.enabled[det.Element] {
				continue
			}
		} else {
			if !p.cfg.enabled[e.element] {
				continue
			}
			line, complete := firstLine(prefix)
			det = e.detect(stripCR(line), complete)
		}
		switch det.State {
		case Matched:
			return det, custom
		case NeedMoreInput:
			return Detection{State: NeedMoreInput}, custom
		}
	}
	return Detection{State: NoMatch}, false
}

func isBuiltinBlock(t ElementType) bool {
	switch t {
	case ElementCode, ElementHeader, ElementList, ElementQuote,
		ElementTable, ElementMath, ElementHorizontalRule:
		return true
	}
	return false
}

// openBlock turns a match into element state. Single-line constructs emit
// their full lifecycle immediately; multi-line ones transition the state
// machine and leave consumption to their step function.
func (p *Parser) openBlock(det Detection, fromCustom, final bool) bool {
	if fromCustom {
		return p.openCustom(det, final)
	}
	switch det.Element {
	case ElementHeader:
		line, ok := p.takeLine(final)
		if !ok {
			return false
		}
		p.emitWholeElement(ElementHeader, headingContent(line), det.Metadata)
		return true

	case ElementList:
		line, ok := p.takeLine(final)
		if !ok {
			return false
		}
		_, trimmed := splitIndent(line)
		_, _, rest, _ := parseListMarker(trimmed)
		if !p.cfg.preserveWS {
			rest = strings.TrimRight(rest, " \t")
		}
		p.emitWholeElement(ElementList, rest, det.Metadata)
		return true

	case ElementHorizontalRule:
		if _, ok := p.takeLine(final); !ok {
			return false
		}
		p.emitWholeElement(ElementHorizontalRule, "", det.Metadata)
		return true

	case ElementCode:
		line, ok := p.takeLine(final)
		if !ok {
			return false
		}
		char, run, _ := parseFence(line)
		p.fenceChar, p.fenceLen = char, run
		p.openBodyBlock(ElementCode, det.Metadata, stateFence)
		return true

	case ElementMath:
		if _, ok := p.takeLine(final); !ok {
			return false
		}
		p.openBodyBlock(ElementMath, det.Metadata, stateMath)
		return true

	case ElementQuote:
		p.blockID = p.nextID()
		p.machine.begin(p.blockID, ElementQuote, det.Metadata, !p.cfg.preserveWS)
		p.firstBody = true
		p.state = stateQuote
		return true

	case ElementTable:
		if p.cfg.tableMode == TableStructured {
			p.state = stateTableStructured
			return true
		}
		p.blockID = p.nextID()
		p.machine.begin(p.blockID, ElementTable, det.Metadata, !p.cfg.preserveWS)
		p.firstBody = true
		p.state = stateTable
		return true
	}

	// A matcher that names no known construct degrades to text.
	p.state = stateParagraph
	return p.stepParagraph(final)
}

func (p *Parser) openCustom(det Detection, final bool) bool {
	line, ok := p.takeLine(final)
	if !ok {
		return false
	}
	typ := det.Element
	if typ == "" {
		typ = ElementCustom
	}
	if det.EndMarker == "" {
		p.emitWholeElement(typ, strings.TrimPrefix(line, det.StartMarker), det.Metadata)
		return true
	}
	p.endMarker = det.EndMarker
	p.openBodyBlock(typ, det.Metadata, stateCustomBlock)
	return true
}

// openBodyBlock begins a block element whose body arrives on later lines.
func (p *Parser) openBodyBlock(typ ElementType, meta map[string]any, next blockState) {
	p.blockID = p.nextID()
	p.machine.begin(p.blockID, typ, meta, false)
	p.firstBody = true
	p.state = next
}

// emitWholeElement emits a full begin, delta, end lifecycle at once.
func (p *Parser) emitWholeElement(typ ElementType, content string, meta map[string]any) {
	id := p.nextID()
	p.machine.begin(id, typ, meta, false)
	p.machine.appendContent(id, content)
	p.machine.end(id, p.annotate)
}

// stepParagraph streams text content. At a line start, structural syntax
// and blank lines interrupt the paragraph; inside a line, content flows
// through the inline scanner as soon as it is unambiguous.
func (p *Parser) stepParagraph(final bool) bool {
	v := p.buf.visible()
	if v == "" {
		return false
	}
	raw, complete := p.buf.line()
	line := stripCR(raw)

	if !p.paraMid {
		if (complete || final) && isBlankLine(line) {
			p.takeLine(final)
			return p.paragraphBlank(line)
		}
		det, _ := p.detect(p.probe(v, final))
		switch det.State {
		case NeedMoreInput:
			if !final {
				return false
			}
		case Matched:
			p.closeParagraph()
			p.state = stateReady
			return true
		}
	}

	if !complete && !final {
		if raw == "" {
			return false
		}
		frag := raw
		if frag[len(frag)-1] == '\r' {
			// Keep a trailing CR in the buffer until its newline shows up.
			frag = frag[:len(frag)-1]
			if frag == "" {
				return false
			}
		}
		p.flushBreak()
		p.scanner.write(frag)
		p.buf.consume(len(frag))
		p.paraMid = true
		return true
	}

	rest, _ := p.takeLine(final)
	p.flushBreak()
	if rest != "" {
		p.scanner.write(rest)
	}
	p.scanner.endLine()
	if complete {
		p.pendingBreak += "\n"
	}
	p.paraMid = false
	return true
}

// paragraphBlank handles a blank line while a paragraph is open.
func (p *Parser) paragraphBlank(line string) bool {
	if !p.cfg.splitParas {
		if p.cfg.preserveWS {
			p.pendingBreak += line
		}
		p.pendingBreak += "\n"
		return true
	}
	p.closeParagraph()
	p.state = stateReady
	p.handleBlank()
	return true
}

// handleBlank processes a blank line seen outside any element. With
// whitespace preservation on, each blank run yields one empty text element.
func (p *Parser) handleBlank() {
	if !p.cfg.preserveWS || p.inBlankRun {
		p.inBlankRun = true
		return
	}
	p.inBlankRun = true
	p.emitWholeElement(ElementText, "", nil)
}

func (p *Parser) closeParagraph() {
	if p.cfg.preserveWS {
		p.flushBreak()
	}
	p.scanner.finish()
	p.closeText(false)
	p.pendingBreak = ""
	p.paraMid = false
}

// flushBreak releases held line breaks into the text stream once more
// paragraph content is committed after them.
func (p *Parser) flushBreak() {
	if p.pendingBreak == "" {
		return
	}
	br := p.pendingBreak
	p.pendingBreak = ""
	p.scanner.write(br)
}

// stepFenced consumes the body of a fence, math, or custom block one
// complete line at a time. A line is withheld until its newline arrives
// because only a complete line can be ruled out as the closing marker.
func (p *Parser) stepFenced(final bool) bool {
	line, ok := p.takeLine(final)
	if !ok {
		return false
	}
	if p.closesBlock(line) {
		p.endBlock()
		return true
	}
	p.appendBodyLine(line)
	return true
}

func (p *Parser) closesBlock(line string) bool {
	switch p.state {
	case stateFence:
		return isClosingFence(line, p.fenceChar, p.fenceLen)
	case stateMath:
		return isMathClose(line)
	case stateCustomBlock:
		return strings.TrimSpace(line) == p.endMarker
	}
	return false
}

// stepQuote consumes contiguous > lines into one quote element. The first
// non-quote line ends the element and is left for reclassification.
func (p *Parser) stepQuote(final bool) bool {
	raw, complete := p.buf.line()
	if !complete && !final {
		return false
	}
	line := stripCR(raw)
	if isBlankLine(line) || !isQuoteLine(line) {
		p.endBlock()
		return true
	}
	p.takeLine(final)
	p.appendBodyLine(quoteLineContent(line))
	return true
}

// stepTableText consumes contiguous pipe lines into one table element with
// the raw rows as content.
func (p *Parser) stepTableText(final bool) bool {
	raw, complete := p.buf.line()
	if !complete && !final {
		return false
	}
	line := stripCR(raw)
	if isBlankLine(line) || !isTableLine(line) {
		p.endBlock()
		return true
	}
	p.takeLine(final)
	p.appendBodyLine(line)
	return true
}

// stepTableStructured feeds complete pipe lines to the table builder, which
// emits the nested table element structure.
func (p *Parser) stepTableStructured(final bool) bool {
	raw, complete := p.buf.line()
	if !complete && !final {
		return false
	}
	line := stripCR(raw)
	if isBlankLine(line) || !isTableLine(line) {
		p.tables.finish()
		p.state = stateReady
		return true
	}
	p.takeLine(final)
	p.tables.addLine(line)
	return true
}

// appendBodyLine joins block body lines with interior newlines, leaving the
// final content without a trailing one.
func (p *Parser) appendBodyLine(line string) {
	if p.firstBody {
		p.firstBody = false
		p.machine.appendContent(p.blockID, line)
		return
	}
	p.machine.appendContent(p.blockID, "\n"+line)
}

func (p *Parser) endBlock() {
	if p.blockID != "" {
		p.machine.end(p.blockID, p.annotate)
		p.blockID = ""
	}
	p.firstBody = true
	p.state = stateReady
}

// closeBlock finishes whatever block is open at Complete time.
func (p *Parser) closeBlock() {
	switch p.state {
	case stateParagraph:
		p.closeParagraph()
	case stateTableStructured:
		p.tables.finish()
	case stateFence, stateMath, stateCustomBlock, stateQuote, stateTable:
		p.endBlock()
	}
	p.state = stateReady
}

// forceFlush spills the buffer when it exceeds the configured cap. Held
// ambiguity resolves as-is and the backlog lands in the open element, or in
// a single oversized text element when nothing is open.
func (p *Parser) forceFlush() {
	switch p.state {
	case stateParagraph:
		p.flushBreak()
		p.scanner.finish()
		if p.textID != "" {
			p.machine.flushHeld(p.textID)
		}
	case stateTableStructured:
		p.tables.finish()
		p.state = stateReady
	}
	v := p.buf.visible()
	if v != "" {
		p.buf.consume(len(v))
	} else {
		v = p.buf.flushAll()
	}
	if v == "" {
		return
	}
	switch p.state {
	case stateFence, stateMath, stateCustomBlock, stateQuote, stateTable:
		p.appendBodyLine(v)
	case stateParagraph:
		p.plainText(v)
		p.paraMid = !strings.HasSuffix(v, "\n")
	default:
		p.emitWholeElement(ElementText, v, nil)
	}
}

// bufferedSize is the cap-relevant backlog: unconsumed buffer bytes plus
// everything held back elsewhere while ambiguity resolves.
func (p *Parser) bufferedSize() int {
	n := p.buf.len() + len(p.pendingBreak) + len(p.scanner.held)
	n += p.machine.heldBytes()
	if p.tables.pending {
		n += len(p.tables.firstRow)
	}
	return n
}

// ---- inline sink ----

// plainText routes scanner output into the open text element, opening one
// on demand.
func (p *Parser) plainText(s string) {
	if p.textID == "" {
		p.textID = p.nextID()
		p.machine.begin(p.textID, ElementText, nil, !p.cfg.preserveWS)
	}
	p.machine.appendContent(p.textID, s)
}

// inlineElement closes the open text element and emits a completed inline
// sibling. Text that follows will open a fresh text element.
func (p *Parser) inlineElement(typ ElementType, content string, meta map[string]any) {
	p.closeText(true)
	p.emitWholeElement(typ, content, meta)
}

// closeText ends the open text element. midLine marks a close caused by an
// inline sibling, where withheld trailing whitespace is real content.
func (p *Parser) closeText(midLine bool) {
	if p.textID == "" {
		return
	}
	if midLine {
		p.machine.flushHeld(p.textID)
	}
	p.machine.end(p.textID, p.annotate)
	p.textID = ""
}

// ---- helpers ----

func (p *Parser) emit(ev Event) {
	p.out = append(p.out, ev)
}

func (p *Parser) drain() *Events {
	events := p.out
	p.out = nil
	return &Events{events: events}
}

func (p *Parser) annotate(el *element, final string) {
	anns := p.extract.extract(el.typ, final)
	// Detectors run one after another; interleave their spans by position.
	sort.SliceStable(anns, func(i, j int) bool { return anns[i].Start < anns[j].Start })
	for _, ann := range anns {
		p.emit(AnnotationEvent(el.id, ann))
	}
}

func (p *Parser) nextID() string {
	if p.cfg.idGen != nil {
		return p.cfg.idGen()
	}
	p.idSeq++
	return p.cfg.idPrefix + strconv.Itoa(p.idSeq)
}

// takeLine consumes the line at the head of the buffer. It fails when the
// newline has not arrived yet and the parse is not finishing.
func (p *Parser) takeLine(final bool) (string, bool) {
	raw, complete := p.buf.line()
	if !complete && !final {
		return "", false
	}
	n := len(raw)
	if complete {
		n++
	}
	p.buf.consume(n)
	return stripCR(raw), true
}

func stripCR(line string) string {
	return strings.TrimSuffix(line, "\r")
}

func isQuoteLine(line string) bool {
	indent, trimmed := splitIndent(line)
	return indent <= 3 && trimmed != "" && trimmed[0] == '>'
}

func isTableLine(line string) bool {
	indent, trimmed := splitIndent(line)
	return indent <= 3 && trimmed != "" && trimmed[0] == '|'
}

// quoteLineContent strips the > marker and one following space from a
// quote line.
func quoteLineContent(line string) string {
	_, trimmed := splitIndent(line)
	rest := strings.TrimPrefix(trimmed, ">")
	if rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
		rest = rest[1:]
	}
	return rest
}
