package parser

import "strings"

// element tracks one open element: identity, accumulated content, and
// buffered delta output.
type element struct {
	id   string
	typ  ElementType
	meta map[string]any

	committed strings.Builder // content already emitted as deltas
	pending   strings.Builder // content awaiting the next delta flush
	heldWS    string          // trailing whitespace withheld until more content arrives
	trimWS    bool
}

// elementStateMachine enforces the begin, delta, end lifecycle per element
// id. Every element moves through exactly one Begin, any number of Deltas,
// and one End, and the concatenation of its delta content equals the End
// event's final content. Elements with trimWS set never let trailing
// whitespace escape in a delta until non-whitespace follows it, so a trim
// at End never contradicts content that was already streamed.
type elementStateMachine struct {
	emit     func(Event)
	maxDelta int

	open  map[string]*element
	order []string
}

func newElementStateMachine(emit func(Event), maxDelta int) *elementStateMachine {
	return &elementStateMachine{
		emit:     emit,
		maxDelta: maxDelta,
		open:     make(map[string]*element),
	}
}

// begin opens an element and emits its Begin event. A begin for an id that
// is already open returns the existing element unchanged.
func (m *elementStateMachine) begin(id string, typ ElementType, meta map[string]any, trimWS bool) *element {
	if el, ok := m.open[id]; ok {
		return el
	}
	el := &element{id: id, typ: typ, meta: meta, trimWS: trimWS}
	m.open[id] = el
	m.order = append(m.order, id)
	m.emit(BeginEvent(typ, id, meta))
	return el
}

// appendContent adds content to an open element, buffering it until the
// coalescing threshold is reached. Content for an unknown id is dropped.
func (m *elementStateMachine) appendContent(id, s string) {
	el := m.open[id]
	if el == nil || s == "" {
		return
	}
	s = el.heldWS + s
	el.heldWS = ""
	if el.trimWS {
		cut := len(s)
		for cut > 0 && isTrimByte(s[cut-1]) {
			cut--
		}
		el.heldWS = s[cut:]
		s = s[:cut]
	}
	if s == "" {
		return
	}
	el.pending.WriteString(s)
	if m.maxDelta > 0 && el.pending.Len() < m.maxDelta {
		return
	}
	m.flushPending(el)
}

func (m *elementStateMachine) flushPending(el *element) {
	if el.pending.Len() == 0 {
		return
	}
	s := el.pending.String()
	el.pending.Reset()
	el.committed.WriteString(s)
	m.emit(DeltaEvent(el.id, s))
}

// flushHeld releases withheld trailing whitespace back into the delta
// stream. Used when an element closes mid-line, where its tail is real
// content rather than a trimmable line ending.
func (m *elementStateMachine) flushHeld(id string) {
	el := m.open[id]
	if el == nil || el.heldWS == "" {
		return
	}
	el.pending.WriteString(el.heldWS)
	el.heldWS = ""
	m.flushPending(el)
}

// heldBytes reports how much withheld whitespace the open elements carry,
// for buffer-cap accounting.
func (m *elementStateMachine) heldBytes() int {
	n := 0
	for _, el := range m.open {
		n += len(el.heldWS)
	}
	return n
}

// end closes an element and emits its End event. beforeEnd, when non-nil,
// runs after the last delta flush and before the End event, so annotation
// events can precede it.
func (m *elementStateMachine) end(id string, beforeEnd func(el *element, final string)) {
	el := m.open[id]
	if el == nil {
		return
	}
	if !el.trimWS && el.heldWS != "" {
		el.pending.WriteString(el.heldWS)
	}
	el.heldWS = ""
	m.flushPending(el)
	final := el.committed.String()
	if beforeEnd != nil {
		beforeEnd(el, final)
	}
	delete(m.open, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.emit(EndEvent(id, final))
}

// endAll closes every open element, innermost first.
func (m *elementStateMachine) endAll(beforeEnd func(el *element, final string)) {
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	for i := len(ids) - 1; i >= 0; i-- {
		m.end(ids[i], beforeEnd)
	}
}

func (m *elementStateMachine) openCount() int {
	return len(m.open)
}

func (m *elementStateMachine) reset() {
	m.open = make(map[string]*element)
	m.order = nil
}

func isTrimByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
