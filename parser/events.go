package parser

import "io"

// ElementType identifies the kind of markdown element an event refers to.
type ElementType string

const (
	ElementText           ElementType = "text"
	ElementCode           ElementType = "code"
	ElementHeader         ElementType = "header"
	ElementList           ElementType = "list"
	ElementQuote          ElementType = "quote"
	ElementTable          ElementType = "table"
	ElementTableHead      ElementType = "table_head"
	ElementTableBody      ElementType = "table_body"
	ElementTableRow       ElementType = "table_row"
	ElementTableCol       ElementType = "table_col"
	ElementTableFoot      ElementType = "table_foot"
	ElementMath           ElementType = "math"
	ElementLink           ElementType = "link"
	ElementEmphasis       ElementType = "emphasis"
	ElementStrong         ElementType = "strong"
	ElementStrikethrough  ElementType = "strikethrough"
	ElementHorizontalRule ElementType = "horizontal_rule"
	ElementCustom         ElementType = "custom"
)

// EventType identifies the lifecycle stage an Event describes.
type EventType int

const (
	EventBegin EventType = iota
	EventDelta
	EventEnd
	EventAnnotation
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventBegin:
		return "begin"
	case EventDelta:
		return "delta"
	case EventEnd:
		return "end"
	case EventAnnotation:
		return "annotation"
	}
	return "unknown"
}

// Event is a single lifecycle event for a markdown element. An element id is
// begun exactly once, receives zero or more deltas, and ends exactly once;
// annotations reference an element between its begin and end. The
// concatenation of an element's delta contents equals the end event's
// FinalContent regardless of how input was chunked.
//
// Reserved metadata keys: "language" (code), "level" and "ordered"
// (header/list), "url" and "title" (link).
type Event struct {
	Type      EventType `json:"type"`
	ElementID string    `json:"elementId"`

	// Begin fields.
	Element  ElementType    `json:"elementType,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Delta field.
	Content string `json:"content,omitempty"`

	// End field.
	FinalContent string `json:"finalContent,omitempty"`

	// Annotation field.
	Annotation *Annotation `json:"annotation,omitempty"`
}

// Annotation is an inline marker detected within an element's content,
// reported once per element with byte offsets into the final content.
type Annotation struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text,omitempty"`
	URL      string         `json:"url,omitempty"`
	Title    string         `json:"title,omitempty"`
	Start    int            `json:"start"`
	End      int            `json:"end"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

const citationKind = "citation"

// BeginEvent creates an element begin event.
func BeginEvent(typ ElementType, id string, meta map[string]any) Event {
	return Event{
		Type:      EventBegin,
		Element:   typ,
		ElementID: id,
		Metadata:  meta,
	}
}

// DeltaEvent creates a content delta event.
func DeltaEvent(id, content string) Event {
	return Event{
		Type:      EventDelta,
		ElementID: id,
		Content:   content,
	}
}

// EndEvent creates an element end event carrying the final content.
func EndEvent(id, finalContent string) Event {
	return Event{
		Type:         EventEnd,
		ElementID:    id,
		FinalContent: finalContent,
	}
}

// AnnotationEvent creates an annotation event referencing an element.
func AnnotationEvent(id string, ann Annotation) Event {
	return Event{
		Type:       EventAnnotation,
		ElementID:  id,
		Annotation: &ann,
	}
}

// Events is a finite, pull-based sequence of parse events produced by a
// single ProcessChunk or Complete call. It is a one-shot cursor: events are
// consumed in order and cannot be replayed.
type Events struct {
	events []Event
	pos    int
}

// Recv returns the next event, or io.EOF when the sequence is exhausted.
func (e *Events) Recv() (Event, error) {
	if e == nil || e.pos >= len(e.events) {
		return Event{}, io.EOF
	}
	ev := e.events[e.pos]
	e.pos++
	return ev, nil
}

// Collect drains the remaining events into a slice.
func (e *Events) Collect() []Event {
	if e == nil {
		return nil
	}
	rest := e.events[e.pos:]
	e.pos = len(e.events)
	out := make([]Event, len(rest))
	copy(out, rest)
	return out
}

// Len reports how many events remain unconsumed.
func (e *Events) Len() int {
	if e == nil {
		return 0
	}
	return len(e.events) - e.pos
}
