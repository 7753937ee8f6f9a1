package parser

import (
	"regexp"
	"testing"
)

// annotationEvents filters the annotation events out of a sequence.
func annotationEvents(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == EventAnnotation {
			out = append(out, ev)
		}
	}
	return out
}

func TestCitationInHeading(t *testing.T) {
	content := `See [docs](https://d.io "Guide")`
	events := parseOneShot(t, "# "+content+"\n")

	anns := annotationEvents(events)
	if len(anns) != 1 {
		t.Fatalf("annotations = %d, want 1", len(anns))
	}
	ann := anns[0].Annotation
	if ann.Kind != "citation" {
		t.Errorf("kind = %q, want citation", ann.Kind)
	}
	if ann.Text != "docs" || ann.URL != "https://d.io" || ann.Title != "Guide" {
		t.Errorf("got (%q, %q, %q)", ann.Text, ann.URL, ann.Title)
	}
	if ann.Start != 4 || ann.End != len(content) {
		t.Errorf("span = [%d, %d), want [4, %d)", ann.Start, ann.End, len(content))
	}
	if anns[0].ElementID != events[0].ElementID {
		t.Errorf("annotation element %s, heading element %s",
			anns[0].ElementID, events[0].ElementID)
	}
}

func TestCitationOrdering(t *testing.T) {
	events := parseOneShot(t, "# See [d](u)\n")

	// The citation arrives after the content deltas and immediately
	// before the element's End.
	want := []EventType{EventBegin, EventDelta, EventAnnotation, EventEnd}
	if len(events) != len(want) {
		t.Fatalf("events = %d, want %d", len(events), len(want))
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Errorf("event %d = %s, want %s", i, events[i].Type, typ)
		}
	}
}

func TestCitationsInListAndQuote(t *testing.T) {
	events := parseOneShot(t, "- read [a](u)\n\n> see [b](v)\n")

	anns := annotationEvents(events)
	if len(anns) != 2 {
		t.Fatalf("annotations = %d, want 2", len(anns))
	}
	if anns[0].Annotation.Text != "a" || anns[0].Annotation.URL != "u" {
		t.Errorf("list citation = (%q, %q)", anns[0].Annotation.Text, anns[0].Annotation.URL)
	}
	if anns[1].Annotation.Text != "b" || anns[1].Annotation.URL != "v" {
		t.Errorf("quote citation = (%q, %q)", anns[1].Annotation.Text, anns[1].Annotation.URL)
	}
}

func TestCitationOnTextWhenLinksDisabled(t *testing.T) {
	// With link segmentation off the raw syntax stays in the text
	// element, and the citation scan is what reports it.
	events := parseOneShot(t, "Check [x](u) here.\n", WithElements())

	got := elementSummary(events)
	if got != `text:"Check [x](u) here."` {
		t.Fatalf("elements:\n%s", got)
	}
	anns := annotationEvents(events)
	if len(anns) != 1 {
		t.Fatalf("annotations = %d, want 1", len(anns))
	}
	if anns[0].Annotation.Text != "x" || anns[0].Annotation.URL != "u" {
		t.Errorf("citation = (%q, %q)", anns[0].Annotation.Text, anns[0].Annotation.URL)
	}
}

func TestMultipleCitationsInOneElement(t *testing.T) {
	events := parseOneShot(t, "- [a](u) and [b](v)\n")

	anns := annotationEvents(events)
	if len(anns) != 2 {
		t.Fatalf("annotations = %d, want 2", len(anns))
	}
	if anns[0].Annotation.Text != "a" || anns[1].Annotation.Text != "b" {
		t.Errorf("order = %q, %q", anns[0].Annotation.Text, anns[1].Annotation.Text)
	}
	if anns[0].Annotation.Start >= anns[1].Annotation.Start {
		t.Errorf("offsets not ascending: %d, %d",
			anns[0].Annotation.Start, anns[1].Annotation.Start)
	}
}

func TestNoCitationsInCodeOrMath(t *testing.T) {
	events := parseOneShot(t, "```\n[x](u)\n```\n\n$$\n[y](v)\n$$\n")
	if anns := annotationEvents(events); len(anns) != 0 {
		t.Errorf("annotations = %d, want none in code or math", len(anns))
	}
}

func TestCitationsDisabled(t *testing.T) {
	events := parseOneShot(t, "# See [docs](u)\n", WithCitations(false))
	if anns := annotationEvents(events); len(anns) != 0 {
		t.Errorf("annotations = %d, want 0", len(anns))
	}
}

func TestEscapedBracketNotCited(t *testing.T) {
	events := parseOneShot(t, "# \\[x](u)\n")
	if anns := annotationEvents(events); len(anns) != 0 {
		t.Errorf("annotations = %d, want 0", len(anns))
	}
}

func TestRegexAnnotationDetector(t *testing.T) {
	issues := &RegexAnnotation{
		Kind:    "issue",
		Pattern: regexp.MustCompile(`#(\d+)`),
		Meta: func(match []string) map[string]any {
			return map[string]any{"number": match[1]}
		},
	}
	events := parseOneShot(t, "Fixes #42 and #7.\n", WithAnnotationDetector(issues))

	anns := annotationEvents(events)
	if len(anns) != 2 {
		t.Fatalf("annotations = %d, want 2", len(anns))
	}
	first := anns[0].Annotation
	if first.Kind != "issue" || first.Text != "#42" {
		t.Errorf("first = (%q, %q)", first.Kind, first.Text)
	}
	if first.Metadata["number"] != "42" {
		t.Errorf("number = %v, want 42", first.Metadata["number"])
	}
	if first.Start != 6 || first.End != 9 {
		t.Errorf("span = [%d, %d), want [6, 9)", first.Start, first.End)
	}
	if anns[1].Annotation.Text != "#7" {
		t.Errorf("second = %q", anns[1].Annotation.Text)
	}
}

func TestCustomDetectorSkipsCodeBody(t *testing.T) {
	issues := &RegexAnnotation{Kind: "issue", Pattern: regexp.MustCompile(`#\d+`)}
	events := parseOneShot(t, "```\n#42\n```\n", WithAnnotationDetector(issues))
	if anns := annotationEvents(events); len(anns) != 0 {
		t.Errorf("annotations = %d, want 0 inside code", len(anns))
	}
}

// typeFilterDetector annotates only one element type, recording that the
// extractor passes the element type through.
type typeFilterDetector struct {
	only ElementType
}

func (d typeFilterDetector) Detect(typ ElementType, content string) []Annotation {
	if typ != d.only {
		return nil
	}
	return []Annotation{{Kind: "marked", Text: content, Start: 0, End: len(content)}}
}

func TestDetectorSeesElementType(t *testing.T) {
	events := parseOneShot(t, "# Title\n\nbody text\n",
		WithAnnotationDetector(typeFilterDetector{only: ElementHeader}))

	anns := annotationEvents(events)
	if len(anns) != 1 {
		t.Fatalf("annotations = %d, want 1", len(anns))
	}
	if anns[0].Annotation.Text != "Title" {
		t.Errorf("text = %q, want Title", anns[0].Annotation.Text)
	}
}
