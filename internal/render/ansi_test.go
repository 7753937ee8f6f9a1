package render

import (
	"regexp"
	"strings"
	"testing"

	"github.com/streammd/streammd/parser"
)

var escapes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// renderANSI parses input with the renderer's expected parser configuration
// plus extras, renders it, and returns the output with escape sequences
// stripped so assertions hold with or without an active color profile.
func renderANSI(t *testing.T, input string, ropts []ANSIOption, popts ...parser.Option) string {
	t.Helper()
	events, err := parser.Parse(input, append(ParserOptions(), popts...)...)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var buf strings.Builder
	r := NewANSI(&buf, ropts...)
	if err := r.RenderAll(events); err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	return escapes.ReplaceAllString(buf.String(), "")
}

//
// ============================================================================
// PARAGRAPH FLOW
// ============================================================================
//

func TestANSIParagraphFlow(t *testing.T) {
	got := renderANSI(t, "First paragraph.\n\nSecond *styled* one.\n", nil)
	want := "First paragraph.\n\nSecond styled one.\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSISoftWrapJoinsLines(t *testing.T) {
	got := renderANSI(t, "line one\nline two\n", nil)
	want := "line one line two\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSIWrapWidth(t *testing.T) {
	input := "aaa bbb ccc ddd eee\n"
	events, err := parser.Parse(input, ParserOptions()...)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var buf strings.Builder
	r := NewANSI(&buf, WithWidth(12))
	if err := r.RenderAll(events); err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		if w := VisibleWidth(line); w > 12 {
			t.Errorf("line %q has visible width %d, want <= 12", line, w)
		}
	}
	got := escapes.ReplaceAllString(buf.String(), "")
	want := "aaa bbb ccc\nddd eee\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

//
// ============================================================================
// BLOCK ELEMENTS
// ============================================================================
//

func TestANSIHeadingAndList(t *testing.T) {
	got := renderANSI(t, "# Title\n\n- a\n- b\n\ntail\n", nil)
	want := "# Title\n\n• a\n• b\n\ntail\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSIOrderedListNumbers(t *testing.T) {
	got := renderANSI(t, "1. one\n2. two\n", nil)
	want := "1. one\n2. two\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSINestedListIndent(t *testing.T) {
	got := renderANSI(t, "- top\n  - nested\n", nil)
	want := "• top\n  • nested\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSICodeBlockIndented(t *testing.T) {
	got := renderANSI(t, "```\nplain code\nsecond line\n```\n", nil)
	want := "  plain code\n  second line\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSICodeBlockHighlighted(t *testing.T) {
	// Highlighting changes styling only; the visible text must survive.
	got := renderANSI(t, "```go\nx := 1\n```\n", nil)
	want := "  x := 1\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSIQuotePrefix(t *testing.T) {
	got := renderANSI(t, "> hi\n> there\n", nil)
	want := "│ hi\n│ there\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSIHorizontalRule(t *testing.T) {
	got := renderANSI(t, "---\n", []ANSIOption{WithWidth(10)})
	want := strings.Repeat("─", 10) + "\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

//
// ============================================================================
// TABLES
// ============================================================================
//

func TestANSIStructuredTableGrid(t *testing.T) {
	input := "| a | b |\n|---|---|\n| 1 | 2 |\n"
	got := renderANSI(t, input, nil, parser.WithTableMode(parser.TableStructured))
	want := "│ a │ b │\n" +
		"├───┼───┤\n" +
		"│ 1 │ 2 │\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSIStructuredTableWideRunes(t *testing.T) {
	input := "| 日本 | b |\n|---|---|\n| x | y |\n"
	got := renderANSI(t, input, nil, parser.WithTableMode(parser.TableStructured))
	want := "│ 日本 │ b │\n" +
		"├──────┼───┤\n" +
		"│ x    │ y │\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSITextTableVerbatim(t *testing.T) {
	got := renderANSI(t, "| a | b |\n| 1 | 2 |\n", nil)
	want := "| a | b |\n| 1 | 2 |\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

//
// ============================================================================
// ANNOTATIONS
// ============================================================================
//

func TestANSICitationFoldsIntoHeading(t *testing.T) {
	got := renderANSI(t, "# See [docs](https://d.io)\n", nil)
	want := "# See docs (https://d.io)\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSICitationFoldsIntoParagraph(t *testing.T) {
	// Links disabled as elements, so the citation stays on the text element.
	got := renderANSI(t, "Visit [site](https://s.io) today.\n", nil,
		parser.WithElements(parser.ElementText))
	want := "Visit site (https://s.io) today.\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSILinkElementShowsURL(t *testing.T) {
	got := renderANSI(t, "Visit [site](https://s.io) today.\n", nil)
	want := "Visit site (https://s.io) today.\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestANSICustomAnnotationNotes(t *testing.T) {
	detector := &parser.RegexAnnotation{Kind: "issue", Pattern: regexp.MustCompile(`#\d+`)}
	input := "Fixed in #42 yesterday.\n"

	got := renderANSI(t, input, []ANSIOption{WithAnnotations(true)},
		parser.WithAnnotationDetector(detector))
	want := "Fixed in #42 yesterday. [issue: #42]\n"
	if got != want {
		t.Errorf("with notes: output = %q, want %q", got, want)
	}

	got = renderANSI(t, input, nil, parser.WithAnnotationDetector(detector))
	want = "Fixed in #42 yesterday.\n"
	if got != want {
		t.Errorf("without notes: output = %q, want %q", got, want)
	}
}

//
// ============================================================================
// HIGHLIGHTING
// ============================================================================
//

func TestHighlightUnknownLanguagePassthrough(t *testing.T) {
	if got := highlightCode("some text", ""); got != "some text" {
		t.Errorf("empty language: got %q, want passthrough", got)
	}
}

func TestHighlightPreservesVisibleText(t *testing.T) {
	src := "func main() {\n\tprintln(1)\n}"
	highlighted := strings.TrimSuffix(highlightCode(src, "go"), "\n")
	if got := escapes.ReplaceAllString(highlighted, ""); got != src {
		t.Errorf("stripped highlight = %q, want %q", got, src)
	}
}
