package parser

import "fmt"

// EmphasisMode controls what happens to the markers on emphasis, strong,
// and strikethrough elements.
type EmphasisMode string

const (
	// EmphasisStrip removes the markers from element content.
	EmphasisStrip EmphasisMode = "strip"
	// EmphasisPreserve keeps the markers for downstream re-rendering.
	EmphasisPreserve EmphasisMode = "preserve"
)

// TableMode controls the shape of table output.
type TableMode string

const (
	// TableText emits one table element whose content is the raw row lines.
	TableText TableMode = "text"
	// TableStructured emits nested table_head, table_body, table_row, and
	// table_col elements.
	TableStructured TableMode = "structured"
)

const (
	defaultMaxBuffer = 1 << 20
	defaultIDPrefix  = "el-"
)

type config struct {
	enabled    map[ElementType]bool
	matchers   []Matcher
	detectors  []AnnotationDetector
	citations  bool
	preserveWS bool
	splitParas bool
	maxBuffer  int
	maxDelta   int
	emphasis   EmphasisMode
	tableMode  TableMode
	idPrefix   string
	idGen      func() string
}

// Option configures a Parser. Invalid option values fall back to the
// defaults; combinations that contradict each other make New return an
// error.
type Option func(*config)

func defaultConfig() config {
	return config{
		enabled:    allElements(),
		citations:  true,
		splitParas: true,
		maxBuffer:  defaultMaxBuffer,
		emphasis:   EmphasisStrip,
		tableMode:  TableText,
		idPrefix:   defaultIDPrefix,
	}
}

// ElementTypes returns the element types that can be enabled or disabled
// through WithElements: the block constructs plus the inline families.
// Structural children (table_head through table_col) follow their parent
// table and are not listed.
func ElementTypes() []ElementType {
	return []ElementType{
		ElementText, ElementCode, ElementHeader, ElementList, ElementQuote,
		ElementTable, ElementHorizontalRule, ElementMath,
		ElementLink, ElementEmphasis, ElementStrong, ElementStrikethrough,
	}
}

func allElements() map[ElementType]bool {
	all := ElementTypes()
	m := make(map[ElementType]bool, len(all))
	for _, t := range all {
		m[t] = true
	}
	return m
}

// WithElements restricts parsing to the given element types. Unlisted
// types fall back to plain text. Text itself cannot be disabled, since it
// is the fallback everything else degrades to.
func WithElements(types ...ElementType) Option {
	return func(c *config) {
		c.enabled = map[ElementType]bool{ElementText: true}
		for _, t := range types {
			c.enabled[t] = true
		}
	}
}

// WithCustomMatcher registers a custom block matcher, interleaved with the
// builtins by priority. A custom matcher wins priority ties.
func WithCustomMatcher(m Matcher) Option {
	return func(c *config) {
		if m != nil {
			c.matchers = append(c.matchers, m)
		}
	}
}

// WithAnnotationDetector registers a detector run over each element's final
// content alongside the builtin citation scan.
func WithAnnotationDetector(d AnnotationDetector) Option {
	return func(c *config) {
		if d != nil {
			c.detectors = append(c.detectors, d)
		}
	}
}

// WithCitations toggles the builtin citation annotations. On by default.
func WithCitations(on bool) Option {
	return func(c *config) { c.citations = on }
}

// WithPreserveWhitespace keeps trailing whitespace and blank-line runs in
// text content instead of trimming them away.
func WithPreserveWhitespace(on bool) Option {
	return func(c *config) { c.preserveWS = on }
}

// WithSplitParagraphs controls whether a blank line ends the current text
// element. On by default; when off, text accumulates across blank lines
// into a single element.
func WithSplitParagraphs(on bool) Option {
	return func(c *config) { c.splitParas = on }
}

// WithMaxBufferSize caps unconsumed buffer growth. When the cap is hit the
// buffered prefix is force-flushed as plain text rather than failing. Zero
// disables the cap.
func WithMaxBufferSize(n int) Option {
	return func(c *config) {
		if n < 0 {
			return
		}
		c.maxBuffer = n
	}
}

// WithMaxDeltaChunkSize coalesces delta content until at least n bytes are
// pending. It changes delta granularity only, never final content. Zero
// disables coalescing.
func WithMaxDeltaChunkSize(n int) Option {
	return func(c *config) {
		if n < 0 {
			return
		}
		c.maxDelta = n
	}
}

// WithEmphasisMode selects strip or preserve handling of emphasis markers.
func WithEmphasisMode(mode EmphasisMode) Option {
	return func(c *config) {
		if mode == EmphasisStrip || mode == EmphasisPreserve {
			c.emphasis = mode
		}
	}
}

// WithTableMode selects text or structured table output.
func WithTableMode(mode TableMode) Option {
	return func(c *config) {
		if mode == TableText || mode == TableStructured {
			c.tableMode = mode
		}
	}
}

// WithIDPrefix sets the prefix for generated element ids.
func WithIDPrefix(prefix string) Option {
	return func(c *config) { c.idPrefix = prefix }
}

// WithIDGenerator replaces id generation entirely. The generator must
// return a distinct id on every call.
func WithIDGenerator(gen func() string) Option {
	return func(c *config) { c.idGen = gen }
}

// validate rejects configurations whose options contradict each other.
func (c *config) validate() error {
	if c.tableMode == TableStructured && !c.enabled[ElementTable] {
		return fmt.Errorf("structured table output requires the table element to be enabled")
	}
	if c.maxDelta > 0 && c.maxBuffer > 0 && c.maxDelta > c.maxBuffer {
		return fmt.Errorf("maxDeltaChunkSize %d exceeds maxBufferSize %d", c.maxDelta, c.maxBuffer)
	}
	return nil
}
