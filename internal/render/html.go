package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/streammd/streammd/parser"
)

// HTMLRenderer converts a parser event stream into an HTML fragment.
// Annotations are folded back into the markup: citation spans become anchor
// tags and custom annotation spans become classed span tags, both placed by
// their byte offsets into the element's final content.
type HTMLRenderer struct {
	out     io.Writer
	pending map[string]*pendingEl
	anns    map[string][]parser.Annotation

	para        strings.Builder
	afterInline bool

	list      string // open list wrapper tag, "" when none
	tableOpen bool
	inHead    bool
}

func NewHTML(out io.Writer) *HTMLRenderer {
	return &HTMLRenderer{
		out:     out,
		pending: make(map[string]*pendingEl),
		anns:    make(map[string][]parser.Annotation),
	}
}

// Render consumes one event.
func (r *HTMLRenderer) Render(ev parser.Event) error {
	switch ev.Type {
	case parser.EventBegin:
		r.pending[ev.ElementID] = &pendingEl{typ: ev.Element, meta: ev.Metadata}
		return r.begin(ev)
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
		return r.end(el, ev)
	}
	return nil
}

// RenderAll consumes a whole event sequence.
func (r *HTMLRenderer) RenderAll(events []parser.Event) error {
	for _, ev := range events {
		if err := r.Render(ev); err != nil {
			return err
		}
	}
	return nil
}

// Flush closes any open paragraph or list. Call once after the last event.
func (r *HTMLRenderer) Flush() error {
	if err := r.flushPara(); err != nil {
		return err
	}
	return r.closeList()
}

// begin handles opening tags for structured table elements. Whether a table
// element is structured or raw text is unknown until its first child begins,
// so the table tag itself is deferred to that point.
func (r *HTMLRenderer) begin(ev parser.Event) error {
	switch ev.Element {
	case parser.ElementText:
		if r.para.Len() > 0 && !r.afterInline {
			return r.flushPara()
		}
	case parser.ElementTableHead, parser.ElementTableBody, parser.ElementTableFoot:
		if !r.tableOpen {
			r.tableOpen = true
			if err := r.blockStart(); err != nil {
				return err
			}
			if err := r.writeln("<table>"); err != nil {
				return err
			}
		}
		switch ev.Element {
		case parser.ElementTableHead:
			r.inHead = true
			return r.writeln("<thead>")
		case parser.ElementTableBody:
			return r.writeln("<tbody>")
		case parser.ElementTableFoot:
			return r.writeln("<tfoot>")
		}
	case parser.ElementTableRow:
		return r.writeln("<tr>")
	}
	return nil
}

func (r *HTMLRenderer) end(el *pendingEl, ev parser.Event) error {
	switch el.typ {
	case parser.ElementText:
		r.afterInline = false
		return r.appendText(ev.ElementID, ev.FinalContent)
	case parser.ElementLink:
		r.afterInline = true
		url, _ := el.meta["url"].(string)
		title, _ := el.meta["title"].(string)
		r.para.WriteString(anchor(url, title, html.EscapeString(ev.FinalContent)))
		return nil
	case parser.ElementEmphasis:
		r.afterInline = true
		r.para.WriteString("<em>" + html.EscapeString(ev.FinalContent) + "</em>")
		return nil
	case parser.ElementStrong:
		r.afterInline = true
		r.para.WriteString("<strong>" + html.EscapeString(ev.FinalContent) + "</strong>")
		return nil
	case parser.ElementStrikethrough:
		r.afterInline = true
		r.para.WriteString("<del>" + html.EscapeString(ev.FinalContent) + "</del>")
		return nil

	case parser.ElementHeader:
		level, _ := el.meta["level"].(int)
		if level < 1 {
			level = 1
		} else if level > 6 {
			level = 6
		}
		body := r.inlineContent(ev.ElementID, ev.FinalContent)
		return r.writeTag(fmt.Sprintf("<h%d>%s</h%d>", level, body, level))
	case parser.ElementCode:
		lang, _ := el.meta["language"].(string)
		open := "<pre><code>"
		if lang != "" {
			open = `<pre><code class="language-` + html.EscapeString(lang) + `">`
		}
		return r.writeTag(open + html.EscapeString(ev.FinalContent) + "\n</code></pre>")
	case parser.ElementMath:
		return r.writeTag(`<pre class="math">` + html.EscapeString(ev.FinalContent) + "\n</pre>")
	case parser.ElementList:
		return r.writeListItem(el.meta, r.inlineContent(ev.ElementID, ev.FinalContent))
	case parser.ElementQuote:
		return r.writeTag("<blockquote>\n<p>" + r.inlineContent(ev.ElementID, ev.FinalContent) + "</p>\n</blockquote>")
	case parser.ElementHorizontalRule:
		return r.writeTag("<hr>")

	case parser.ElementTableCol:
		tag := "td"
		if r.inHead {
			tag = "th"
		}
		attr := ""
		if align, _ := el.meta["align"].(string); align != "" {
			attr = ` align="` + align + `"`
		}
		return r.writeln("<" + tag + attr + ">" + r.inlineContent(ev.ElementID, ev.FinalContent) + "</" + tag + ">")
	case parser.ElementTableRow:
		return r.writeln("</tr>")
	case parser.ElementTableHead:
		r.inHead = false
		return r.writeln("</thead>")
	case parser.ElementTableBody:
		return r.writeln("</tbody>")
	case parser.ElementTableFoot:
		return r.writeln("</tfoot>")
	case parser.ElementTable:
		if r.tableOpen {
			r.tableOpen = false
			return r.writeln("</table>")
		}
		// Text-mode tables carry their raw pipe rows as content.
		return r.writeTag(`<pre class="table">` + html.EscapeString(ev.FinalContent) + "\n</pre>")

	default:
		class := html.EscapeString(string(el.typ))
		return r.writeTag(`<div class="` + class + `">` + r.annotated(ev.ElementID, ev.FinalContent) + "</div>")
	}
}

// appendText adds paragraph text to the inline flow, treating in-band runs
// of two or more newlines as paragraph breaks.
func (r *HTMLRenderer) appendText(id, content string) error {
	s := r.annotated(id, content)
	for s != "" {
		i := strings.Index(s, "\n\n")
		if i < 0 {
			r.para.WriteString(s)
			return nil
		}
		r.para.WriteString(s[:i])
		if err := r.flushPara(); err != nil {
			return err
		}
		s = strings.TrimLeft(s[i:], "\n")
	}
	return nil
}

func (r *HTMLRenderer) flushPara() error {
	if r.para.Len() == 0 {
		return nil
	}
	s := r.para.String()
	r.para.Reset()
	if err := r.closeList(); err != nil {
		return err
	}
	return r.writeln("<p>" + s + "</p>")
}

// blockStart flushes inline flow and closes any open list before a
// non-list block.
func (r *HTMLRenderer) blockStart() error {
	if err := r.flushPara(); err != nil {
		return err
	}
	return r.closeList()
}

func (r *HTMLRenderer) writeTag(s string) error {
	if err := r.blockStart(); err != nil {
		return err
	}
	return r.writeln(s)
}

// writeListItem opens or continues a list run. Ordered and unordered items
// never share a wrapper.
func (r *HTMLRenderer) writeListItem(meta map[string]any, body string) error {
	if err := r.flushPara(); err != nil {
		return err
	}
	tag := "ul"
	if ordered, _ := meta["ordered"].(bool); ordered {
		tag = "ol"
	}
	if r.list != tag {
		if err := r.closeList(); err != nil {
			return err
		}
		r.list = tag
		if err := r.writeln("<" + tag + ">"); err != nil {
			return err
		}
	}
	return r.writeln("<li>" + body + "</li>")
}

func (r *HTMLRenderer) closeList() error {
	if r.list == "" {
		return nil
	}
	tag := r.list
	r.list = ""
	return r.writeln("</" + tag + ">")
}

func (r *HTMLRenderer) writeln(s string) error {
	_, err := io.WriteString(r.out, s+"\n")
	return err
}

// annotated escapes content and folds the element's annotations back in as
// markup, consuming them. A citation span covers the raw link syntax left in
// the content, so the anchor body is the annotation's text, not the span
// bytes; spans without a url keep their bytes inside a classed span tag.
func (r *HTMLRenderer) annotated(id, content string) string {
	anns := r.anns[id]
	delete(r.anns, id)
	if len(anns) == 0 {
		return html.EscapeString(content)
	}
	var sb strings.Builder
	pos := 0
	for _, ann := range anns {
		if ann.Start < pos || ann.End > len(content) || ann.Start > ann.End {
			continue
		}
		sb.WriteString(html.EscapeString(content[pos:ann.Start]))
		if ann.URL != "" {
			text := ann.Text
			if text == "" {
				text = content[ann.Start:ann.End]
			}
			sb.WriteString(anchor(ann.URL, ann.Title, html.EscapeString(text)))
		} else {
			seg := html.EscapeString(content[ann.Start:ann.End])
			sb.WriteString(`<span class="annotation-` + html.EscapeString(ann.Kind) + `">` + seg + `</span>`)
		}
		pos = ann.End
	}
	sb.WriteString(html.EscapeString(content[pos:]))
	return sb.String()
}

// inlineContent renders block content that still carries inline Markdown,
// consuming the element's annotations. Citation spans keep their raw link
// syntax in the content, so the Markdown pass itself turns them into
// anchors; spans from custom detectors are folded in by offset, with the
// text around them converted fragment by fragment.
func (r *HTMLRenderer) inlineContent(id, content string) string {
	anns := r.anns[id]
	delete(r.anns, id)
	var spans []parser.Annotation
	for _, ann := range anns {
		if ann.URL == "" {
			spans = append(spans, ann)
		}
	}
	if len(spans) == 0 {
		return inlineHTML(content)
	}
	var sb strings.Builder
	pos := 0
	for _, ann := range spans {
		if ann.Start < pos || ann.End > len(content) || ann.Start > ann.End {
			continue
		}
		sb.WriteString(inlineSegment(content[pos:ann.Start]))
		seg := html.EscapeString(content[ann.Start:ann.End])
		sb.WriteString(`<span class="annotation-` + html.EscapeString(ann.Kind) + `">` + seg + `</span>`)
		pos = ann.End
	}
	sb.WriteString(inlineSegment(content[pos:]))
	return sb.String()
}

func anchor(url, title, body string) string {
	attr := ` href="` + html.EscapeString(url) + `"`
	if title != "" {
		attr += ` title="` + html.EscapeString(title) + `"`
	}
	return "<a" + attr + ">" + body + "</a>"
}
