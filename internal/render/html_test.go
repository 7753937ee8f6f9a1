package render

import (
	"regexp"
	"strings"
	"testing"

	"github.com/streammd/streammd/parser"
)

func renderHTML(t *testing.T, input string, popts ...parser.Option) string {
	t.Helper()
	events, err := parser.Parse(input, append(ParserOptions(), popts...)...)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var buf strings.Builder
	r := NewHTML(&buf)
	if err := r.RenderAll(events); err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	return buf.String()
}

func TestHTMLDocument(t *testing.T) {
	input := "# Title\n\n" +
		"Hello *world*.\n\n" +
		"- a\n- b\n\n" +
		"```go\nx := 1\n```\n\n" +
		"> quoted\n\n" +
		"---\n"
	want := strings.Join([]string{
		"<h1>Title</h1>",
		"<p>Hello <em>world</em>.</p>",
		"<ul>",
		"<li>a</li>",
		"<li>b</li>",
		"</ul>",
		`<pre><code class="language-go">x := 1`,
		"</code></pre>",
		"<blockquote>",
		"<p>quoted</p>",
		"</blockquote>",
		"<hr>",
	}, "\n") + "\n"

	if got := renderHTML(t, input); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestHTMLParagraphBreaks(t *testing.T) {
	got := renderHTML(t, "First one.\n\nSecond one.\n")
	want := "<p>First one.</p>\n<p>Second one.</p>\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestHTMLEscaping(t *testing.T) {
	got := renderHTML(t, "Tags like <b> & \"quotes\" stay text.\n")
	want := "<p>Tags like &lt;b&gt; &amp; &#34;quotes&#34; stay text.</p>\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestHTMLLinkElement(t *testing.T) {
	got := renderHTML(t, "Visit [site](https://s.io) now.\n")
	want := `<p>Visit <a href="https://s.io">site</a> now.</p>` + "\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestHTMLCitationBecomesAnchor(t *testing.T) {
	got := renderHTML(t, "# See [docs](https://d.io \"Docs\")\n")
	want := `<h1>See <a href="https://d.io" title="Docs">docs</a></h1>` + "\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestHTMLCustomAnnotationSpan(t *testing.T) {
	detector := &parser.RegexAnnotation{Kind: "issue", Pattern: regexp.MustCompile(`#\d+`)}
	got := renderHTML(t, "Fixed in #42 now.\n", parser.WithAnnotationDetector(detector))
	want := `<p>Fixed in <span class="annotation-issue">#42</span> now.</p>` + "\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestHTMLInlineMarkupInBlocks(t *testing.T) {
	input := "# A **bold** move\n\n" +
		"- run `go vet` first\n\n" +
		"> stay *calm* and ~~panic~~\n"
	want := strings.Join([]string{
		"<h1>A <strong>bold</strong> move</h1>",
		"<ul>",
		"<li>run <code>go vet</code> first</li>",
		"</ul>",
		"<blockquote>",
		"<p>stay <em>calm</em> and <del>panic</del></p>",
		"</blockquote>",
	}, "\n") + "\n"

	if got := renderHTML(t, input); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestHTMLCustomAnnotationInHeading(t *testing.T) {
	detector := &parser.RegexAnnotation{Kind: "issue", Pattern: regexp.MustCompile(`#\d+`)}
	got := renderHTML(t, "## Fixes #42 for *good*\n", parser.WithAnnotationDetector(detector))
	want := `<h2>Fixes <span class="annotation-issue">#42</span> for <em>good</em></h2>` + "\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestHTMLOrderedListSwitch(t *testing.T) {
	got := renderHTML(t, "1. one\n2. two\n- dash\n")
	want := strings.Join([]string{
		"<ol>",
		"<li>one</li>",
		"<li>two</li>",
		"</ol>",
		"<ul>",
		"<li>dash</li>",
		"</ul>",
	}, "\n") + "\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestHTMLStructuredTable(t *testing.T) {
	input := "| a | b |\n|:--|--:|\n| 1 | 2 |\n"
	want := strings.Join([]string{
		"<table>",
		"<thead>",
		"<tr>",
		`<th align="left">a</th>`,
		`<th align="right">b</th>`,
		"</tr>",
		"</thead>",
		"<tbody>",
		"<tr>",
		`<td align="left">1</td>`,
		`<td align="right">2</td>`,
		"</tr>",
		"</tbody>",
		"</table>",
	}, "\n") + "\n"

	if got := renderHTML(t, input, parser.WithTableMode(parser.TableStructured)); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestHTMLTextTable(t *testing.T) {
	got := renderHTML(t, "| a |\n| b |\n")
	want := "<pre class=\"table\">| a |\n| b |\n</pre>\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestHTMLMathBlock(t *testing.T) {
	got := renderHTML(t, "$$\nE = mc^2\n$$\n")
	want := "<pre class=\"math\">E = mc^2\n</pre>\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
