package render

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

// inlineMarkdown is a shared goldmark instance with the strikethrough
// extension. Block elements keep inline markup verbatim in their content
// (headers, list items, quotes, table cells carry `code`, **bold**, *em*,
// ~~strike~~ and [text](url) spans as written), so the HTML renderer runs
// that residue through a real Markdown pass.
var inlineMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
)

// inlineHTML converts residual inline Markdown in s to a safe HTML subset:
//
//	<strong>, <em>, <del>, <code>, <pre>, <a href [title]>
//
// Any other structure goldmark infers is unwrapped to its text.
func inlineHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return html.EscapeString(s)
	}
	var buf bytes.Buffer
	if err := inlineMarkdown.Convert([]byte(s), &buf); err != nil {
		// Fallback: escaped plain text.
		return html.EscapeString(s)
	}
	return safeInline(buf.String())
}

// inlineSegment converts a fragment of block content while keeping its
// boundary whitespace, which a Markdown pass would trim away.
func inlineSegment(s string) string {
	trimmed := strings.TrimLeft(s, " \t")
	lead := s[:len(s)-len(trimmed)]
	core := strings.TrimRight(trimmed, " \t")
	if core == "" {
		return s
	}
	return lead + inlineHTML(core) + trimmed[len(core):]
}

// safeInline walks goldmark HTML output and keeps only inline formatting
// tags. Paragraph boundaries become blank lines in the text flow.
func safeInline(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))

	var sb strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		tok := z.Token()
		switch tt {
		case html.TextToken:
			// The tokenizer hands text back unescaped.
			sb.WriteString(html.EscapeString(tok.Data))

		case html.StartTagToken, html.SelfClosingTagToken:
			switch tok.Data {
			case "b", "strong":
				sb.WriteString("<strong>")
			case "i", "em":
				sb.WriteString("<em>")
			case "s", "strike", "del":
				sb.WriteString("<del>")
			case "code":
				sb.WriteString("<code>")
			case "pre":
				sb.WriteString("<pre>")
			case "a":
				if href := attrVal(tok.Attr, "href"); href != "" {
					sb.WriteString(`<a href="` + html.EscapeString(href) + `"`)
					if title := attrVal(tok.Attr, "title"); title != "" {
						sb.WriteString(` title="` + html.EscapeString(title) + `"`)
					}
					sb.WriteString(">")
				} else {
					sb.WriteString("<a>")
				}
			case "br":
				sb.WriteString("\n")
				// All other tags: drop the tag, keep the text.
			}

		case html.EndTagToken:
			switch tok.Data {
			case "b", "strong":
				sb.WriteString("</strong>")
			case "i", "em":
				sb.WriteString("</em>")
			case "s", "strike", "del":
				sb.WriteString("</del>")
			case "code":
				sb.WriteString("</code>")
			case "pre":
				sb.WriteString("</pre>")
			case "a":
				sb.WriteString("</a>")
			case "p":
				sb.WriteString("\n\n")
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// attrVal returns the value of a named HTML attribute, or "".
func attrVal(attrs []html.Attribute, name string) string {
	for _, a := range attrs {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
