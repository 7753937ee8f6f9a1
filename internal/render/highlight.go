package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
)

// highlightCode applies syntax highlighting to a code block body. The
// language comes from the fence info string and may be empty or unknown, in
// which case the body passes through unchanged.
func highlightCode(code, lang string) string {
	if lang == "" {
		return code
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	// Monokai holds up on dark backgrounds.
	style := chromastyles.Get("monokai")
	if style == nil {
		style = chromastyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	f := &fgFormatter{style: style}
	if err := f.Format(&buf, iterator); err != nil {
		return code
	}
	return buf.String()
}

// fgFormatter is a chroma formatter that applies only foreground colors, so
// the terminal's background shows through.
type fgFormatter struct {
	style *chroma.Style
}

func (f *fgFormatter) Format(w io.Writer, iterator chroma.Iterator) error {
	for token := iterator(); token != chroma.EOF; token = iterator() {
		if token.Value == "" {
			continue
		}

		entry := f.style.Get(token.Type)

		var codes []string
		if entry.Colour.IsSet() {
			codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
		}
		if entry.Bold == chroma.Yes {
			codes = append(codes, "1")
		}
		if entry.Italic == chroma.Yes {
			codes = append(codes, "3")
		}
		if entry.Underline == chroma.Yes {
			codes = append(codes, "4")
		}

		if len(codes) > 0 {
			// Style each line separately so the reset never spans a
			// newline; downstream wrapping relies on that.
			lines := strings.Split(token.Value, "\n")
			for i, line := range lines {
				if i > 0 {
					fmt.Fprint(w, "\n")
				}
				if line == "" {
					continue
				}
				fmt.Fprintf(w, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), line)
			}
		} else {
			fmt.Fprint(w, token.Value)
		}
	}
	return nil
}
