package parser

import "regexp"

// AnnotationDetector finds annotations in an element's content. Detect runs
// exactly once per element, on its final content, immediately before the
// element's End event is emitted.
type AnnotationDetector interface {
	Detect(elementType ElementType, content string) []Annotation
}

// RegexAnnotation adapts a regular expression into an AnnotationDetector.
// Every non-overlapping match becomes one annotation of the given kind,
// with the full match as its text. Meta, when set, receives the submatch
// slice and supplies annotation metadata.
type RegexAnnotation struct {
	Kind    string
	Pattern *regexp.Regexp
	Meta    func(match []string) map[string]any
}

func (r *RegexAnnotation) Detect(_ ElementType, content string) []Annotation {
	if r.Pattern == nil {
		return nil
	}
	locs := r.Pattern.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}
	anns := make([]Annotation, 0, len(locs))
	for _, loc := range locs {
		ann := Annotation{
			Kind:  r.Kind,
			Text:  content[loc[0]:loc[1]],
			Start: loc[0],
			End:   loc[1],
		}
		if r.Meta != nil {
			sub := make([]string, len(loc)/2)
			for i := range sub {
				if loc[2*i] >= 0 {
					sub[i] = content[loc[2*i]:loc[2*i+1]]
				}
			}
			ann.Metadata = r.Meta(sub)
		}
		anns = append(anns, ann)
	}
	return anns
}

// annotationExtractor runs the citation scan and any custom detectors over
// finished element content. Code and math bodies are opaque and never
// scanned.
type annotationExtractor struct {
	citations bool
	custom    []AnnotationDetector
}

func (x *annotationExtractor) extract(typ ElementType, content string) []Annotation {
	if typ == ElementCode || typ == ElementMath {
		return nil
	}
	var out []Annotation
	if x.citations {
		out = append(out, scanCitations(content)...)
	}
	for _, d := range x.custom {
		out = append(out, d.Detect(typ, content)...)
	}
	return out
}

// scanCitations finds complete [text](url) occurrences left verbatim in
// content. Elements that had their links segmented out as link elements
// retain no such syntax, so nothing is reported twice.
func scanCitations(content string) []Annotation {
	var anns []Annotation
	for i := 0; i < len(content); {
		switch content[i] {
		case '\\':
			i += 2
		case '[':
			text, url, title, n, st := parseInlineLink(content[i:])
			if st != linkMatch {
				i++
				continue
			}
			anns = append(anns, Annotation{
				Kind:  citationKind,
				Text:  text,
				URL:   url,
				Title: title,
				Start: i,
				End:   i + n,
			})
			i += n
		default:
			i++
		}
	}
	return anns
}
