package tui

import "github.com/sahilm/fuzzy"

// Sample is a built-in document for the demo playground.
type Sample struct {
	Name string
	Desc string
	Text string
}

// SampleSource implements fuzzy.Source for sample picking.
type SampleSource []Sample

func (s SampleSource) String(i int) string { return s[i].Name }
func (s SampleSource) Len() int            { return len(s) }

// FilterSamples returns samples matching the query using fuzzy search.
func FilterSamples(query string, samples []Sample) []Sample {
	if query == "" {
		return samples
	}
	matches := fuzzy.FindFrom(query, SampleSource(samples))
	result := make([]Sample, 0, len(matches))
	for _, match := range matches {
		result = append(result, samples[match.Index])
	}
	return result
}

// Samples returns the built-in demo documents.
func Samples() []Sample {
	return []Sample{
		{
			Name: "tour",
			Desc: "every element type in one document",
			Text: "# streammd tour\n\n" +
				"Text streams in *as it arrives*, but **formatting** never flickers:\n" +
				"ambiguous markup is held back until it resolves.\n\n" +
				"## Code\n\n" +
				"```go\nfunc main() {\n\tfmt.Println(\"chunked\")\n}\n```\n\n" +
				"## Structure\n\n" +
				"- lists\n" +
				"- [links](https://example.com)\n" +
				"- `inline code`\n\n" +
				"> Quotes hold their shape across chunk boundaries.\n\n" +
				"| left | right |\n|:-----|------:|\n| a    |     1 |\n| b    |    22 |\n\n" +
				"---\n\n" +
				"The rule above closed the document.\n",
		},
		{
			Name: "code-review",
			Desc: "prose with code blocks and citations",
			Text: "## Review notes\n\n" +
				"The retry loop in `fetch.go` never backs off. Compare with the\n" +
				"pattern from [the stdlib docs](https://pkg.go.dev/net/http):\n\n" +
				"```go\nfor attempt := 0; attempt < max; attempt++ {\n" +
				"\ttime.Sleep(backoff(attempt))\n}\n```\n\n" +
				"Two problems:\n\n" +
				"1. the first sleep fires before the first attempt\n" +
				"2. `backoff` overflows past attempt 31\n\n" +
				"> Ship the fix behind a flag first.\n",
		},
		{
			Name: "math",
			Desc: "display math and emphasis",
			Text: "# Convergence\n\n" +
				"The series converges when the ratio stays *strictly* below one:\n\n" +
				"$$\n\\lim_{n \\to \\infty} \\left| \\frac{a_{n+1}}{a_n} \\right| < 1\n$$\n\n" +
				"Otherwise ~~all bets are off~~ the test is inconclusive.\n",
		},
		{
			Name: "changelog",
			Desc: "headings, tight lists, thematic breaks",
			Text: "# 0.3.0\n\n" +
				"- parser: hold back incomplete UTF-8 tails\n" +
				"- render: wrap annotation notes to width\n" +
				"- cli: add `--chunk-size`\n\n" +
				"---\n\n" +
				"# 0.2.1\n\n" +
				"- fix fence info string trailing spaces\n" +
				"- fix table separator detection on final line\n",
		},
	}
}
