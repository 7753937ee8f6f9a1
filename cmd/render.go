package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/streammd/streammd/internal/config"
	"github.com/streammd/streammd/internal/input"
	"github.com/streammd/streammd/internal/render"
	"github.com/streammd/streammd/parser"
)

var renderCmd = &cobra.Command{
	Use:   "render [file|glob ...]",
	Short: "Render markdown to the terminal, HTML, or NDJSON",
	Long: `Render markdown files or stdin through the event stream. Finished
elements are written exactly once; when stdout is a terminal and input
arrives on stdin, the in-progress element repaints in place below the
finished output until it completes.

Examples:
  cat doc.md | streammd render
  some-generator | streammd render          # live, nothing re-renders
  streammd render README.md --format html > readme.html
  streammd render doc.md --width 72`,
	RunE: runRender,
}

var (
	renderFormat   string
	renderWidth    int
	renderMatchers string
	renderElements string
	renderNotes    bool
)

func init() {
	AddFormatFlag(renderCmd, &renderFormat)
	AddWidthFlag(renderCmd, &renderWidth)
	AddMatchersFlag(renderCmd, &renderMatchers)
	AddElementsFlag(renderCmd, &renderElements)
	renderCmd.Flags().BoolVar(&renderNotes, "annotations", false, "Print annotation notes under elements")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyElementsFlag(&cfg.Elements, renderElements)
	cfg.ApplyOverrides(renderFormat, renderWidth)

	format := cfg.Render.Format
	switch format {
	case "ansi", "html", "ndjson":
	default:
		return fmt.Errorf("invalid format %q: must be ansi, html, or ndjson", format)
	}
	width := resolveWidth(0, cfg.Render.Width)

	// Live repaint needs an ANSI terminal on stdout and a stream on stdin.
	if format == "ansi" && len(args) == 0 &&
		term.IsTerminal(int(os.Stdout.Fd())) && render.ColorEnabled() {
		return renderLive(cfg, width)
	}

	sources, err := input.Resolve(args)
	if err != nil {
		return err
	}

	for i, src := range sources {
		if i > 0 {
			fmt.Println()
		}
		if len(sources) > 1 && format == "ansi" {
			fmt.Printf("==> %s <==\n\n", src.Path)
		}
		if err := renderSource(cfg, format, width, src); err != nil {
			return fmt.Errorf("render %s: %w", src.Path, err)
		}
	}
	return nil
}

func renderSource(cfg *config.Config, format string, width int, src input.Source) error {
	switch format {
	case "ndjson":
		p, err := buildParser(cfg, renderMatchers)
		if err != nil {
			return err
		}
		out := render.NewNDJSON(os.Stdout)
		return feed(p, src.Content, 0, out.Write)

	case "html":
		p, err := buildParser(cfg, renderMatchers, render.ParserOptions()...)
		if err != nil {
			return err
		}
		r := render.NewHTML(os.Stdout)
		if err := feed(p, src.Content, 0, r.Render); err != nil {
			return err
		}
		return r.Flush()

	default:
		p, err := buildParser(cfg, renderMatchers, render.ParserOptions()...)
		if err != nil {
			return err
		}
		r := newANSIRenderer(os.Stdout, cfg, width)
		if err := feed(p, src.Content, 0, r.Render); err != nil {
			return err
		}
		return r.Flush()
	}
}

func newANSIRenderer(out io.Writer, cfg *config.Config, width int) *render.ANSIRenderer {
	theme := render.ThemeFromConfig(render.ThemeConfig{
		Heading: cfg.Render.Theme.Heading,
		Code:    cfg.Render.Theme.Code,
		Quote:   cfg.Render.Theme.Quote,
		Link:    cfg.Render.Theme.Link,
		Accent:  cfg.Render.Theme.Accent,
		Muted:   cfg.Render.Theme.Muted,
	})
	return render.NewANSI(out,
		render.WithWidth(width),
		render.WithTheme(theme),
		render.WithAnnotations(renderNotes))
}

// renderLive streams stdin through the parser, writing finished elements
// permanently and repainting the open element in a live region below them.
func renderLive(cfg *config.Config, width int) error {
	log := logger()

	p, err := buildParser(cfg, renderMatchers, render.ParserOptions()...)
	if err != nil {
		return err
	}
	r := newANSIRenderer(os.Stdout, cfg, width)
	live := render.NewLiveRegion(os.Stdout, width)
	open := newOpenTracker()

	buf := make([]byte, defaultReadBuffer)
	for {
		n, readErr := os.Stdin.Read(buf)
		if n > 0 {
			seq, err := p.ProcessChunk(string(buf[:n]))
			if err != nil {
				live.Clear()
				return err
			}
			if err := paintBatch(r, live, open, seq.Collect()); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			live.Clear()
			return fmt.Errorf("read stdin: %w", readErr)
		}
	}

	seq, err := p.Complete()
	if err != nil {
		live.Clear()
		return err
	}
	if err := paintBatch(r, live, open, seq.Collect()); err != nil {
		return err
	}
	live.Clear()
	if err := r.Flush(); err != nil {
		return err
	}
	log.Debug("stream complete", "elements", open.begun)
	return nil
}

// paintBatch clears the live region, commits the batch's finished output,
// and repaints the in-progress tail.
func paintBatch(r *render.ANSIRenderer, live *render.LiveRegion, open *openTracker, events []parser.Event) error {
	live.Clear()
	for _, ev := range events {
		open.observe(ev)
		if err := r.Render(ev); err != nil {
			return err
		}
	}
	live.Update(livePreview(r, open))
	return nil
}

// livePreview is the repainting tail: the unflushed paragraph flow plus
// the newest open element's partial content.
func livePreview(r *render.ANSIRenderer, open *openTracker) string {
	s := r.PendingParagraph()
	if part := open.newestPartial(); part != "" {
		s += part
	}
	if s == "" {
		return ""
	}
	return s + "▌"
}

// openTracker accumulates delta content per open element.
type openTracker struct {
	order []string
	part  map[string]string
	begun int
}

func newOpenTracker() *openTracker {
	return &openTracker{part: make(map[string]string)}
}

func (o *openTracker) observe(ev parser.Event) {
	switch ev.Type {
	case parser.EventBegin:
		o.begun++
		o.order = append(o.order, ev.ElementID)
		o.part[ev.ElementID] = ""
	case parser.EventDelta:
		o.part[ev.ElementID] += ev.Content
	case parser.EventEnd:
		delete(o.part, ev.ElementID)
		for i, id := range o.order {
			if id == ev.ElementID {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
	}
}

func (o *openTracker) newestPartial() string {
	for i := len(o.order) - 1; i >= 0; i-- {
		if part := o.part[o.order[i]]; part != "" {
			return part
		}
	}
	return ""
}
