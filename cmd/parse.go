package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/streammd/streammd/internal/history"
	"github.com/streammd/streammd/internal/input"
	"github.com/streammd/streammd/internal/render"
	"github.com/streammd/streammd/parser"
)

// defaultReadBuffer is the chunk size when --chunk-size is 0.
const defaultReadBuffer = 4096

var parseCmd = &cobra.Command{
	Use:   "parse [file|glob ...]",
	Short: "Parse markdown into NDJSON events",
	Long: `Parse markdown files or stdin into begin/delta/end/annotation events,
one JSON object per line. The input is fed to the parser in --chunk-size
byte chunks; the emitted events are identical for every chunk size.

Examples:
  cat doc.md | streammd parse
  streammd parse README.md --chunk-size 7
  streammd parse 'docs/**/*.md' --ids uuid --record`,
	RunE: runParse,
}

var (
	parseChunkSize int
	parseIDs       string
	parseRecord    bool
	parseMatchers  string
	parseElements  string
)

func init() {
	AddChunkSizeFlag(parseCmd, &parseChunkSize, 0)
	AddMatchersFlag(parseCmd, &parseMatchers)
	AddElementsFlag(parseCmd, &parseElements)
	parseCmd.Flags().StringVar(&parseIDs, "ids", "seq", "Element id generation: seq or uuid")
	parseCmd.Flags().BoolVar(&parseRecord, "record", false, "Record this run in history")
	if err := parseCmd.RegisterFlagCompletionFunc("ids", idsFlagCompletion); err != nil {
		panic("failed to register ids completion: " + err.Error())
	}
	rootCmd.AddCommand(parseCmd)
}

func idsFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, mode := range []string{"seq", "uuid"} {
		if strings.HasPrefix(mode, toComplete) {
			completions = append(completions, mode)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func runParse(cmd *cobra.Command, args []string) error {
	log := logger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyElementsFlag(&cfg.Elements, parseElements)

	idOpts, err := idGenOptions(parseIDs)
	if err != nil {
		return err
	}

	sources, err := input.Resolve(args)
	if err != nil {
		return err
	}

	var store *history.Store
	if parseRecord {
		store, err = openHistory(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	out := render.NewNDJSON(os.Stdout)
	for _, src := range sources {
		p, err := buildParser(cfg, parseMatchers, idOpts...)
		if err != nil {
			return err
		}

		log.ParseStarted(src.Path, parseChunkSize)
		start := time.Now()

		var collected []parser.Event
		events, elements := 0, 0
		sink := func(ev parser.Event) error {
			events++
			if ev.Type == parser.EventBegin {
				elements++
			}
			if store != nil {
				collected = append(collected, ev)
			}
			return out.Write(ev)
		}

		if err := feed(p, src.Content, parseChunkSize, sink); err != nil {
			log.SourceError(src.Path, err)
			return fmt.Errorf("parse %s: %w", src.Path, err)
		}
		duration := time.Since(start)
		log.ParseCompleted(src.Path, events, elements, duration)

		if store != nil {
			run := &history.Run{
				Source:    src.Path,
				Bytes:     len(src.Content),
				ChunkSize: parseChunkSize,
				Duration:  duration,
			}
			run.Tally(collected)
			if err := store.Record(context.Background(), run); err != nil {
				return fmt.Errorf("record run: %w", err)
			}
		}
	}
	return nil
}

// idGenOptions maps the --ids mode onto parser options. The default
// sequential generator needs none.
func idGenOptions(mode string) ([]parser.Option, error) {
	switch mode {
	case "", "seq":
		return nil, nil
	case "uuid":
		return []parser.Option{parser.WithIDGenerator(uuid.NewString)}, nil
	default:
		return nil, fmt.Errorf("invalid --ids mode %q: must be seq or uuid", mode)
	}
}

// feed streams content through the parser in fixed-size chunks, passing
// every event to sink as it is produced. Chunk size 0 uses the default
// read buffer size.
func feed(p *parser.Parser, content string, chunkSize int, sink func(parser.Event) error) error {
	if chunkSize <= 0 {
		chunkSize = defaultReadBuffer
	}
	for start := 0; start < len(content); start += chunkSize {
		end := start + chunkSize
		if end > len(content) {
			end = len(content)
		}
		seq, err := p.ProcessChunk(content[start:end])
		if err != nil {
			return err
		}
		if err := drain(seq, sink); err != nil {
			return err
		}
	}
	seq, err := p.Complete()
	if err != nil {
		return err
	}
	return drain(seq, sink)
}

func drain(seq *parser.Events, sink func(parser.Event) error) error {
	for {
		ev, err := seq.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := sink(ev); err != nil {
			return err
		}
	}
}
