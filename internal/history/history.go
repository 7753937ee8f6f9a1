// Package history records parse runs in a local SQLite database so past
// invocations can be listed, inspected, and searched.
package history

import (
	"time"

	"github.com/streammd/streammd/parser"
)

// Run is one recorded parse invocation.
type Run struct {
	ID        int64          `json:"id"`
	Source    string         `json:"source"` // file path, or "stdin"
	Bytes     int            `json:"bytes"`
	ChunkSize int            `json:"chunk_size"` // 0 when the input was fed in read-buffer chunks
	Events    int            `json:"events"`
	Elements  int            `json:"elements"`
	Counts    map[string]int `json:"counts,omitempty"` // element counts by type
	Duration  time.Duration  `json:"duration"`
	CreatedAt time.Time      `json:"created_at"`
}

// Tally fills the run's event statistics from a completed event stream.
func (r *Run) Tally(events []parser.Event) {
	counts := make(map[string]int)
	total := 0
	for _, ev := range events {
		if ev.Type == parser.EventBegin {
			counts[string(ev.Element)]++
			total++
		}
	}
	r.Events = len(events)
	r.Elements = total
	r.Counts = counts
}

// Config controls where runs are stored and how many are kept.
type Config struct {
	// Path is the SQLite database file. The parent directory is created on
	// open.
	Path string

	// MaxRuns caps retained history. Oldest runs beyond the cap are deleted
	// on open. Zero keeps everything.
	MaxRuns int
}
