package parser

import (
	"reflect"
	"testing"
)

func collectMachine(maxDelta int) (*elementStateMachine, *[]Event) {
	var events []Event
	m := newElementStateMachine(func(ev Event) { events = append(events, ev) }, maxDelta)
	return m, &events
}

func TestMachineTrimHoldsTrailingWhitespace(t *testing.T) {
	m, events := collectMachine(0)

	m.begin("a", ElementText, nil, true)
	m.appendContent("a", "word ")
	m.appendContent("a", " \t")
	m.appendContent("a", "more")
	m.end("a", nil)

	var deltas []string
	for _, ev := range *events {
		if ev.Type == EventDelta {
			deltas = append(deltas, ev.Content)
		}
	}
	// Trailing whitespace is withheld until real content follows it, so
	// no delta ever ends in droppable whitespace.
	want := []string{"word", "  \tmore"}
	if !reflect.DeepEqual(deltas, want) {
		t.Errorf("deltas = %q, want %q", deltas, want)
	}
	last := (*events)[len(*events)-1]
	if last.FinalContent != "word  \tmore" {
		t.Errorf("final = %q, want %q", last.FinalContent, "word  \tmore")
	}
}

func TestMachineTrimDropsTailAtEnd(t *testing.T) {
	m, events := collectMachine(0)

	m.begin("a", ElementText, nil, true)
	m.appendContent("a", "word \n")
	m.end("a", nil)

	last := (*events)[len(*events)-1]
	if last.Type != EventEnd || last.FinalContent != "word" {
		t.Errorf("final = %q, want %q", last.FinalContent, "word")
	}
}

func TestMachineFlushHeldKeepsMidLineTail(t *testing.T) {
	m, events := collectMachine(0)

	m.begin("a", ElementText, nil, true)
	m.appendContent("a", "Check out ")
	m.flushHeld("a")
	m.end("a", nil)

	last := (*events)[len(*events)-1]
	if last.FinalContent != "Check out " {
		t.Errorf("final = %q, want trailing space kept", last.FinalContent)
	}
}

func TestMachineReBeginIsIdempotent(t *testing.T) {
	m, events := collectMachine(0)

	m.begin("a", ElementText, nil, false)
	m.begin("a", ElementText, nil, false)
	m.appendContent("a", "x")
	m.end("a", nil)

	begins := 0
	for _, ev := range *events {
		if ev.Type == EventBegin {
			begins++
		}
	}
	if begins != 1 {
		t.Errorf("begins = %d, want 1", begins)
	}
}

func TestMachineEndAllClosesInReverseOrder(t *testing.T) {
	m, events := collectMachine(0)

	m.begin("outer", ElementTable, nil, false)
	m.begin("inner", ElementTableRow, nil, false)
	m.endAll(nil)

	var ended []string
	for _, ev := range *events {
		if ev.Type == EventEnd {
			ended = append(ended, ev.ElementID)
		}
	}
	if !reflect.DeepEqual(ended, []string{"inner", "outer"}) {
		t.Errorf("end order = %v, want inner before outer", ended)
	}
	if m.openCount() != 0 {
		t.Errorf("open after endAll = %d", m.openCount())
	}
}

func TestMachineDeltaCoalescing(t *testing.T) {
	m, events := collectMachine(4)

	m.begin("a", ElementCode, nil, false)
	for i := 0; i < 10; i++ {
		m.appendContent("a", "x")
	}
	m.end("a", nil)

	var deltas []string
	for _, ev := range *events {
		if ev.Type == EventDelta {
			deltas = append(deltas, ev.Content)
		}
	}
	// Ten single bytes coalesce into batches of four plus the remainder.
	want := []string{"xxxx", "xxxx", "xx"}
	if !reflect.DeepEqual(deltas, want) {
		t.Errorf("deltas = %q, want %q", deltas, want)
	}
}
