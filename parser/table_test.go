package parser

import (
	"reflect"
	"testing"
)

func TestStructuredTableShape(t *testing.T) {
	input := "| Name | Qty |\n|:-----|----:|\n| Ice | 3 |\n"
	assertChunkInvariant(t, "structured table", input, WithTableMode(TableStructured))

	events := parseOneShot(t, input, WithTableMode(TableStructured))
	got := elementSummary(events)
	want := `table_col:"Name"` + "\n" +
		`table_col:"Qty"` + "\n" +
		`table_row:""` + "\n" +
		`table_head:""` + "\n" +
		`table_col:"Ice"` + "\n" +
		`table_col:"3"` + "\n" +
		`table_row:""` + "\n" +
		`table_body:""` + "\n" +
		`table:""`
	if got != want {
		t.Fatalf("elements:\n%s\nwant:\n%s", got, want)
	}

	if events[0].Element != ElementTable {
		t.Fatalf("first begin = %s, want table", events[0].Element)
	}
	if events[0].Metadata["columns"] != 2 {
		t.Errorf("columns = %v, want 2", events[0].Metadata["columns"])
	}

	var aligns []any
	for _, ev := range events {
		if ev.Type == EventBegin && ev.Element == ElementTableCol {
			aligns = append(aligns, ev.Metadata["align"])
		}
	}
	wantAligns := []any{"left", "right", "left", "right"}
	if !reflect.DeepEqual(aligns, wantAligns) {
		t.Errorf("aligns = %v, want %v", aligns, wantAligns)
	}
}

func TestStructuredTableNoSeparator(t *testing.T) {
	input := "| a | b |\n| c | d |\n"
	assertChunkInvariant(t, "no separator", input, WithTableMode(TableStructured))

	got := elementSummary(parseOneShot(t, input, WithTableMode(TableStructured)))
	// Without a separator line there is no table_head; every row lands in
	// the body.
	want := `table_col:"a"` + "\n" +
		`table_col:"b"` + "\n" +
		`table_row:""` + "\n" +
		`table_col:"c"` + "\n" +
		`table_col:"d"` + "\n" +
		`table_row:""` + "\n" +
		`table_body:""` + "\n" +
		`table:""`
	if got != want {
		t.Errorf("elements:\n%s\nwant:\n%s", got, want)
	}
}

func TestStructuredTableLoneRow(t *testing.T) {
	events := parseOneShot(t, "| only |\n", WithTableMode(TableStructured))

	got := elementSummary(events)
	want := `table_col:"only"` + "\n" +
		`table_row:""` + "\n" +
		`table_body:""` + "\n" +
		`table:""`
	if got != want {
		t.Fatalf("elements:\n%s\nwant:\n%s", got, want)
	}
	if events[0].Metadata["columns"] != 1 {
		t.Errorf("columns = %v, want 1", events[0].Metadata["columns"])
	}
}

func TestStructuredTableRaggedRows(t *testing.T) {
	input := "| a | b | c |\n|---|---|---|\n| 1 | 2 |\n| 1 | 2 | 3 | 4 |\n"
	events := parseOneShot(t, input, WithTableMode(TableStructured))

	// Body rows conform to the header width: short rows pad with empty
	// cells, long rows drop the extras.
	var rows [][]string
	var cur []string
	for _, ev := range events {
		switch {
		case ev.Type == EventBegin && ev.Element == ElementTableRow:
			cur = nil
		case ev.Type == EventEnd && ev.Element == ElementTableCol:
			cur = append(cur, ev.FinalContent)
		case ev.Type == EventEnd && ev.Element == ElementTableRow:
			rows = append(rows, cur)
		}
	}
	want := [][]string{
		{"a", "b", "c"},
		{"1", "2", ""},
		{"1", "2", "3"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestStructuredTableInterrupted(t *testing.T) {
	input := "| a |\n| b |\nplain\n"
	assertChunkInvariant(t, "interrupted", input, WithTableMode(TableStructured))

	got := elementSummary(parseOneShot(t, input, WithTableMode(TableStructured)))
	want := `table_col:"a"` + "\n" +
		`table_row:""` + "\n" +
		`table_col:"b"` + "\n" +
		`table_row:""` + "\n" +
		`table_body:""` + "\n" +
		`table:""` + "\n" +
		`text:"plain"`
	if got != want {
		t.Errorf("elements:\n%s\nwant:\n%s", got, want)
	}
}

func TestStructuredTableCellCitation(t *testing.T) {
	events := parseOneShot(t, "| see [a](u) |\n| x |\n", WithTableMode(TableStructured))

	anns := annotationEvents(events)
	if len(anns) != 1 {
		t.Fatalf("annotations = %d, want 1", len(anns))
	}
	if anns[0].Annotation.URL != "u" {
		t.Errorf("url = %v", anns[0].Annotation.URL)
	}

	// The citation hangs off the cell element, not the table.
	var colID string
	for _, ev := range events {
		if ev.Type == EventBegin && ev.Element == ElementTableCol {
			colID = ev.ElementID
			break
		}
	}
	if anns[0].ElementID != colID {
		t.Errorf("annotation element = %s, want %s", anns[0].ElementID, colID)
	}
}

func TestTableTextMode(t *testing.T) {
	// The default mode emits the table as one element of raw lines.
	got := elementSummary(parseOneShot(t, "| a | b |\n|---|---|\n| 1 | 2 |\n"))
	want := `table:"| a | b |\n|---|---|\n| 1 | 2 |"`
	if got != want {
		t.Errorf("elements:\n%s\nwant:\n%s", got, want)
	}
}

func TestSplitTableCells(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"outer pipes", "| a | b |", []string{"a", "b"}},
		{"no trailing pipe", "| a | b", []string{"a", "b"}},
		{"escaped pipe", `| a \| b | c |`, []string{"a | b", "c"}},
		{"empty middle cell", "|  | b |", []string{"", "b"}},
		{"empty last cell kept", "| a | b | |", []string{"a", "b", ""}},
		{"single cell", "| only |", []string{"only"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitTableCells(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitTableCells(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseTableSeparator(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		aligns []string
	}{
		{"plain", "|---|---|", true, []string{"", ""}},
		{"left and right", "|:--|--:|", true, []string{"left", "right"}},
		{"center", "| :-: |", true, []string{"center"}},
		{"single dash", "|-|", true, []string{""}},
		{"letters", "|--x--|", false, nil},
		{"content row", "| a | b |", false, nil},
		{"colons only", "|::|", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aligns, ok := parseTableSeparator(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !reflect.DeepEqual(aligns, tt.aligns) {
				t.Errorf("aligns = %v, want %v", aligns, tt.aligns)
			}
		})
	}
}
