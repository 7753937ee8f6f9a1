package render

import (
	"encoding/json"
	"io"

	"github.com/streammd/streammd/parser"
)

// NDJSONWriter emits parse events as newline-delimited JSON, one event per
// line. Event type names use the wire form (begin, delta, end, annotation).
type NDJSONWriter struct {
	enc *json.Encoder
}

func NewNDJSON(out io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(out)}
}

// Write encodes one event.
func (w *NDJSONWriter) Write(ev parser.Event) error {
	return w.enc.Encode(wireEvent{
		Type:         ev.Type.String(),
		ElementID:    ev.ElementID,
		Element:      ev.Element,
		Metadata:     ev.Metadata,
		Content:      ev.Content,
		FinalContent: ev.FinalContent,
		Annotation:   ev.Annotation,
	})
}

// WriteAll encodes a whole event sequence.
func (w *NDJSONWriter) WriteAll(events []parser.Event) error {
	for _, ev := range events {
		if err := w.Write(ev); err != nil {
			return err
		}
	}
	return nil
}

// wireEvent is the serialized form of an event. The numeric EventType is
// replaced by its string name so consumers in other languages read stable
// identifiers.
type wireEvent struct {
	Type         string             `json:"type"`
	ElementID    string             `json:"elementId"`
	Element      parser.ElementType `json:"elementType,omitempty"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	Content      string             `json:"content,omitempty"`
	FinalContent string             `json:"finalContent,omitempty"`
	Annotation   *parser.Annotation `json:"annotation,omitempty"`
}
