package report

import (
	"encoding/json"
	"io"
	"time"
)

// JSONWriter outputs tables in JSON format for scripting around
// the history command. Rows become objects keyed by column name.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// jsonTable is the JSON shape of a Table.
type jsonTable struct {
	Title       string           `json:"title,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Meta        map[string]any   `json:"meta,omitempty"`
	Stats       map[string]int   `json:"stats,omitempty"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
}

// Write outputs the table in JSON format.
func (w *JSONWriter) Write(table *Table) (int, error) {
	out := jsonTable{
		Title:       table.Title,
		GeneratedAt: table.GeneratedAt,
		Columns:     table.Columns,
		Rows:        make([]map[string]any, 0, table.Len()),
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if len(table.Meta) > 0 {
		out.Meta = make(map[string]any, len(table.Meta))
		for _, f := range table.Meta {
			out.Meta[f.Name] = f.Value
		}
	}
	if len(table.Stats) > 0 {
		out.Stats = make(map[string]int, len(table.Stats))
		for _, s := range table.Stats {
			out.Stats[s.Label] = s.Count
		}
	}
	for _, row := range table.Rows {
		obj := make(map[string]any, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		out.Rows = append(out.Rows, obj)
	}

	return w.writeJSON(out)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
