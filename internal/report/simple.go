package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs a plain-text summary for terminal display.
// Rows are only listed in verbose mode; the spreadsheet holds the full data.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether empty sections are shown.
	showEmpty bool

	// verbose lists every row.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables listing every row.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the table summary in human-readable format.
func (w *SimpleWriter) Write(table *Table) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, table)
	w.writeSummary(&sb, table)
	w.writeRows(&sb, table)
	sb.WriteString(rule('=') + "\n")

	return io.WriteString(w.output, sb.String())
}

// rule returns a full width horizontal line of c.
func rule(c rune) string {
	return strings.Repeat(string(c), 70)
}

// section starts a titled block.
func section(sb *strings.Builder, title string) {
	fmt.Fprintf(sb, "%s\n%s\n%s\n\n", rule('-'), title, rule('-'))
}

// writeHeader writes the title and the run properties.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, table *Table) {
	title := strings.ToUpper(table.Title)
	if title == "" {
		title = "STORECRAWL REPORT"
	}
	fmt.Fprintf(sb, "\n%s\n  %s\n%s\n\n", rule('='), title, rule('='))

	width := len("Rows")
	for _, f := range table.Meta {
		width = max(width, len(f.Name))
	}
	for _, f := range table.Meta {
		fmt.Fprintf(sb, "%-*s  %s\n", width+1, f.Name+":", FormatValue(f.Value))
	}
	fmt.Fprintf(sb, "%-*s  %d\n\n", width+1, "Rows:", table.Len())
}

// writeSummary writes the summary counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, table *Table) {
	if len(table.Stats) == 0 {
		if w.showEmpty {
			section(sb, "SUMMARY")
			sb.WriteString("  Nothing to summarize\n\n")
		}
		return
	}

	section(sb, "SUMMARY")
	for _, s := range table.Stats {
		fmt.Fprintf(sb, "  %-40s %d\n", s.Label+":", s.Count)
	}
	sb.WriteString("\n")
}

// writeRows lists the rows, one block per row, in verbose mode.
func (w *SimpleWriter) writeRows(sb *strings.Builder, table *Table) {
	if !w.verbose {
		return
	}
	if table.Len() == 0 {
		if w.showEmpty {
			section(sb, "ROWS")
			sb.WriteString("  No rows\n\n")
		}
		return
	}

	section(sb, "ROWS")
	for i, row := range table.StringRows() {
		fmt.Fprintf(sb, "[%d]\n", i+1)
		for j, cell := range row {
			if cell == "" || j >= len(table.Columns) {
				continue
			}
			fmt.Fprintf(sb, "  %s: %s\n", table.Columns[j], cell)
		}
	}
	sb.WriteString("\n")
}
