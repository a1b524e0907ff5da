package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// DefaultMaxCellLength is the default cell truncation length of Markdown tables.
const DefaultMaxCellLength = 80

// MarkdownWriter outputs a table as a Markdown document: a property table,
// an optional pie chart of the summary counts and the rows themselves.
type MarkdownWriter struct {
	baseWriter

	// maxCellLength truncates long cells. 0 disables truncation.
	maxCellLength int

	// maxRows limits the number of rows rendered. 0 renders every row.
	maxRows int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxCellLength sets the cell truncation length.
func WithMaxCellLength(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxCellLength = n
	}
}

// WithMaxRows limits the rows rendered in the document.
func WithMaxRows(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxRows = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:    newBaseWriter(output),
		maxCellLength: DefaultMaxCellLength,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the table in Markdown format.
func (w *MarkdownWriter) Write(table *Table) (int, error) {
	cw := &countingWriter{w: w.output}
	md := markdown.NewMarkdown(cw)

	w.writeHeader(md, table)
	w.writeSummary(md, table)
	w.writeRows(md, table)
	w.writeFooter(md)

	err := md.Build()
	return cw.n, err
}

// writeHeader writes the title and the run properties.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, table *Table) {
	title := table.Title
	if title == "" {
		title = "storecrawl report"
	}
	md.H1(title)
	md.PlainText("")

	rows := [][]string{
		{"Generated", table.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Rows", strconv.Itoa(table.Len())},
	}
	for _, f := range table.Meta {
		rows = append(rows, []string{f.Name, escapeCell(FormatValue(f.Value))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSummary writes the summary counts and their distribution chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, table *Table) {
	if len(table.Stats) == 0 {
		return
	}

	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, len(table.Stats))
	total := 0
	for i, s := range table.Stats {
		rows[i] = []string{s.Label, strconv.Itoa(s.Count)}
		total += s.Count
	}
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if total > 0 {
		w.writePieChart(md, table)
	}
}

// writePieChart writes a mermaid pie chart of the non-zero summary counts.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, table *Table) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(table.Title),
		piechart.WithShowData(true),
	)
	for _, s := range table.Stats {
		if s.Count > 0 {
			chart.LabelAndIntValue(s.Label, uint64(s.Count))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRows writes the table rows.
func (w *MarkdownWriter) writeRows(md *markdown.Markdown, table *Table) {
	md.H2("Rows")
	md.PlainText("")

	if table.Len() == 0 || len(table.Columns) == 0 {
		md.Note("No rows were produced.")
		md.PlainText("")
		return
	}

	rows := table.StringRows()
	omitted := 0
	if w.maxRows > 0 && len(rows) > w.maxRows {
		omitted = len(rows) - w.maxRows
		rows = rows[:w.maxRows]
	}
	for _, row := range rows {
		for i, cell := range row {
			row[i] = escapeCell(truncateString(cell, w.maxCellLength))
		}
	}

	md.Table(markdown.TableSet{
		Header: table.Columns,
		Rows:   rows,
	})
	md.PlainText("")

	if omitted > 0 {
		md.Importantf("%d more row(s) are in the spreadsheet output.", omitted)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [storecrawl](https://github.com/nao1215/storecrawl)*")
}

// escapeCell keeps pipes and newlines from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// truncateString truncates a string to maxLen runes with ellipsis.
// Store titles are mostly Japanese, so it counts runes rather than bytes.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
