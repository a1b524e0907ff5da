package report

import (
	"strconv"
	"time"
)

// Field is one named value of a Record.
// Value is usually a string, int or float64. Spreadsheet writers keep numbers
// numeric; text writers format them with FormatValue.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered list of fields. The field order of the first record
// of a table decides the column order of the whole table.
type Record []Field

// Get returns the value of the named field, or nil if the record has none.
func (r Record) Get(name string) any {
	for _, f := range r {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Stat is a labelled count shown in run summaries.
type Stat struct {
	Label string
	Count int
}

// Table is a rectangular result ready to be written.
type Table struct {
	// Title names the table in text and Markdown output.
	Title string

	// Sheet is the worksheet name used by the spreadsheet writer.
	// Empty keeps the default "Sheet1".
	Sheet string

	// Meta holds run properties such as the input file or the query.
	Meta []Field

	// Stats are summary counts. Markdown output renders them as a pie chart.
	Stats []Stat

	// Columns are the header names.
	Columns []string

	// Rows hold one value per column.
	Rows [][]any

	// GeneratedAt is when the table was built.
	GeneratedAt time.Time
}

// NewTable builds a table from records. The columns are taken from the first
// record's fields; later records are matched by field name and missing fields
// become empty cells.
func NewTable(records []Record) *Table {
	var columns []string
	if len(records) > 0 {
		columns = make([]string, len(records[0]))
		for i, f := range records[0] {
			columns[i] = f.Name
		}
	}
	return NewTableWithColumns(columns, records)
}

// NewTableWithColumns builds a table with a fixed header. It is used when
// the header must be written even if there are no records.
func NewTableWithColumns(columns []string, records []Record) *Table {
	t := &Table{
		Columns:     columns,
		Rows:        make([][]any, 0, len(records)),
		GeneratedAt: time.Now(),
	}

	for _, rec := range records {
		row := make([]any, len(columns))
		for i, col := range columns {
			v := rec.Get(col)
			if v == nil {
				v = ""
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WithTitle sets the title and returns the table.
func (t *Table) WithTitle(title string) *Table {
	t.Title = title
	return t
}

// WithSheet sets the worksheet name and returns the table.
func (t *Table) WithSheet(sheet string) *Table {
	t.Sheet = sheet
	return t
}

// AddMeta appends a run property.
func (t *Table) AddMeta(name string, value any) {
	t.Meta = append(t.Meta, Field{Name: name, Value: value})
}

// AddStat appends a summary count.
func (t *Table) AddStat(label string, count int) {
	t.Stats = append(t.Stats, Stat{Label: label, Count: count})
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// StringRows returns the rows formatted with FormatValue.
func (t *Table) StringRows() [][]string {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		rows[i] = cells
	}
	return rows
}

// FormatValue renders a cell value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case interface{ String() string }:
		return x.String()
	default:
		return ""
	}
}
