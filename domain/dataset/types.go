package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"biasaudit/domain/core"
)

// ColumnKind is the inferred storage kind of a column
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
)

// Column is one named, typed column of the schema
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Schema is the ordered column list of a dataset
type Schema []Column

// Names returns the column names in schema order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column with exactly this name exists
func (s Schema) Has(name string) bool {
	return s.Index(name) >= 0
}

// Index returns the position of the named column, or -1
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Dataset is an ordered sequence of rows over a fixed set of named columns.
// Cells keep their source text; numeric columns are parsed on demand.
type Dataset struct {
	Columns Schema
	Rows    [][]string
	// SourceRows holds the 0-based position of each row in the uploaded file
	SourceRows []int
}

// missingTokens mirrors the tokens common CSV tooling treats as NA
var missingTokens = map[string]bool{
	"":      true,
	"na":    true,
	"n/a":   true,
	"nan":   true,
	"-nan":  true,
	"null":  true,
	"none":  true,
	"#n/a":  true,
	"<na>":  true,
	"-1.#q": true,
}

// IsMissing reports whether a raw cell counts as a missing value
func IsMissing(cell string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(cell))]
}

// New builds a dataset from a header row and data rows, inferring each column's kind
// over all non-missing cells. Short rows are padded with missing cells.
func New(headers []string, rows [][]string) (*Dataset, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no header row", core.ErrMalformedDataset)
	}

	cols := make(Schema, len(headers))
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", core.ErrMalformedDataset, name)
		}
		seen[name] = true
		cols[i] = Column{Name: name}
	}

	normalized := make([][]string, len(rows))
	source := make([]int, len(rows))
	for r, row := range rows {
		if len(row) > len(headers) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", core.ErrMalformedDataset, r+1, len(row), len(headers))
		}
		cells := make([]string, len(headers))
		for c := range cells {
			if c < len(row) {
				cells[c] = strings.TrimSpace(row[c])
			}
		}
		normalized[r] = cells
		source[r] = r
	}

	for c := range cols {
		cols[c].Kind = inferKind(normalized, c)
	}

	return &Dataset{Columns: cols, Rows: normalized, SourceRows: source}, nil
}

// inferKind treats a column as numeric when every present cell parses as a float
func inferKind(rows [][]string, col int) ColumnKind {
	present := 0
	for _, row := range rows {
		cell := row[col]
		if IsMissing(cell) {
			continue
		}
		present++
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return KindCategorical
		}
	}
	if present == 0 {
		return KindCategorical
	}
	return KindNumeric
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Schema returns a copy of the column list
func (d *Dataset) Schema() Schema {
	out := make(Schema, len(d.Columns))
	copy(out, d.Columns)
	return out
}

// Column returns every cell of the named column in row order
func (d *Dataset) Column(name string) ([]string, bool) {
	idx := d.Columns.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Record returns row i keyed by column name
func (d *Dataset) Record(i int) map[string]string {
	rec := make(map[string]string, len(d.Columns))
	for c, col := range d.Columns {
		rec[col.Name] = d.Rows[i][c]
	}
	return rec
}

// DropIncomplete removes every row holding a missing value. It fails with
// core.ErrEmptyDataset when no row survives.
func (d *Dataset) DropIncomplete() (*Dataset, error) {
	out := &Dataset{Columns: d.Schema()}
	for i, row := range d.Rows {
		complete := true
		for _, cell := range row {
			if IsMissing(cell) {
				complete = false
				break
			}
		}
		if complete {
			out.Rows = append(out.Rows, row)
			out.SourceRows = append(out.SourceRows, d.SourceRows[i])
		}
	}
	if len(out.Rows) == 0 {
		return nil, core.ErrEmptyDataset
	}
	return out, nil
}

// Append returns a new dataset with extra rows appended. Appended rows get source
// positions after the last existing one.
func (d *Dataset) Append(rows [][]string) *Dataset {
	out := &Dataset{
		Columns:    d.Schema(),
		Rows:       make([][]string, 0, len(d.Rows)+len(rows)),
		SourceRows: make([]int, 0, len(d.Rows)+len(rows)),
	}
	out.Rows = append(out.Rows, d.Rows...)
	out.SourceRows = append(out.SourceRows, d.SourceRows...)
	next := 0
	for _, s := range d.SourceRows {
		if s >= next {
			next = s + 1
		}
	}
	for i, row := range rows {
		out.Rows = append(out.Rows, row)
		out.SourceRows = append(out.SourceRows, next+i)
	}
	return out
}

// FormatNumber renders a parsed numeric cell the way it is reported back to callers
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
