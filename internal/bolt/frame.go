package bolt

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var nonWordChars = regexp.MustCompile(`[^\w\s]`)

// CleanColumnName normalizes a raw CSV header: special characters removed,
// spaces replaced with underscores, lowercased. "MOC Telephony - Charge/Incl Tax"
// becomes "moc_telephony__chargeincl_tax".
func CleanColumnName(name string) string {
	name = nonWordChars.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(strings.TrimSpace(name))
}

// Frame is a usage file loaded into memory: cleaned column names over rows of
// raw string cells.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// ReadCSV loads a usage file. skipRows preamble lines are discarded before
// the header row; header names are cleaned with CleanColumnName. Short rows
// read as empty cells.
func ReadCSV(r io.Reader, skipRows int) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for i := 0; i < skipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("failed to skip preamble row %d: %w", i+1, err)
		}
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	f := &Frame{
		columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		cleaned := CleanColumnName(name)
		f.columns[i] = cleaned
		f.index[cleaned] = i
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(f.rows)+1, err)
		}
		f.rows = append(f.rows, row)
	}
	return f, nil
}

// Len reports the number of data rows.
func (f *Frame) Len() int { return len(f.rows) }

// Columns returns the cleaned column names in file order.
func (f *Frame) Columns() []string { return f.columns }

// HasColumn reports whether the file carries a column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Value returns the cell at (row, column), or "" when the column does not
// exist or the row is short.
func (f *Frame) Value(row int, column string) string {
	i, ok := f.index[column]
	if !ok || row < 0 || row >= len(f.rows) {
		return ""
	}
	cells := f.rows[row]
	if i >= len(cells) {
		return ""
	}
	return cells[i]
}
