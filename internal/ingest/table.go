// Package ingest reads flat tabular sources and maps their columns onto the
// canonical provider schema.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is an in-memory flat table: a header and string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of a column or -1 when absent.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

// Value returns the cell at row/column, or "" when the column is absent.
func (t *Table) Value(row int, column string) string {
	idx := t.Index(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][idx]
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ReadCSV opens and parses a CSV file.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	table, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return table, nil
}

// ParseCSV parses CSV content whose first row is the header. Header names are
// trimmed; data cells are kept raw. Ragged rows are padded or truncated to the
// header width so every row has one cell per column.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = strings.TrimSpace(h)
	}

	table := &Table{Columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(table.Rows)+1, err)
		}
		row := make([]string, len(columns))
		for i := range row {
			if i < len(record) {
				row[i] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
