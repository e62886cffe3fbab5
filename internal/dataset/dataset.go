// Package dataset parses uploaded spreadsheet files into in-memory tables with
// a native type per column.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NativeType is the storage type detected for a column's values.
type NativeType string

const (
	Int64    NativeType = "int64"
	Float64  NativeType = "float64"
	Bool     NativeType = "bool"
	Datetime NativeType = "datetime64[ns]"
	Object   NativeType = "object"
)

// ErrNoRows is returned when a dataset has a header but no data rows.
var ErrNoRows = errors.New("file contains no data rows")

// Dataset is a table parsed from an uploaded file. It is read-only once built.
type Dataset struct {
	Columns []Column
	rows    int
}

// Column is a named, homogeneously typed sequence of values. A nil value is
// a missing cell.
type Column struct {
	Name   string
	Type   NativeType
	Values []any
}

// Field is a single cell of a Record.
type Field struct {
	Name  string
	Type  NativeType
	Value any
}

// Record is one row of a dataset in column order.
type Record []Field

var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
	"<NA>": {},
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06 15:04",
}

// FromRecords builds a dataset from a header row and string cells. Rows
// shorter than the header are padded with missing values.
func FromRecords(header []string, rows [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, errors.New("no columns to parse from file")
	}

	names := uniqueNames(header)
	cells := make([][]string, len(names))
	for i, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+2, len(names), len(row))
		}
		for j := range names {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			cells[j] = append(cells[j], cell)
		}
	}

	ds := &Dataset{rows: len(rows)}
	for j, name := range names {
		typ, values := detectColumn(cells[j])
		ds.Columns = append(ds.Columns, Column{Name: name, Type: typ, Values: values})
	}
	return ds, nil
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return d.rows
}

// FirstRecord returns the first data row.
func (d *Dataset) FirstRecord() (Record, error) {
	if d.rows == 0 {
		return nil, ErrNoRows
	}
	rec := make(Record, len(d.Columns))
	for i, col := range d.Columns {
		rec[i] = Field{Name: col.Name, Type: col.Type, Value: col.Values[0]}
	}
	return rec, nil
}

func uniqueNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			base := name
			for used[name] {
				suffix[base]++
				name = fmt.Sprintf("%s.%d", base, suffix[base])
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func isMissing(cell string) bool {
	_, ok := missingMarkers[cell]
	return ok
}

// detectColumn picks the narrowest native type that holds every present
// value and converts the cells to it.
func detectColumn(raw []string) (NativeType, []any) {
	cells := make([]string, len(raw))
	present, missing := 0, 0
	for i, c := range raw {
		cells[i] = strings.TrimSpace(c)
		if isMissing(cells[i]) {
			missing++
		} else {
			present++
		}
	}

	if present == 0 {
		return Float64, make([]any, len(cells))
	}

	if values, ok := convert(cells, parseInt); ok {
		if missing == 0 {
			return Int64, values
		}
		floats, _ := convert(cells, parseFloat)
		return Float64, floats
	}
	if values, ok := convert(cells, parseFloat); ok {
		return Float64, values
	}
	if values, ok := convert(cells, parseBool); ok && missing == 0 {
		return Bool, values
	}
	if values, ok := convert(cells, parseDate); ok {
		return Datetime, values
	}

	values := make([]any, len(cells))
	for i, c := range cells {
		if !isMissing(c) {
			values[i] = c
		}
	}
	return Object, values
}

func convert(cells []string, parse func(string) (any, bool)) ([]any, bool) {
	values := make([]any, len(cells))
	for i, c := range cells {
		if isMissing(c) {
			continue
		}
		v, ok := parse(c)
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func parseInt(s string) (any, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

func parseFloat(s string) (any, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

func parseDate(s string) (any, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return nil, false
}
