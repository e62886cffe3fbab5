package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Format identifies an accepted upload file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
)

// Formats lists the accepted formats in display order.
var Formats = []Format{FormatCSV, FormatXLS, FormatXLSX}

// ErrUnsupportedFormat is returned for file names without an accepted extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseError wraps any failure to turn an uploaded file into a Dataset.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns the raw bytes of an uploaded file into a Dataset.
type Parser interface {
	Parse(data []byte) (*Dataset, error)
}

// FormatOf returns the format implied by the file name's extension,
// compared case-insensitively.
func FormatOf(filename string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, f := range Formats {
		if ext == string(f) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// ParserFor returns the parser variant for a format.
func ParserFor(f Format) Parser {
	switch f {
	case FormatCSV:
		return CSVParser{}
	case FormatXLS:
		return SpreadsheetParser{Legacy: true}
	default:
		return SpreadsheetParser{}
	}
}

// CSVParser reads comma separated UTF-8 text with a header row.
type CSVParser struct{}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (CSVParser) Parse(data []byte) (*Dataset, error) {
	ds, err := parseCSV(data)
	if err != nil {
		return nil, &ParseError{Format: FormatCSV, Err: err}
	}
	return ds, nil
}

func parseCSV(data []byte) (*Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.New("file is not valid UTF-8 text")
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blankRow(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return FromRecords(header, rows)
}

// SpreadsheetParser reads the first sheet of an Excel workbook. Legacy
// selects the binary .xls reader instead of the .xlsx one.
type SpreadsheetParser struct {
	Legacy bool
}

func (p SpreadsheetParser) Parse(data []byte) (*Dataset, error) {
	format := FormatXLSX
	read := readXLSX
	if p.Legacy {
		format = FormatXLS
		read = readXLS
	}

	grid, err := read(data)
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	ds, err := fromGrid(grid)
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	return ds, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("read workbook properties: %w", err)
	}
	sheet := xlsxSheet{
		f:        f,
		name:     sheets[0],
		date1904: props.Date1904 != nil && *props.Date1904,
		layouts:  make(map[int]string),
	}
	for i, row := range rows {
		for j, raw := range row {
			if raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			if row[j], err = sheet.cellText(cell, raw); err != nil {
				return nil, fmt.Errorf("read cell %s: %w", cell, err)
			}
		}
	}
	return rows, nil
}

// Layouts used to render date and time formatted cells. dateTimeLayout is
// one of dateLayouts.
const (
	dateTimeLayout = "2006-01-02 15:04:05"
	timeLayout     = "15:04:05"
)

// xlsxSheet renders raw cell values of one worksheet. Number formats are not
// applied, so currency or percent cells keep their numeric value; only the
// date and time formats are honoured.
type xlsxSheet struct {
	f        *excelize.File
	name     string
	date1904 bool
	layouts  map[int]string
}

func (s xlsxSheet) cellText(cell, raw string) (string, error) {
	typ, err := s.f.GetCellType(s.name, cell)
	if err != nil {
		return "", err
	}
	switch typ {
	case excelize.CellTypeBool:
		return strconv.FormatBool(raw == "1"), nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	default:
		return raw, nil
	}

	styleID, err := s.f.GetCellStyle(s.name, cell)
	if err != nil {
		return "", err
	}
	layout, err := s.layout(styleID)
	if err != nil || layout == "" {
		return raw, err
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	t, err := excelize.ExcelDateToTime(serial, s.date1904)
	if err != nil {
		return raw, nil
	}
	return t.Format(layout), nil
}

// layout returns the layout for cells of the given style, or "" when the
// style does not format its value as a date or time.
func (s xlsxSheet) layout(styleID int) (string, error) {
	if styleID == 0 {
		return "", nil
	}
	if layout, ok := s.layouts[styleID]; ok {
		return layout, nil
	}
	style, err := s.f.GetStyle(styleID)
	if err != nil {
		return "", err
	}
	layout := numFmtLayout(style)
	s.layouts[styleID] = layout
	return layout, nil
}

func numFmtLayout(style *excelize.Style) string {
	if style.CustomNumFmt != nil {
		return fmtCodeLayout(*style.CustomNumFmt)
	}
	switch id := style.NumFmt; {
	case id >= 14 && id <= 17, id == 22:
		return dateTimeLayout
	case id >= 18 && id <= 21, id >= 45 && id <= 47:
		return timeLayout
	case id >= 27 && id <= 36, id >= 50 && id <= 62, id >= 67 && id <= 81:
		return dateTimeLayout
	}
	return ""
}

// fmtCodeLayout classifies a custom number format code by the date and time
// tokens left once literals, bracketed sections and padding are removed.
func fmtCodeLayout(code string) string {
	var b strings.Builder
	quoted, bracketed := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quoted:
			quoted = c != '"'
		case bracketed:
			bracketed = c != ']'
		case c == '"':
			quoted = true
		case c == '[':
			bracketed = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			b.WriteByte(c)
		}
	}

	tokens := strings.ToLower(b.String())
	hasDate := strings.ContainsAny(tokens, "yd")
	hasTime := strings.ContainsAny(tokens, "hs")
	switch {
	case hasDate:
		return dateTimeLayout
	case hasTime:
		return timeLayout
	case strings.Contains(tokens, "m"):
		return dateTimeLayout
	}
	return ""
}

func readXLS(data []byte) (grid [][]string, err error) {
	// The xls reader panics on some malformed workbooks.
	defer func() {
		if r := recover(); r != nil {
			grid, err = nil, fmt.Errorf("malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// fromGrid treats the first non-blank row as the header.
func fromGrid(grid [][]string) (*Dataset, error) {
	var rows [][]string
	for _, row := range grid {
		if blankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.New("no columns to parse from file")
	}

	header := rows[0]
	body := rows[1:]
	width := len(header)
	for _, row := range body {
		width = max(width, len(row))
	}
	header = append(header, make([]string, width-len(header))...)
	return FromRecords(header, body)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
