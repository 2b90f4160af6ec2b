package core

// codec.go is the spreadsheet row codec: CSV bytes to named import rows, and
// flattened export rows back to CSV bytes.
//
// Decoding finds the header within the first MaxHeaderSearchRows records,
// skips blank rows, and always ends the row sequence with
// reconcile.SentinelRow. The batch runner drops the last row of every batch,
// so files with or without a trailing blank line import the same rows.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/royalty/internal/reconcile"
)

// MaxFileSize is the maximum allowed CSV file size (100MB).
var MaxFileSize int64 = 100 * 1024 * 1024

// MaxHeaderSearchRows is the maximum number of rows to scan for the header.
var MaxHeaderSearchRows = 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeSheet parses a CSV file laid out as l.
func DecodeSheet(data []byte, l Layout) (*Sheet, error) {
	if len(data) == 0 {
		return nil, ValidationError{Field: "file", Message: "empty file"}
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file too large: %d bytes exceeds %dMB limit", len(data), MaxFileSize/(1024*1024)),
		}
	}

	records, err := parseCSV(sanitizeUTF8(stripBOM(data)))
	if err != nil {
		return nil, ValidationError{Field: "file", Message: "invalid csv: " + err.Error()}
	}

	headerIdx := findHeaderInRecords(records, l.HeaderKeys)
	if headerIdx < 0 {
		return nil, ValidationError{
			Field:   "header",
			Message: fmt.Sprintf("header not found (expected a column named one of %s)", strings.Join(l.HeaderKeys, ", ")),
		}
	}

	header := records[headerIdx]
	columns := mapColumns(header, l.Columns)

	sheet := &Sheet{Header: header}
	for i, record := range records[headerIdx+1:] {
		if isEmptyRow(record) {
			continue
		}
		row := make(reconcile.RowData, len(columns))
		for pos, name := range columns {
			if pos < len(record) {
				row[name] = CleanCell(record[pos])
			}
		}
		sheet.Rows = append(sheet.Rows, row)
		sheet.Lines = append(sheet.Lines, headerIdx+i+2) // 1-indexed, after header
	}
	sheet.Rows = append(sheet.Rows, reconcile.SentinelRow)

	return sheet, nil
}

// EncodeSheet writes a header and rows as CSV.
func EncodeSheet(header []string, rows [][]reconcile.Value) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = FormatValue(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mapColumns maps header positions to canonical layout column names.
// Columns the layout does not know are dropped.
func mapColumns(header, columns []string) map[int]string {
	canonical := make(map[string]string, len(columns))
	for _, c := range columns {
		canonical[strings.ToLower(c)] = c
	}

	out := make(map[int]string, len(header))
	for name, pos := range MakeHeaderIndex(header) {
		if c, ok := canonical[name]; ok {
			out[pos] = c
		}
	}
	return out
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// findHeaderInRecords returns the index of the first record that contains any
// of keys as a cell, or -1.
func findHeaderInRecords(records [][]string, keys []string) int {
	maxRows := MaxHeaderSearchRows
	if len(records) < maxRows {
		maxRows = len(records)
	}

	for i := 0; i < maxRows; i++ {
		idx := MakeHeaderIndex(records[i])
		for _, k := range keys {
			if _, ok := idx[strings.ToLower(k)]; ok {
				return i
			}
		}
	}
	return -1
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
