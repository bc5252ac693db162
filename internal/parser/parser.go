package parser

import (
	"errors"
	"path/filepath"
	"strings"
)

// Sentinel errors returned by Parse. Callers match with errors.Is.
var (
	ErrEmptyFile         = errors.New("file contains no data")
	ErrNoHeaders         = errors.New("file contains no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// RawRow maps a source header to the cell value for one data row.
// Missing trailing cells are present with an empty value.
type RawRow map[string]string

// ParsedFile is the format-independent result of parsing an uploaded file.
// Headers preserve source column order; Rows preserve source row order.
type ParsedFile struct {
	Headers []string `json:"headers"`
	Rows    []RawRow `json:"rows"`
}

// Parse dispatches on the filename extension and returns the tabular
// content of the file. Supported formats: .csv, .xlsx, .xls, .json.
func Parse(data []byte, filename string) (*ParsedFile, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(data)
	case ".xlsx", ".xls":
		return ParseXLSX(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// rowsFromCells converts a header row plus cell matrix into RawRows.
// Rows shorter than the header are padded with empty strings; extra
// cells beyond the header are dropped.
func rowsFromCells(headers []string, cells [][]string) []RawRow {
	rows := make([]RawRow, 0, len(cells))
	for _, line := range cells {
		row := make(RawRow, len(headers))
		for i, h := range headers {
			if i < len(line) {
				row[h] = strings.TrimSpace(line[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func trimHeaders(raw []string) ([]string, bool) {
	headers := make([]string, 0, len(raw))
	any := false
	for _, h := range raw {
		h = strings.TrimSpace(h)
		headers = append(headers, h)
		if h != "" {
			any = true
		}
	}
	return headers, any
}
