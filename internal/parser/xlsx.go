package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX parses the first sheet of an Excel workbook. The first row
// is the header row; all following rows become data rows.
func ParseXLSX(data []byte) (*ParsedFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	headers, ok := trimHeaders(rows[0])
	if !ok {
		return nil, ErrNoHeaders
	}
	if len(rows) == 1 {
		return nil, ErrEmptyFile
	}

	return &ParsedFile{
		Headers: headers,
		Rows:    rowsFromCells(headers, rows[1:]),
	}, nil
}
