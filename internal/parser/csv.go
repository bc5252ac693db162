package parser

import (
	"strings"
)

// ParseCSV parses comma-separated content. The first non-empty line is
// the header row. Splitting is a plain comma split with surrounding
// quote characters stripped per cell; embedded commas inside quotes are
// not supported by the upload format.
func ParseCSV(data []byte) (*ParsedFile, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := make([]string, 0)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	headers, ok := trimHeaders(splitCSVLine(lines[0]))
	if !ok {
		return nil, ErrNoHeaders
	}
	if len(lines) == 1 {
		return nil, ErrEmptyFile
	}

	cells := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells = append(cells, splitCSVLine(line))
	}

	return &ParsedFile{
		Headers: headers,
		Rows:    rowsFromCells(headers, cells),
	}, nil
}

func splitCSVLine(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"'`)
		parts[i] = p
	}
	return parts
}
