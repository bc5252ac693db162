package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ParseJSON parses a JSON array of flat objects. Header order follows
// the key order of the first object in the document, which Go's map
// decoding would otherwise discard, so keys are read off the token
// stream directly.
func ParseJSON(data []byte) (*ParsedFile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if len(objects) == 0 {
		return nil, ErrEmptyFile
	}

	headers, err := firstObjectKeys(data)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, ErrNoHeaders
	}

	rows := make([]RawRow, 0, len(objects))
	for _, obj := range objects {
		row := make(RawRow, len(headers))
		for _, h := range headers {
			row[h] = stringifyValue(obj[h])
		}
		rows = append(rows, row)
	}

	return &ParsedFile{Headers: headers, Rows: rows}, nil
}

// firstObjectKeys walks the token stream to the first object of the
// top-level array and collects its keys in document order.
func firstObjectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Opening '[' of the array.
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("decode json: expected array, got %v", tok)
	}

	// Opening '{' of the first object.
	tok, err = dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode json: expected object, got %v", tok)
	}

	keys := make([]string, 0, 8)
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode json: expected object key, got %v", tok)
		}
		keys = append(keys, key)

		// Skip the value, including nested containers.
		if err := skipValue(dec); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	return keys, nil
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '[' && d != '{') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}

// stringifyValue renders a decoded JSON value the way a CSV cell would
// carry it. Integral floats drop the trailing ".0".
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
