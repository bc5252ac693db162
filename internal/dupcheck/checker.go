package dupcheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/leadflow/backend/internal/parser"
)

// Check field identifiers.
const (
	FieldEmail = "email"
	FieldPhone = "phone"
	FieldName  = "firstname+lastname"
)

// Result is the advisory duplicate count for one checked field.
// TotalChecked is the number of rows with a non-empty value;
// FileDuplicates counts rows whose normalized value occurs more than
// once within the batch; ExistingDuplicates counts rows whose value is
// already in the persisted lead store.
type Result struct {
	Field              string `json:"field"`
	FileDuplicates     int    `json:"fileDuplicates"`
	ExistingDuplicates int    `json:"existingDuplicates"`
	TotalChecked       int    `json:"totalChecked"`
}

// Lookup answers which of the given normalized keys already exist in
// the persisted lead store for a check field.
type Lookup interface {
	ExistingKeys(ctx context.Context, field string, keys []string) (map[string]bool, error)
}

// Columns names the source columns to read each check field from.
// An empty column name means the field is absent from the file.
type Columns struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

// Checker computes per-field duplicate counts for a parsed batch.
// It never drops rows; the commit pipeline makes the drop decision.
type Checker struct {
	lookup Lookup
}

// New returns a Checker. lookup may be nil, in which case only
// file-internal duplicates are counted.
func New(lookup Lookup) *Checker {
	return &Checker{lookup: lookup}
}

// Check counts duplicates for email, phone and the first+last name
// composite. Fields with zero non-empty values report zero counts.
func (c *Checker) Check(ctx context.Context, rows []parser.RawRow, cols Columns) ([]Result, error) {
	extractors := []struct {
		field   string
		extract func(parser.RawRow) string
	}{
		{FieldEmail, func(r parser.RawRow) string { return NormalizeEmail(r[cols.Email]) }},
		{FieldPhone, func(r parser.RawRow) string { return NormalizePhone(r[cols.Phone]) }},
		{FieldName, func(r parser.RawRow) string {
			return NormalizeName(r[cols.FirstName], r[cols.LastName])
		}},
	}

	results := make([]Result, 0, len(extractors))
	for _, e := range extractors {
		res, err := c.checkField(ctx, rows, e.field, e.extract)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (c *Checker) checkField(ctx context.Context, rows []parser.RawRow, field string, extract func(parser.RawRow) string) (Result, error) {
	res := Result{Field: field}

	counts := make(map[string]int)
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		key := extract(row)
		if key == "" {
			continue
		}
		res.TotalChecked++
		if counts[key] == 0 {
			keys = append(keys, key)
		}
		counts[key]++
	}

	for _, n := range counts {
		if n > 1 {
			res.FileDuplicates += n
		}
	}

	if c.lookup != nil && len(keys) > 0 {
		existing, err := c.lookup.ExistingKeys(ctx, field, keys)
		if err != nil {
			return Result{}, fmt.Errorf("lookup existing %s keys: %w", field, err)
		}
		for key, n := range counts {
			if existing[key] {
				res.ExistingDuplicates += n
			}
		}
	}

	return res, nil
}

// NormalizeEmail prepares an email for comparison: trim and lowercase.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips everything but digits and drops a leading
// country code 1 from 11-digit numbers.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// NormalizeName builds the composite first+last comparison key. Either
// part missing makes the key empty: half a name is no basis for a
// duplicate verdict.
func NormalizeName(first, last string) string {
	first = strings.ToLower(strings.TrimSpace(first))
	last = strings.ToLower(strings.TrimSpace(last))
	if first == "" || last == "" {
		return ""
	}
	return first + " " + last
}
