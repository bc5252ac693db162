// Package cleaning holds the pre-normalization data cleaning step:
// whitespace trimming, common email typo correction, and the settings
// that drive dedupe and missing-field handling during commit.
package cleaning

import "strings"

// Settings control the cleaning step of a commit.
type Settings struct {
	TrimWhitespace       bool   `json:"trimWhitespace"`
	RemoveDuplicates     bool   `json:"removeDuplicates"`
	CorrectCommonTypos   bool   `json:"correctCommonTypos"`
	FlagMissingFields    bool   `json:"flagMissingFields"`
	EmailTypoCorrections string `json:"emailTypoCorrections"`
}

// DefaultSettings are the corrections a fresh session starts with.
func DefaultSettings() Settings {
	return Settings{
		TrimWhitespace:     true,
		RemoveDuplicates:   true,
		CorrectCommonTypos: true,
		FlagMissingFields:  true,
		EmailTypoCorrections: "gmial.com=gmail.com\n" +
			"gmal.com=gmail.com\n" +
			"yaho.com=yahoo.com\n" +
			"yahooo.com=yahoo.com\n" +
			"hotmial.com=hotmail.com\n" +
			"hotmil.com=hotmail.com",
	}
}

// TypoTable parses the typo=correction lines into a lookup table.
// Malformed lines are skipped.
func (s Settings) TypoTable() map[string]string {
	table := make(map[string]string)
	for _, line := range strings.Split(s.EmailTypoCorrections, "\n") {
		typo, fix, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || typo == "" || fix == "" {
			continue
		}
		table[strings.ToLower(typo)] = strings.ToLower(fix)
	}
	return table
}

// CleanValue applies the enabled cleaning operations to one cell.
// field is the target system field name; only email values get typo
// correction.
func (s Settings) CleanValue(field, value string) string {
	if s.TrimWhitespace {
		value = strings.TrimSpace(value)
	}
	if field == "email" && s.CorrectCommonTypos {
		value = CorrectEmailTypos(value, s.TypoTable())
	}
	return value
}

// CleanRow cleans every mapped field of a row in place.
func (s Settings) CleanRow(row map[string]string) {
	table := s.TypoTable()
	for field, value := range row {
		if s.TrimWhitespace {
			value = strings.TrimSpace(value)
		}
		if field == "email" && s.CorrectCommonTypos {
			value = CorrectEmailTypos(value, table)
		}
		row[field] = value
	}
}

// CorrectEmailTypos swaps a misspelled domain for its correction.
// Anything that does not look like local@domain passes through.
func CorrectEmailTypos(email string, table map[string]string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return email
	}
	if fix, found := table[strings.ToLower(domain)]; found {
		return local + "@" + fix
	}
	return email
}
