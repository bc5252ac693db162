package normalize

import "strings"

// Apply runs one rule on one value. It never fails: malformed input
// and unknown formats pass through unchanged, since bad source data is
// exactly what this pipeline exists to tolerate.
func Apply(value string, rule Rule) string {
	if !rule.Enabled {
		return value
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}

	switch rule.Type {
	case TypePhone:
		return normalizePhone(v, rule.Format)
	case TypeEmail:
		return normalizeEmail(v, rule.Format)
	case TypeName:
		return normalizeName(v, rule.Format, rule.Options["handlePrefixes"])
	case TypeAddress:
		return normalizeAddress(v, rule.Format)
	case TypeState:
		return normalizeState(v, rule.Format)
	case TypeZipcode:
		return normalizeZip(v, rule.Format)
	default:
		return v
	}
}

func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizePhone(v, format string) string {
	digits := digitsOf(v)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) < 10 {
		return v
	}
	digits = digits[:10]

	a, b, c := digits[:3], digits[3:6], digits[6:]
	switch format {
	case PhoneUSStandard:
		return "(" + a + ") " + b + "-" + c
	case PhoneUSDashes:
		return a + "-" + b + "-" + c
	case PhoneUSDots:
		return a + "." + b + "." + c
	case PhoneDigitsOnly:
		return digits
	case PhoneInternational:
		return "+1 " + a + " " + b + " " + c
	default:
		return v
	}
}

func normalizeEmail(v, format string) string {
	if format == EmailLowercase {
		return strings.ToLower(v)
	}
	return v
}

func normalizeName(v, format string, handlePrefixes bool) string {
	switch format {
	case NameProperCase:
		return properCase(v, handlePrefixes)
	case NameUppercase:
		return strings.ToUpper(v)
	case NameLowercase:
		return strings.ToLower(v)
	default:
		return v
	}
}

// properCase capitalizes each whitespace-delimited token, optionally
// re-capitalizing after Mc and O' prefixes (McDonald, O'Connor).
func properCase(v string, handlePrefixes bool) string {
	tokens := strings.Fields(v)
	for i, tok := range tokens {
		tok = capitalizeToken(tok)
		if handlePrefixes {
			tok = fixPrefix(tok, "Mc")
			tok = fixPrefix(tok, "O'")
		}
		tokens[i] = tok
	}
	return strings.Join(tokens, " ")
}

func capitalizeToken(tok string) string {
	lower := strings.ToLower(tok)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func fixPrefix(tok, prefix string) string {
	if len(tok) <= len(prefix) || !strings.HasPrefix(tok, prefix) {
		return tok
	}
	rest := tok[len(prefix):]
	return prefix + strings.ToUpper(rest[:1]) + rest[1:]
}

// addressAbbreviations maps full street words to their USPS-style
// short forms, applied token-wise after standardizing.
var addressAbbreviations = map[string]string{
	"street":    "St",
	"avenue":    "Ave",
	"boulevard": "Blvd",
	"drive":     "Dr",
	"lane":      "Ln",
	"road":      "Rd",
	"court":     "Ct",
	"circle":    "Cir",
	"place":     "Pl",
	"terrace":   "Ter",
	"highway":   "Hwy",
	"parkway":   "Pkwy",
	"suite":     "Ste",
	"apartment": "Apt",
	"north":     "N",
	"south":     "S",
	"east":      "E",
	"west":      "W",
}

var addressExpansions = buildAddressExpansions()

func buildAddressExpansions() map[string]string {
	out := make(map[string]string, len(addressAbbreviations))
	for full, abbr := range addressAbbreviations {
		out[strings.ToLower(abbr)] = strings.ToUpper(full[:1]) + full[1:]
	}
	return out
}

func normalizeAddress(v, format string) string {
	tokens := strings.Fields(v)
	for i, tok := range tokens {
		tok = capitalizeAddressToken(tok)
		key := strings.ToLower(strings.TrimSuffix(tok, "."))
		switch format {
		case AddressAbbreviated:
			if abbr, ok := addressAbbreviations[key]; ok {
				tok = abbr
			}
		case AddressFullWords:
			if full, ok := addressExpansions[key]; ok {
				tok = full
			}
		}
		tokens[i] = tok
	}
	return strings.Join(tokens, " ")
}

// capitalizeAddressToken title-cases alphabetic tokens and leaves
// house numbers and unit designators like "12B" alone.
func capitalizeAddressToken(tok string) string {
	if tok == "" || tok[0] >= '0' && tok[0] <= '9' {
		return tok
	}
	return capitalizeToken(tok)
}

func normalizeState(v, format string) string {
	switch format {
	case StateAbbreviation:
		if abbr, ok := stateAbbreviations[strings.ToLower(v)]; ok {
			return abbr
		}
		if len(v) == 2 {
			upper := strings.ToUpper(v)
			if _, ok := stateNames[upper]; ok {
				return upper
			}
		}
		return v
	case StateFullName:
		if name, ok := stateNames[strings.ToUpper(v)]; ok {
			return name
		}
		if _, ok := stateAbbreviations[strings.ToLower(v)]; ok {
			return titleCaseWords(strings.ToLower(v))
		}
		return v
	default:
		return v
	}
}

func normalizeZip(v, format string) string {
	digits := digitsOf(v)
	if digits == "" {
		return v
	}

	switch format {
	case ZipFiveDigit:
		return padFive(digits)
	case ZipNineDigit:
		if len(digits) >= 9 {
			return digits[:5] + "-" + digits[5:9]
		}
		return padFive(digits)
	case ZipUSStandard:
		if len(digits) >= 9 {
			return digits[:5] + "-" + digits[5:9]
		}
		return padFive(digits)
	default:
		return v
	}
}

func padFive(digits string) string {
	if len(digits) > 5 {
		return digits[:5]
	}
	for len(digits) < 5 {
		digits = "0" + digits
	}
	return digits
}
