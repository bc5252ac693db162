package mapper

import (
	"regexp"
	"strings"
)

// Scorer rates how well a source header with its sampled values fits a
// target system field. Implementations return a confidence in [0,1].
type Scorer interface {
	Score(header string, samples []string, targetField string) float64
}

// fieldPatterns are known header spellings per system field, cleaned
// with normalizeKey before comparison.
var fieldPatterns = map[string][]string{
	"email":       {"email", "emailaddress", "mail"},
	"phone":       {"phone", "phone1", "phone2", "mobile", "cell", "telephone", "phonenumber"},
	"firstname":   {"firstname", "fname", "givenname", "first"},
	"lastname":    {"lastname", "lname", "surname", "last"},
	"companyname": {"companyname", "company", "business", "organization"},
	"taxid":       {"taxid", "ein", "taxnumber"},
	"address":     {"address", "street", "streetaddress", "address1"},
	"city":        {"city", "town"},
	"state":       {"state", "province", "region"},
	"zipcode":     {"zipcode", "zip", "postalcode", "postal"},
	"country":     {"country"},
	"loanamount":  {"loanamount", "loan", "amountrequested", "fundingamount"},
	"revenue":     {"revenue", "annualrevenue", "yearlyrevenue", "monthlyrevenue", "sales"},
	"dnc":         {"dnc", "donotcall"},
}

// NameScorer scores by header-name similarity against the known
// spellings of the target field.
type NameScorer struct{}

func (NameScorer) Score(header string, _ []string, targetField string) float64 {
	patterns, ok := fieldPatterns[targetField]
	if !ok {
		return 0
	}
	return similarity(normalizeKey(header), patterns)
}

var (
	emailValueRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneValueRegex = regexp.MustCompile(`^\+?[\d\s\-().]+$`)
	moneyValueRegex = regexp.MustCompile(`^\$?\s*[\d,]+(\.\d+)?$`)
)

// ValueScorer scores by how the sampled cell values look: email-shaped
// strings for email, mostly-digit strings for phone, currency-like
// numbers for the money fields. Fields without a value pattern score 0.
type ValueScorer struct{}

func (ValueScorer) Score(_ string, samples []string, targetField string) float64 {
	var match func(string) bool
	switch targetField {
	case "email":
		match = emailValueRegex.MatchString
	case "phone":
		match = isPhoneValue
	case "loanamount", "revenue":
		match = moneyValueRegex.MatchString
	default:
		return 0
	}

	checked, matched := 0, 0
	for _, v := range samples {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		checked++
		if match(v) {
			matched++
		}
	}
	if checked == 0 {
		return 0
	}
	return float64(matched) / float64(checked)
}

func isPhoneValue(v string) bool {
	if !phoneValueRegex.MatchString(v) {
		return false
	}
	digits := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}
