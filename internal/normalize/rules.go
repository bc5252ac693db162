package normalize

// RuleType selects the normalizer family for a rule.
type RuleType string

const (
	TypePhone   RuleType = "phone"
	TypeEmail   RuleType = "email"
	TypeName    RuleType = "name"
	TypeAddress RuleType = "address"
	TypeState   RuleType = "state"
	TypeZipcode RuleType = "zipcode"
)

// Format enums per rule type. Unknown formats pass values through.
const (
	PhoneUSStandard    = "us_standard"   // (555) 123-4567
	PhoneUSDashes      = "us_dashes"     // 555-123-4567
	PhoneUSDots        = "us_dots"       // 555.123.4567
	PhoneDigitsOnly    = "digits_only"   // 5551234567
	PhoneInternational = "international" // +1 555 123 4567

	EmailLowercase = "lowercase"
	EmailAsIs      = "as_is"

	NameProperCase = "proper_case"
	NameUppercase  = "uppercase"
	NameLowercase  = "lowercase"
	NameAsIs       = "as_is"

	AddressStandardized = "standardized" // collapse whitespace, title case
	AddressAbbreviated  = "abbreviated"  // Street -> St, Avenue -> Ave, ...
	AddressFullWords    = "full_words"   // St -> Street, Ave -> Avenue, ...

	StateAbbreviation = "abbreviation" // California -> CA
	StateFullName     = "full_name"    // CA -> California

	ZipFiveDigit  = "five_digit"  // 5 digits, left-zero-padded
	ZipNineDigit  = "nine_digit"  // 12345-6789 when 9 digits present
	ZipUSStandard = "us_standard" // ZIP+4 when available, else 5 digits
)

// Rule is a per-field formatting policy. A disabled rule is a no-op
// passthrough for its field.
type Rule struct {
	Field   string          `json:"field"`
	Type    RuleType        `json:"type"`
	Format  string          `json:"format"`
	Enabled bool            `json:"enabled"`
	Options map[string]bool `json:"options,omitempty"`
}

// Config is the full normalization configuration for one upload
// session: at most one rule per system field.
type Config []Rule

// ForField returns the rule configured for the field, if any.
func (c Config) ForField(field string) (Rule, bool) {
	for _, r := range c {
		if r.Field == field {
			return r, true
		}
	}
	return Rule{}, false
}

// Apply normalizes a value using the field's configured rule. Fields
// without a rule pass through unchanged.
func (c Config) Apply(field, value string) string {
	r, ok := c.ForField(field)
	if !ok {
		return value
	}
	return Apply(value, r)
}

// DefaultConfig is the rule set a fresh session starts with.
func DefaultConfig() Config {
	return Config{
		{Field: "phone", Type: TypePhone, Format: PhoneUSStandard, Enabled: true},
		{Field: "email", Type: TypeEmail, Format: EmailLowercase, Enabled: true},
		{Field: "firstname", Type: TypeName, Format: NameProperCase, Enabled: true, Options: map[string]bool{"handlePrefixes": true}},
		{Field: "lastname", Type: TypeName, Format: NameProperCase, Enabled: true, Options: map[string]bool{"handlePrefixes": true}},
		{Field: "address", Type: TypeAddress, Format: AddressStandardized, Enabled: true},
		{Field: "city", Type: TypeName, Format: NameProperCase, Enabled: true},
		{Field: "state", Type: TypeState, Format: StateAbbreviation, Enabled: true},
		{Field: "zipcode", Type: TypeZipcode, Format: ZipFiveDigit, Enabled: true},
	}
}
