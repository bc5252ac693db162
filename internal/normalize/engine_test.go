package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func phoneRule(format string) Rule {
	return Rule{Field: "phone", Type: TypePhone, Format: format, Enabled: true}
}

func TestApply_Phone(t *testing.T) {
	tests := []struct {
		name   string
		format string
		in     string
		want   string
	}{
		{"us_standard from raw digits", PhoneUSStandard, "5551234567", "(555) 123-4567"},
		{"us_standard from formatted", PhoneUSStandard, "555.123.4567", "(555) 123-4567"},
		{"us_standard strips leading 1", PhoneUSStandard, "1-555-123-4567", "(555) 123-4567"},
		{"us_dashes", PhoneUSDashes, "(555) 123-4567", "555-123-4567"},
		{"us_dots", PhoneUSDots, "5551234567", "555.123.4567"},
		{"digits_only", PhoneDigitsOnly, "(555) 123-4567", "5551234567"},
		{"international", PhoneInternational, "5551234567", "+1 555 123 4567"},
		{"too few digits passes through", PhoneUSStandard, "12345", "12345"},
		{"letters pass through", PhoneUSStandard, "call me", "call me"},
		{"extension digits truncated", PhoneUSStandard, "5551234567 ext 89", "(555) 123-4567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.in, phoneRule(tt.format)))
		})
	}
}

func TestApply_PhoneIdempotent(t *testing.T) {
	for _, format := range []string{PhoneUSStandard, PhoneUSDashes, PhoneUSDots, PhoneDigitsOnly, PhoneInternational} {
		rule := phoneRule(format)
		once := Apply("555-123-4567", rule)
		assert.Equal(t, once, Apply(once, rule), "format %s", format)
	}
}

func TestApply_Email(t *testing.T) {
	lower := Rule{Field: "email", Type: TypeEmail, Format: EmailLowercase, Enabled: true}
	asIs := Rule{Field: "email", Type: TypeEmail, Format: EmailAsIs, Enabled: true}

	assert.Equal(t, "john@acme.com", Apply("John@Acme.COM", lower))
	assert.Equal(t, "John@Acme.COM", Apply("John@Acme.COM", asIs))
}

func TestApply_Name(t *testing.T) {
	proper := Rule{Field: "lastname", Type: TypeName, Format: NameProperCase, Enabled: true,
		Options: map[string]bool{"handlePrefixes": true}}

	tests := []struct{ in, want string }{
		{"john", "John"},
		{"JANE DOE", "Jane Doe"},
		{"mcdonald", "McDonald"},
		{"MCDONALD", "McDonald"},
		{"o'connor", "O'Connor"},
		{"mary jo", "Mary Jo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Apply(tt.in, proper), "input %q", tt.in)
	}

	t.Run("idempotent", func(t *testing.T) {
		once := Apply("mcdonald", proper)
		assert.Equal(t, once, Apply(once, proper))
	})

	t.Run("prefixes off", func(t *testing.T) {
		plain := Rule{Field: "lastname", Type: TypeName, Format: NameProperCase, Enabled: true}
		assert.Equal(t, "Mcdonald", Apply("mcdonald", plain))
	})

	t.Run("upper and lower", func(t *testing.T) {
		upper := Rule{Type: TypeName, Format: NameUppercase, Enabled: true}
		lower := Rule{Type: TypeName, Format: NameLowercase, Enabled: true}
		assert.Equal(t, "JOHN", Apply("john", upper))
		assert.Equal(t, "john", Apply("JOHN", lower))
	})
}

func TestApply_Address(t *testing.T) {
	std := Rule{Type: TypeAddress, Format: AddressStandardized, Enabled: true}
	abbr := Rule{Type: TypeAddress, Format: AddressAbbreviated, Enabled: true}
	full := Rule{Type: TypeAddress, Format: AddressFullWords, Enabled: true}

	assert.Equal(t, "123 Main Street", Apply("123  main   street", std))
	assert.Equal(t, "123 Main St", Apply("123 main street", abbr))
	assert.Equal(t, "123 Main Street", Apply("123 Main St", full))
	assert.Equal(t, "45 N Oak Ave Ste 200", Apply("45 north oak avenue suite 200", abbr))

	t.Run("idempotent", func(t *testing.T) {
		once := Apply("123 main street apt 4", abbr)
		assert.Equal(t, once, Apply(once, abbr))
	})
}

func TestApply_State(t *testing.T) {
	abbr := Rule{Type: TypeState, Format: StateAbbreviation, Enabled: true}
	full := Rule{Type: TypeState, Format: StateFullName, Enabled: true}

	assert.Equal(t, "CA", Apply("California", abbr))
	assert.Equal(t, "CA", Apply("ca", abbr))
	assert.Equal(t, "NY", Apply("new york", abbr))
	assert.Equal(t, "California", Apply("CA", full))
	assert.Equal(t, "New York", Apply("new york", full))

	// Unknown values pass through rather than being mangled.
	assert.Equal(t, "Ontario", Apply("Ontario", abbr))
	assert.Equal(t, "ZZ", Apply("ZZ", full))
}

func TestApply_Zip(t *testing.T) {
	five := Rule{Type: TypeZipcode, Format: ZipFiveDigit, Enabled: true}
	nine := Rule{Type: TypeZipcode, Format: ZipNineDigit, Enabled: true}
	std := Rule{Type: TypeZipcode, Format: ZipUSStandard, Enabled: true}

	assert.Equal(t, "12345", Apply("12345", five))
	assert.Equal(t, "12345", Apply("12345-6789", five))
	assert.Equal(t, "01234", Apply("1234", five), "short zips are left-zero-padded")
	assert.Equal(t, "12345-6789", Apply("123456789", nine))
	assert.Equal(t, "12345", Apply("12345", nine), "no +4 digits available")
	assert.Equal(t, "12345-6789", Apply("12345-6789", std))
	assert.Equal(t, "no digits", Apply("no digits", std))
}

func TestApply_DisabledAndEdgeCases(t *testing.T) {
	disabled := Rule{Type: TypePhone, Format: PhoneUSStandard, Enabled: false}
	assert.Equal(t, "  5551234567 ", Apply("  5551234567 ", disabled))

	enabled := phoneRule(PhoneUSStandard)
	assert.Equal(t, "", Apply("   ", enabled))

	unknownType := Rule{Type: RuleType("color"), Format: "hex", Enabled: true}
	assert.Equal(t, "red", Apply("red", unknownType))

	unknownFormat := Rule{Type: TypeEmail, Format: "rot13", Enabled: true}
	assert.Equal(t, "A@B.com", Apply("A@B.com", unknownFormat))
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "(555) 123-4567", cfg.Apply("phone", "5551234567"))
	assert.Equal(t, "a@b.com", cfg.Apply("email", "A@B.COM"))
	assert.Equal(t, "McDonald", cfg.Apply("lastname", "mcdonald"))

	// Fields without a rule pass through.
	assert.Equal(t, "Acme LLC", cfg.Apply("companyname", "Acme LLC"))

	r, ok := cfg.ForField("state")
	assert.True(t, ok)
	assert.Equal(t, StateAbbreviation, r.Format)

	_, ok = cfg.ForField("taxid")
	assert.False(t, ok)
}
