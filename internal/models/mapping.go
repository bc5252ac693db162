package models

// MappingRule assigns a source file column to a canonical system field.
type MappingRule struct {
	SourceField string  `json:"sourceField"`
	TargetField string  `json:"targetField"` // empty = unmapped
	Confidence  float64 `json:"confidence"`  // [0,1]
	IsRequired  bool    `json:"isRequired"`
}

// SystemField is one entry in the fixed canonical lead schema.
type SystemField struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// SystemFields is the canonical schema all uploaded data is normalized into.
// Order matters: it is the display order and the preview column order.
var SystemFields = []SystemField{
	{Value: "email", Label: "Email", Required: true, Description: "Contact email address"},
	{Value: "firstname", Label: "First Name", Required: true},
	{Value: "lastname", Label: "Last Name", Required: true},
	{Value: "phone", Label: "Phone", Required: false},
	{Value: "companyname", Label: "Company Name", Required: false},
	{Value: "taxid", Label: "Tax ID", Required: false},
	{Value: "address", Label: "Address", Required: false},
	{Value: "city", Label: "City", Required: false},
	{Value: "state", Label: "State", Required: false},
	{Value: "zipcode", Label: "Zip Code", Required: false},
	{Value: "country", Label: "Country", Required: false},
	{Value: "loanamount", Label: "Loan Amount", Required: false},
	{Value: "revenue", Label: "Revenue", Required: false},
	{Value: "dnc", Label: "Do Not Call", Required: false, Description: "DNC flag column"},
}

// SystemFieldByValue looks up a system field by its canonical name.
func SystemFieldByValue(value string) (SystemField, bool) {
	for _, f := range SystemFields {
		if f.Value == value {
			return f, true
		}
	}
	return SystemField{}, false
}

// IsRequiredField reports whether the named system field is required.
func IsRequiredField(value string) bool {
	f, ok := SystemFieldByValue(value)
	return ok && f.Required
}

// DNCValues are cell values that mark a row as do-not-call.
var DNCValues = map[string]bool{
	"yes":  true,
	"y":    true,
	"true": true,
	"1":    true,
	"dnc":  true,
	"x":    true,
}

// IsDNCValue reports whether a raw cell value flags the row as DNC.
// Matching is case-insensitive; values are expected pre-trimmed.
func IsDNCValue(v string) bool {
	return DNCValues[lowerASCII(v)]
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
