package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// countryNames maps ISO 3166-1 alpha-2 codes to display names for the
// countries the back office operates in.
var countryNames = map[string]string{
	"CO": "Colombia",
	"US": "United States",
	"MX": "Mexico",
	"BR": "Brazil",
	"AR": "Argentina",
	"CL": "Chile",
	"PE": "Peru",
	"EC": "Ecuador",
	"VE": "Venezuela",
	"PA": "Panama",
	"CR": "Costa Rica",
	"UY": "Uruguay",
	"PY": "Paraguay",
	"BO": "Bolivia",
	"GT": "Guatemala",
	"HN": "Honduras",
	"SV": "El Salvador",
	"NI": "Nicaragua",
	"DO": "Dominican Republic",
	"CU": "Cuba",
	"ES": "Spain",
	"PT": "Portugal",
	"FR": "France",
	"DE": "Germany",
	"IT": "Italy",
	"GB": "United Kingdom",
	"NL": "Netherlands",
	"CA": "Canada",
	"CN": "China",
	"JP": "Japan",
}

// DefaultCountryCode is the home market country
const DefaultCountryCode = "CO"

// CountryCode is a value object for an ISO 3166-1 alpha-2 country code.
type CountryCode struct {
	value string
}

// NewCountryCode creates a validated CountryCode. The code is trimmed and
// uppercased and must belong to the supported country list.
func NewCountryCode(code string) (CountryCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return CountryCode{}, fmt.Errorf("country code cannot be empty")
	}
	if len(normalized) != 2 {
		return CountryCode{}, fmt.Errorf("country code must have exactly 2 letters, got %q", code)
	}
	if _, ok := countryNames[normalized]; !ok {
		return CountryCode{}, fmt.Errorf("unsupported country code: %s", normalized)
	}
	return CountryCode{value: normalized}, nil
}

// MustNewCountryCode creates a CountryCode, panics on error
func MustNewCountryCode(code string) CountryCode {
	c, err := NewCountryCode(code)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the uppercase code
func (c CountryCode) String() string {
	return c.value
}

// Name returns the display name for the country
func (c CountryCode) Name() string {
	return countryNames[c.value]
}

// IsEmpty returns true for the zero value
func (c CountryCode) IsEmpty() bool {
	return c.value == ""
}

// IsDomestic reports whether the code is the home market
func (c CountryCode) IsDomestic() bool {
	return c.value == DefaultCountryCode
}

// Equals compares codes
func (c CountryCode) Equals(other CountryCode) bool {
	return c.value == other.value
}

// MarshalJSON implements json.Marshaler
func (c CountryCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value)
}

// UnmarshalJSON implements json.Unmarshaler, delegating to the factory
func (c *CountryCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = CountryCode{}
		return nil
	}
	code, err := NewCountryCode(s)
	if err != nil {
		return err
	}
	*c = code
	return nil
}

// Value implements driver.Valuer
func (c CountryCode) Value() (driver.Value, error) {
	if c.IsEmpty() {
		return nil, nil
	}
	return c.value, nil
}

// Scan implements sql.Scanner
func (c *CountryCode) Scan(value any) error {
	if value == nil {
		*c = CountryCode{}
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into CountryCode", value)
	}
	if s == "" {
		*c = CountryCode{}
		return nil
	}
	code, err := NewCountryCode(s)
	if err != nil {
		return err
	}
	*c = code
	return nil
}
