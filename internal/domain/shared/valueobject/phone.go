package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Phone is a value object for a phone number normalized to E.164-style form
// with Colombian defaults: local mobile and landline numbers receive the +57
// prefix, numbers already carrying the country code keep it.
type Phone struct {
	value  string // normalized, e.g. "+573001234567"
	digits string // digits only as entered, for search matching
}

// NewPhone creates a validated, normalized Phone.
func NewPhone(number string) (Phone, error) {
	digits := normalizeDigits(number)
	if len(digits) < 7 || len(digits) > 15 {
		return Phone{}, fmt.Errorf("phone number must have between 7 and 15 digits, got %d", len(digits))
	}
	return Phone{value: normalizePhone(digits), digits: digits}, nil
}

// MustNewPhone creates a Phone, panics on error. For tests and fixtures.
func MustNewPhone(number string) Phone {
	p, err := NewPhone(number)
	if err != nil {
		panic(err)
	}
	return p
}

// normalizePhone applies the Colombian formatting rules to a digits-only
// number: a 12-digit number starting with 57 already carries the country
// code; a 10-digit mobile (leading 3) or any 7-10 digit local number gets
// the +57 prefix; anything else is assumed to carry its own country code.
func normalizePhone(digits string) string {
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "57"):
		return "+" + digits
	case len(digits) == 10 && strings.HasPrefix(digits, "3"):
		return "+57" + digits
	case len(digits) >= 7 && len(digits) <= 10:
		return "+57" + digits
	default:
		return "+" + digits
	}
}

// String returns the normalized number, e.g. "+573001234567"
func (p Phone) String() string {
	return p.value
}

// Digits returns the digits of the normalized number without the plus sign
func (p Phone) Digits() string {
	return strings.TrimPrefix(p.value, "+")
}

// IsEmpty returns true for the zero value
func (p Phone) IsEmpty() bool {
	return p.value == ""
}

// IsMobile reports whether the number looks like a Colombian mobile number
func (p Phone) IsMobile() bool {
	return strings.HasPrefix(p.value, "+573")
}

// Equals compares normalized numbers
func (p Phone) Equals(other Phone) bool {
	return p.value == other.value
}

// MarshalJSON implements json.Marshaler
func (p Phone) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// UnmarshalJSON implements json.Unmarshaler, delegating to the factory
func (p *Phone) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*p = Phone{}
		return nil
	}
	phone, err := NewPhone(s)
	if err != nil {
		return err
	}
	*p = phone
	return nil
}

// Value implements driver.Valuer
func (p Phone) Value() (driver.Value, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	return p.value, nil
}

// Scan implements sql.Scanner
func (p *Phone) Scan(value any) error {
	if value == nil {
		*p = Phone{}
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Phone", value)
	}
	if s == "" {
		*p = Phone{}
		return nil
	}
	phone, err := NewPhone(s)
	if err != nil {
		return err
	}
	*p = phone
	return nil
}
