package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// Email is a value object for a validated, normalized email address.
// It is immutable - the constructor lowercases and trims the input.
type Email struct {
	value string
}

// NewEmail creates a validated Email. The address is trimmed and lowercased.
func NewEmail(address string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if normalized == "" {
		return Email{}, fmt.Errorf("email cannot be empty")
	}
	if len(normalized) > 255 {
		return Email{}, fmt.Errorf("email cannot exceed 255 characters")
	}
	if !emailPattern.MatchString(normalized) {
		return Email{}, fmt.Errorf("invalid email address: %s", address)
	}
	return Email{value: normalized}, nil
}

// MustNewEmail creates an Email, panics on error. For tests and fixtures.
func MustNewEmail(address string) Email {
	e, err := NewEmail(address)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the normalized address
func (e Email) String() string {
	return e.value
}

// IsEmpty returns true for the zero value
func (e Email) IsEmpty() bool {
	return e.value == ""
}

// Domain returns the part after the @
func (e Email) Domain() string {
	at := strings.LastIndex(e.value, "@")
	if at < 0 {
		return ""
	}
	return e.value[at+1:]
}

// Equals compares normalized addresses
func (e Email) Equals(other Email) bool {
	return e.value == other.value
}

// MarshalJSON implements json.Marshaler
func (e Email) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.value)
}

// UnmarshalJSON implements json.Unmarshaler, delegating to the factory
func (e *Email) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*e = Email{}
		return nil
	}
	email, err := NewEmail(s)
	if err != nil {
		return err
	}
	*e = email
	return nil
}

// Value implements driver.Valuer
func (e Email) Value() (driver.Value, error) {
	if e.IsEmpty() {
		return nil, nil
	}
	return e.value, nil
}

// Scan implements sql.Scanner
func (e *Email) Scan(value any) error {
	if value == nil {
		*e = Email{}
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Email", value)
	}
	if s == "" {
		*e = Email{}
		return nil
	}
	email, err := NewEmail(s)
	if err != nil {
		return err
	}
	*e = email
	return nil
}
