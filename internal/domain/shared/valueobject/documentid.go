package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// DocumentType represents a Colombian identity document type
type DocumentType string

const (
	DocumentTypeCC  DocumentType = "CC"  // Cédula de ciudadanía
	DocumentTypeNIT DocumentType = "NIT" // Número de identificación tributaria
	DocumentTypeCE  DocumentType = "CE"  // Cédula de extranjería
	DocumentTypePA  DocumentType = "PA"  // Pasaporte
	DocumentTypeTI  DocumentType = "TI"  // Tarjeta de identidad
	DocumentTypeRC  DocumentType = "RC"  // Registro civil
)

// AllDocumentTypes lists every supported document type
var AllDocumentTypes = []DocumentType{
	DocumentTypeCC, DocumentTypeNIT, DocumentTypeCE,
	DocumentTypePA, DocumentTypeTI, DocumentTypeRC,
}

// IsValid returns true if the document type is supported
func (t DocumentType) IsValid() bool {
	for _, dt := range AllDocumentTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// Description returns a human-readable name for the document type
func (t DocumentType) Description() string {
	switch t {
	case DocumentTypeCC:
		return "Cédula de Ciudadanía"
	case DocumentTypeNIT:
		return "Número de Identificación Tributaria"
	case DocumentTypeCE:
		return "Cédula de Extranjería"
	case DocumentTypePA:
		return "Pasaporte"
	case DocumentTypeTI:
		return "Tarjeta de Identidad"
	case DocumentTypeRC:
		return "Registro Civil"
	default:
		return string(t)
	}
}

// ParseDocumentType parses a string into a DocumentType
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown document type: %s", s)
	}
	return t, nil
}

// nitWeights is the factor cycle applied to NIT digits left to right when
// computing the DIAN verification digit.
var nitWeights = []int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// DocumentID is a value object identifying a person or company by its
// national document. It is immutable - the constructor normalizes and
// validates the number, including the NIT verification digit.
type DocumentID struct {
	docType DocumentType
	number  string
}

// NewDocumentID creates a validated DocumentID. The number is normalized to
// digits only; for NITs the last digit must be the mod-11 verification digit
// of the preceding digits.
func NewDocumentID(docType DocumentType, number string) (DocumentID, error) {
	if !docType.IsValid() {
		return DocumentID{}, fmt.Errorf("unknown document type: %s", docType)
	}

	normalized := normalizeDigits(number)
	if len(normalized) < 5 || len(normalized) > 15 {
		return DocumentID{}, fmt.Errorf("document number must have between 5 and 15 digits, got %d", len(normalized))
	}

	if docType == DocumentTypeNIT {
		if len(normalized) < 8 {
			return DocumentID{}, fmt.Errorf("NIT must have at least 8 digits, got %d", len(normalized))
		}
		if !validNITCheckDigit(normalized) {
			return DocumentID{}, fmt.Errorf("invalid NIT verification digit for %s", normalized)
		}
	}

	return DocumentID{docType: docType, number: normalized}, nil
}

// MustNewDocumentID creates a DocumentID, panics on error. For tests and fixtures.
func MustNewDocumentID(docType DocumentType, number string) DocumentID {
	d, err := NewDocumentID(docType, number)
	if err != nil {
		panic(err)
	}
	return d
}

// NITCheckDigit computes the DIAN verification digit for the given NIT base
// number (digits only, without the verification digit).
func NITCheckDigit(base string) int {
	sum := 0
	for i, r := range base {
		sum += int(r-'0') * nitWeights[i%len(nitWeights)]
	}
	raw := sum % 11
	if raw < 2 {
		return raw
	}
	return 11 - raw
}

func validNITCheckDigit(number string) bool {
	if len(number) < 2 {
		return false
	}
	base := number[:len(number)-1]
	check := int(number[len(number)-1] - '0')
	return NITCheckDigit(base) == check
}

func normalizeDigits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Type returns the document type
func (d DocumentID) Type() DocumentType {
	return d.docType
}

// Number returns the normalized document number (digits only)
func (d DocumentID) Number() string {
	return d.number
}

// IsEmpty returns true if the document is the zero value
func (d DocumentID) IsEmpty() bool {
	return d.docType == "" && d.number == ""
}

// Equals returns true when type and normalized number match
func (d DocumentID) Equals(other DocumentID) bool {
	return d.docType == other.docType && d.number == other.number
}

// String returns the canonical "TYPE:number" form
func (d DocumentID) String() string {
	return fmt.Sprintf("%s:%s", d.docType, d.number)
}

// Formatted returns the number with display grouping. CC numbers are grouped
// with dots; NITs additionally separate the verification digit with a dash.
func (d DocumentID) Formatted() string {
	switch d.docType {
	case DocumentTypeCC:
		return groupThousands(d.number)
	case DocumentTypeNIT:
		if len(d.number) < 2 {
			return d.number
		}
		base := d.number[:len(d.number)-1]
		check := d.number[len(d.number)-1:]
		return groupThousands(base) + "-" + check
	default:
		return d.number
	}
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var sb strings.Builder
	rem := n % 3
	if rem > 0 {
		sb.WriteString(digits[:rem])
	}
	for i := rem; i < n; i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

type documentIDJSON struct {
	Type   DocumentType `json:"type"`
	Number string       `json:"number"`
}

// MarshalJSON implements json.Marshaler
func (d DocumentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentIDJSON{Type: d.docType, Number: d.number})
}

// UnmarshalJSON implements json.Unmarshaler, delegating to the factory so
// deserialized values stay validated.
func (d *DocumentID) UnmarshalJSON(data []byte) error {
	var v documentIDJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Type == "" && v.Number == "" {
		*d = DocumentID{}
		return nil
	}
	doc, err := NewDocumentID(v.Type, v.Number)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Value implements driver.Valuer, storing the canonical "TYPE:number" form
func (d DocumentID) Value() (driver.Value, error) {
	if d.IsEmpty() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner for the canonical "TYPE:number" form
func (d *DocumentID) Scan(value any) error {
	if value == nil {
		*d = DocumentID{}
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into DocumentID", value)
	}
	if s == "" {
		*d = DocumentID{}
		return nil
	}
	return d.parseCanonical(s)
}

// ParseDocumentID parses the canonical "TYPE:number" form
func ParseDocumentID(s string) (DocumentID, error) {
	var d DocumentID
	if err := d.parseCanonical(s); err != nil {
		return DocumentID{}, err
	}
	return d, nil
}

func (d *DocumentID) parseCanonical(s string) error {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("malformed document id: %s", s)
	}
	docType, err := ParseDocumentType(parts[0])
	if err != nil {
		return err
	}
	doc, err := NewDocumentID(docType, parts[1])
	if err != nil {
		return err
	}
	*d = doc
	return nil
}
