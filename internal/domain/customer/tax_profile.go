package customer

import (
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TaxRegime classifies the customer's tax regime with DIAN
type TaxRegime string

const (
	TaxRegimeSimplified       TaxRegime = "simplified"
	TaxRegimeCommon           TaxRegime = "common"
	TaxRegimeSpecial          TaxRegime = "special"
	TaxRegimeNotResponsible   TaxRegime = "not_responsible"
	TaxRegimeGreatContributor TaxRegime = "great_contributor"
)

// IsValid returns true if the regime is known
func (r TaxRegime) IsValid() bool {
	switch r {
	case TaxRegimeSimplified, TaxRegimeCommon, TaxRegimeSpecial, TaxRegimeNotResponsible, TaxRegimeGreatContributor:
		return true
	}
	return false
}

// ParseTaxRegime parses a string into a TaxRegime
func ParseTaxRegime(s string) (TaxRegime, error) {
	r := TaxRegime(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.NewDomainError("INVALID_TAX_PROFILE", "Unknown tax regime: "+s)
	}
	return r, nil
}

// TaxProfile holds the fiscal attributes of a customer. A customer has at
// most one tax profile.
type TaxProfile struct {
	shared.BaseEntity
	CustomerID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Regime           TaxRegime `gorm:"type:varchar(30);not null"`
	Responsibilities []string  `gorm:"serializer:json"`
	ActivityCodes    []string  `gorm:"serializer:json"`
	TaxAddress       string    `gorm:"type:varchar(500)"`
	RetentionAgent   bool      `gorm:"not null;default:false"`
	SelfRetainer     bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TaxProfile) TableName() string {
	return "customer_tax_profiles"
}

// NewTaxProfile creates a tax profile
func NewTaxProfile(regime TaxRegime, taxAddress string) (TaxProfile, error) {
	profile := TaxProfile{
		BaseEntity: shared.NewBaseEntity(),
		Regime:     regime,
		TaxAddress: strings.TrimSpace(taxAddress),
	}
	if err := profile.Validate(); err != nil {
		return TaxProfile{}, err
	}
	return profile, nil
}

// Validate checks the profile invariants
func (p TaxProfile) Validate() error {
	if !p.Regime.IsValid() {
		return shared.NewDomainError("INVALID_TAX_PROFILE", "Unknown tax regime: "+string(p.Regime))
	}
	if len(p.TaxAddress) > 500 {
		return shared.NewDomainError("INVALID_TAX_PROFILE", "Tax address cannot exceed 500 characters")
	}
	return nil
}

// AddResponsibility appends a fiscal responsibility code if not present
func (p *TaxProfile) AddResponsibility(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	for _, existing := range p.Responsibilities {
		if existing == code {
			return
		}
	}
	p.Responsibilities = append(p.Responsibilities, code)
}

// RemoveResponsibility removes a fiscal responsibility code
func (p *TaxProfile) RemoveResponsibility(code string) {
	for i, existing := range p.Responsibilities {
		if existing == code {
			p.Responsibilities = append(p.Responsibilities[:i], p.Responsibilities[i+1:]...)
			return
		}
	}
}

// AddActivityCode appends an economic activity code if not present
func (p *TaxProfile) AddActivityCode(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	for _, existing := range p.ActivityCodes {
		if existing == code {
			return
		}
	}
	p.ActivityCodes = append(p.ActivityCodes, code)
}

// CopyFor returns a copy of the profile attached to another customer
func (p TaxProfile) CopyFor(customerID uuid.UUID) TaxProfile {
	clone := p
	clone.BaseEntity = shared.NewBaseEntity()
	clone.CustomerID = customerID
	clone.Responsibilities = append([]string(nil), p.Responsibilities...)
	clone.ActivityCodes = append([]string(nil), p.ActivityCodes...)
	return clone
}
