package customer

import (
	"context"
	"testing"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func buildNatural(t *testing.T, tenantID uuid.UUID, document, firstName, lastName, email, phone string) *Customer {
	t.Helper()
	var emailVO *valueobject.Email
	if email != "" {
		e := valueobject.MustNewEmail(email)
		emailVO = &e
	}
	var phoneVO *valueobject.Phone
	if phone != "" {
		p := valueobject.MustNewPhone(phone)
		phoneVO = &p
	}
	c, err := NewCustomer(tenantID, CustomerTypeNatural,
		valueobject.MustNewDocumentID(valueobject.DocumentTypeCC, document),
		"", firstName, lastName, emailVO, phoneVO)
	require.NoError(t, err)
	return c
}

func TestCalculateSimilarityScore(t *testing.T) {
	tenantID := uuid.New()
	svc := NewDedupService(nil)

	t.Run("same document is conclusive", func(t *testing.T) {
		a := buildNatural(t, tenantID, "12345678", "Ana", "García", "ana@example.com", "")
		b := buildNatural(t, tenantID, "12345678", "Ana María", "García", "other@example.com", "3001234567")

		assert.Equal(t, 1.0, svc.CalculateSimilarityScore(a, b))
	})

	t.Run("same email and name without phones", func(t *testing.T) {
		a := buildNatural(t, tenantID, "12345678", "Ana", "García", "ana@example.com", "")
		b := buildNatural(t, tenantID, "87654321", "Ana", "García", "ana@example.com", "")

		// email 0.8 + name 0.4, over the same criteria as denominator
		assert.InDelta(t, 1.0, svc.CalculateSimilarityScore(a, b), 0.001)
		assert.True(t, svc.AreLikelyDuplicates(a, b))
	})

	t.Run("missing phone on one side is not penalized", func(t *testing.T) {
		withPhone := buildNatural(t, tenantID, "12345678", "Ana", "García", "ana@example.com", "3001234567")
		withoutPhone := buildNatural(t, tenantID, "87654321", "Ana", "García", "ana@example.com", "")

		// phone drops out of both score and denominator
		assert.InDelta(t, 1.0, svc.CalculateSimilarityScore(withPhone, withoutPhone), 0.001)
	})

	t.Run("mismatched phone lowers the score", func(t *testing.T) {
		a := buildNatural(t, tenantID, "12345678", "Ana", "García", "ana@example.com", "3001234567")
		b := buildNatural(t, tenantID, "87654321", "Ana", "García", "ana@example.com", "3009999999")

		// (0.8 + 0 + 0.4) / 1.8
		assert.InDelta(t, 1.2/1.8, svc.CalculateSimilarityScore(a, b), 0.001)
	})

	t.Run("score exactly at the threshold counts as duplicate", func(t *testing.T) {
		// no emails, matching phones, names sharing only their first letter:
		// (0.6 + 0.25*0.4) / (0.6 + 0.4) = 0.70
		a := buildNatural(t, tenantID, "11111111", "Rosa", "", "", "3001234567")
		b := buildNatural(t, tenantID, "22222222", "Rene", "", "", "3001234567")

		assert.InDelta(t, SimilarityThreshold, svc.CalculateSimilarityScore(a, b), 1e-9)
		assert.True(t, svc.AreLikelyDuplicates(a, b))
	})

	t.Run("different emails with similar names stays below threshold", func(t *testing.T) {
		a := buildNatural(t, tenantID, "12345678", "Ana", "García", "ana@example.com", "")
		b := buildNatural(t, tenantID, "87654321", "Ana", "García", "ana.garcia@other.com", "")

		score := svc.CalculateSimilarityScore(a, b)
		assert.Less(t, score, SimilarityThreshold)
		assert.False(t, svc.AreLikelyDuplicates(a, b))
	})

	t.Run("name comparison across types scores zero", func(t *testing.T) {
		person := buildNatural(t, tenantID, "12345678", "Acme", "", "shared@example.com", "")

		email := valueobject.MustNewEmail("shared@example.com")
		company, err := NewCustomer(tenantID, CustomerTypeJuridical,
			valueobject.MustNewDocumentID(valueobject.DocumentTypeNIT, "9001234566"),
			"Acme", "", "", &email, nil)
		require.NoError(t, err)

		// email matches but names never do across types: 0.8 / 1.2
		assert.InDelta(t, 0.8/1.2, svc.CalculateSimilarityScore(person, company), 0.001)
		assert.False(t, svc.AreLikelyDuplicates(person, company))
	})

	t.Run("name normalization ignores case and punctuation", func(t *testing.T) {
		a := buildNatural(t, tenantID, "12345678", "ANA", "GARCÍA", "ana@example.com", "")
		b := buildNatural(t, tenantID, "87654321", "Ana", "garcía...", "ana@example.com", "")

		assert.InDelta(t, 1.0, svc.CalculateSimilarityScore(a, b), 0.001)
	})

	t.Run("name normalization folds accents", func(t *testing.T) {
		accented := buildNatural(t, tenantID, "12345678", "José", "Gutiérrez Peña", "jose@example.com", "")
		plain := buildNatural(t, tenantID, "87654321", "Jose", "Gutierrez Pena", "jose@example.com", "")

		assert.InDelta(t, 1.0, svc.CalculateSimilarityScore(accented, plain), 0.001)
	})
}

func TestFindPotentialDuplicates(t *testing.T) {
	tenantID := uuid.New()

	t.Run("unions matches and excludes self", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := NewDedupService(repo)

		subject := buildNatural(t, tenantID, "12345678", "Ana", "García", "ana@example.com", "3001234567")
		sameEmail := buildNatural(t, tenantID, "87654321", "Ana M", "García", "ana@example.com", "")
		samePhone := buildNatural(t, tenantID, "11223344", "A", "Garcia", "other@example.com", "3001234567")

		repo.On("FindByDocument", mock.Anything, tenantID, subject.Document).Return(nil, shared.ErrNotFound)
		repo.On("FindByEmail", mock.Anything, tenantID, *subject.Email).Return([]*Customer{subject, sameEmail}, nil)
		repo.On("FindByPhone", mock.Anything, tenantID, *subject.Phone).Return([]*Customer{samePhone, sameEmail}, nil)
		repo.On("FindBySimilarName", mock.Anything, tenantID, subject.FullName()).Return([]*Customer{}, nil)

		candidates, err := svc.FindPotentialDuplicates(context.Background(), subject)

		require.NoError(t, err)
		require.Len(t, candidates, 2, "self excluded and duplicates collapsed")
		assert.Equal(t, sameEmail.ID, candidates[0].ID)
		assert.Equal(t, samePhone.ID, candidates[1].ID)
		repo.AssertExpectations(t)
	})
}

func TestGenerateDuplicateReport(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockCustomerRepository)
	svc := NewDedupService(repo)

	subject := buildNatural(t, tenantID, "12345678", "Ana", "García", "ana@example.com", "")
	strong := buildNatural(t, tenantID, "87654321", "Ana", "García", "ana@example.com", "")
	weak := buildNatural(t, tenantID, "11223344", "Anabel", "Garza", "anabel@example.com", "")

	repo.On("FindByDocument", mock.Anything, tenantID, subject.Document).Return(nil, shared.ErrNotFound)
	repo.On("FindByEmail", mock.Anything, tenantID, *subject.Email).Return([]*Customer{strong}, nil)
	repo.On("FindBySimilarName", mock.Anything, tenantID, subject.FullName()).Return([]*Customer{weak}, nil)

	report, err := svc.GenerateDuplicateReport(context.Background(), subject)

	require.NoError(t, err)
	require.Len(t, report.Matches, 2)
	assert.Equal(t, strong.ID, report.Matches[0].Customer.ID, "best match first")
	assert.True(t, report.Matches[0].IsLikely)
	assert.Contains(t, report.Matches[0].Reasons, "same email")
	assert.False(t, report.Matches[1].IsLikely)
}

func TestSimilarChars(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"hello", "hello", 5},
		{"hello", "world", 1}, // the shared "l"
		{"", "anything", 0},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, similarChars(tt.s1, tt.s2), "%q vs %q", tt.s1, tt.s2)
	}
}
