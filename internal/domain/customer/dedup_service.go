package customer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SimilarityThreshold is the score at or above which two customers are
// considered likely duplicates.
const SimilarityThreshold = 0.70

// Similarity criterion weights. A document match alone is conclusive; the
// other criteria are weighed against each other, and a criterion missing on
// either side drops out of both the score and the denominator so sparse
// records are not penalized.
const (
	weightEmail = 0.8
	weightPhone = 0.6
	weightName  = 0.4
)

// DuplicateMatch is one candidate in a duplicate report
type DuplicateMatch struct {
	Customer *Customer `json:"customer"`
	Score    float64   `json:"score"`
	IsLikely bool      `json:"is_likely"`
	Reasons  []string  `json:"reasons"`
}

// DuplicateReport lists the duplicate candidates for a customer, best first
type DuplicateReport struct {
	CustomerID uuid.UUID        `json:"customer_id"`
	Matches    []DuplicateMatch `json:"matches"`
}

// DedupService detects customers that likely represent the same person or
// company. It is a pure domain service on top of the repository.
type DedupService struct {
	customers CustomerRepository
}

// NewDedupService creates a new DedupService
func NewDedupService(customers CustomerRepository) *DedupService {
	return &DedupService{customers: customers}
}

// FindPotentialDuplicates collects candidates sharing the customer's
// document, email or phone, or carrying a similar name. The customer itself
// is excluded and each candidate appears once.
func (s *DedupService) FindPotentialDuplicates(ctx context.Context, c *Customer) ([]*Customer, error) {
	seen := make(map[uuid.UUID]bool)
	var candidates []*Customer

	add := func(found ...*Customer) {
		for _, other := range found {
			if other == nil || other.ID == c.ID || seen[other.ID] {
				continue
			}
			seen[other.ID] = true
			candidates = append(candidates, other)
		}
	}

	byDocument, err := s.customers.FindByDocument(ctx, c.TenantID, c.Document)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("finding duplicates by document: %w", err)
	}
	add(byDocument)

	if c.HasEmail() {
		byEmail, err := s.customers.FindByEmail(ctx, c.TenantID, *c.Email)
		if err != nil {
			return nil, fmt.Errorf("finding duplicates by email: %w", err)
		}
		add(byEmail...)
	}

	if c.HasPhone() {
		byPhone, err := s.customers.FindByPhone(ctx, c.TenantID, *c.Phone)
		if err != nil {
			return nil, fmt.Errorf("finding duplicates by phone: %w", err)
		}
		add(byPhone...)
	}

	if name := c.FullName(); name != "" {
		byName, err := s.customers.FindBySimilarName(ctx, c.TenantID, name)
		if err != nil {
			return nil, fmt.Errorf("finding duplicates by name: %w", err)
		}
		add(byName...)
	}

	return candidates, nil
}

// CalculateSimilarityScore scores how likely two customers are the same,
// in [0, 1]. A document match is conclusive. Otherwise email, phone and name
// are compared; criteria missing on either side are left out of the
// denominator entirely.
func (s *DedupService) CalculateSimilarityScore(a, b *Customer) float64 {
	if a.Document.Equals(b.Document) {
		return 1.0
	}

	var score, maxScore float64

	if a.HasEmail() && b.HasEmail() {
		maxScore += weightEmail
		if a.Email.Equals(*b.Email) {
			score += weightEmail
		}
	}

	if a.HasPhone() && b.HasPhone() {
		maxScore += weightPhone
		if a.Phone.Equals(*b.Phone) {
			score += weightPhone
		}
	}

	maxScore += weightName
	score += nameSimilarity(a, b) * weightName

	if maxScore == 0 {
		return 0
	}
	return score / maxScore
}

// AreLikelyDuplicates reports whether the similarity score reaches the threshold
func (s *DedupService) AreLikelyDuplicates(a, b *Customer) bool {
	return s.CalculateSimilarityScore(a, b) >= SimilarityThreshold
}

// GenerateDuplicateReport scores every candidate for the customer and
// returns them ordered best match first.
func (s *DedupService) GenerateDuplicateReport(ctx context.Context, c *Customer) (*DuplicateReport, error) {
	candidates, err := s.FindPotentialDuplicates(ctx, c)
	if err != nil {
		return nil, err
	}

	matches := make([]DuplicateMatch, 0, len(candidates))
	for _, candidate := range candidates {
		score := s.CalculateSimilarityScore(c, candidate)
		matches = append(matches, DuplicateMatch{
			Customer: candidate,
			Score:    score,
			IsLikely: score >= SimilarityThreshold,
			Reasons:  s.matchReasons(c, candidate),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return &DuplicateReport{CustomerID: c.ID, Matches: matches}, nil
}

func (s *DedupService) matchReasons(a, b *Customer) []string {
	var reasons []string
	if a.Document.Equals(b.Document) {
		reasons = append(reasons, "same document")
	}
	if a.HasEmail() && b.HasEmail() && a.Email.Equals(*b.Email) {
		reasons = append(reasons, "same email")
	}
	if a.HasPhone() && b.HasPhone() && a.Phone.Equals(*b.Phone) {
		reasons = append(reasons, "same phone")
	}
	if sim := nameSimilarity(a, b); sim >= 0.5 {
		reasons = append(reasons, fmt.Sprintf("similar name (%.0f%%)", sim*100))
	}
	return reasons
}

// nameSimilarity compares display names. Customers of different types never
// match by name: a person and a company sharing words is coincidence.
func nameSimilarity(a, b *Customer) float64 {
	if a.Type != b.Type {
		return 0
	}
	nameA := normalizeName(a.FullName())
	nameB := normalizeName(b.FullName())
	if nameA == "" || nameB == "" {
		return 0
	}
	if nameA == nameB {
		return 1
	}
	common := similarChars(nameA, nameB)
	return float64(2*common) / float64(len(nameA)+len(nameB))
}

// normalizeName lowercases, folds accents away, strips punctuation and
// collapses whitespace, so García and garcia compare equal. The transform
// chain is built per call; chained transformers carry state and cannot be
// shared across goroutines.
func normalizeName(name string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripAccents, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	var sb strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// similarChars counts matching characters the way classic string similarity
// does: take the longest common substring, then recurse on what is left on
// each side of it.
func similarChars(s1, s2 string) int {
	var max, pos1, pos2 int
	for i := 0; i < len(s1); i++ {
		for j := 0; j < len(s2); j++ {
			k := 0
			for i+k < len(s1) && j+k < len(s2) && s1[i+k] == s2[j+k] {
				k++
			}
			if k > max {
				max, pos1, pos2 = k, i, j
			}
		}
	}
	if max == 0 {
		return 0
	}

	sum := max
	if pos1 > 0 && pos2 > 0 {
		sum += similarChars(s1[:pos1], s2[:pos2])
	}
	if pos1+max < len(s1) && pos2+max < len(s2) {
		sum += similarChars(s1[pos1+max:], s2[pos2+max:])
	}
	return sum
}
