package customer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultMergeIdempotencyTTL is how long a merge idempotency key stays
// recorded before the same key can trigger a new merge.
const DefaultMergeIdempotencyTTL = 24 * time.Hour

// MergeRequest describes a merge of one customer into another
type MergeRequest struct {
	SourceID       uuid.UUID
	DestinationID  uuid.UUID
	IdempotencyKey string
	ActorID        uuid.UUID
	Reason         string
}

// MergeResult reports what a merge did
type MergeResult struct {
	Destination          *Customer `json:"destination"`
	SourceID             uuid.UUID `json:"source_id"`
	FieldsFilled         []string  `json:"fields_filled"`
	ContactsTransferred  int       `json:"contacts_transferred"`
	AddressesTransferred int       `json:"addresses_transferred"`
	TaxProfileAdopted    bool      `json:"tax_profile_adopted"`
	NotesMerged          bool      `json:"notes_merged"`
	AlreadyProcessed     bool      `json:"already_processed"`
}

// MergePreview is the dry-run view of a merge
type MergePreview struct {
	SourceID             uuid.UUID `json:"source_id"`
	DestinationID        uuid.UUID `json:"destination_id"`
	Violations           []string  `json:"violations,omitempty"`
	FieldsToFill         []string  `json:"fields_to_fill"`
	ContactsToTransfer   int       `json:"contacts_to_transfer"`
	AddressesToTransfer  int       `json:"addresses_to_transfer"`
	WillAdoptTaxProfile  bool      `json:"will_adopt_tax_profile"`
	WillMergeNotes       bool      `json:"will_merge_notes"`
}

// MergeService merges duplicate customers. The destination absorbs the
// source's data; the source is soft deleted with a pointer back to the
// destination. The whole merge runs in one transaction and is idempotent
// under a client-supplied key.
type MergeService struct {
	customers   CustomerRepository
	idempotency IdempotencyRepository
	tx          shared.Transactor
	ttl         time.Duration
}

// NewMergeService creates a new MergeService
func NewMergeService(customers CustomerRepository, idempotency IdempotencyRepository, tx shared.Transactor) *MergeService {
	return &MergeService{
		customers:   customers,
		idempotency: idempotency,
		tx:          tx,
		ttl:         DefaultMergeIdempotencyTTL,
	}
}

// WithIdempotencyTTL overrides the idempotency record lifetime
func (s *MergeService) WithIdempotencyTTL(ttl time.Duration) *MergeService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Merge merges the source customer into the destination. When the request
// carries an idempotency key that was already processed, the merge is not
// repeated: the current destination is returned with AlreadyProcessed set.
func (s *MergeService) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	if req.IdempotencyKey != "" {
		record, err := s.idempotency.Find(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if record != nil {
			return s.replay(ctx, req)
		}
	}

	source, err := s.customers.FindByID(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	destination, err := s.customers.FindByID(ctx, req.DestinationID)
	if err != nil {
		return nil, err
	}

	if violations := s.Validate(source, destination); len(violations) > 0 {
		return nil, shared.NewDomainError("MERGE_VALIDATION", strings.Join(violations, "; "))
	}

	plan := planMerge(source, destination, req.Reason)

	var result *MergeResult
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if req.IdempotencyKey != "" {
			payload, _ := json.Marshal(map[string]any{
				"source_id":      req.SourceID,
				"destination_id": req.DestinationID,
				"actor_id":       req.ActorID,
				"reason":         req.Reason,
			})
			if err := s.idempotency.Store(txCtx, req.IdempotencyKey, payload, nil, s.ttl); err != nil {
				return fmt.Errorf("recording idempotency key: %w", err)
			}
		}

		applyMerge(plan, source, destination, req.ActorID, req.Reason)

		if err := s.customers.Save(txCtx, destination); err != nil {
			return fmt.Errorf("saving destination: %w", err)
		}
		if err := s.customers.Save(txCtx, source); err != nil {
			return fmt.Errorf("saving source: %w", err)
		}

		result = &MergeResult{
			Destination:          destination,
			SourceID:             source.ID,
			FieldsFilled:         plan.fieldsToFill,
			ContactsTransferred:  len(plan.contacts),
			AddressesTransferred: len(plan.addresses),
			TaxProfileAdopted:    plan.adoptTaxProfile,
			NotesMerged:          plan.mergeNotes,
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*shared.DomainError); ok {
			return nil, err
		}
		return nil, fmt.Errorf("merge of %s into %s failed: %w", req.SourceID, req.DestinationID, err)
	}

	return result, nil
}

// replay serves a request whose idempotency key was already processed
func (s *MergeService) replay(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	destination, err := s.customers.FindByID(ctx, req.DestinationID)
	if err != nil {
		return nil, err
	}
	return &MergeResult{
		Destination:      destination,
		SourceID:         req.SourceID,
		AlreadyProcessed: true,
	}, nil
}

// Validate returns the business reasons the two customers cannot be merged.
// An empty slice means the merge may proceed.
func (s *MergeService) Validate(source, destination *Customer) []string {
	var violations []string
	if source.ID == destination.ID {
		violations = append(violations, "source and destination are the same customer")
	}
	if source.TenantID != destination.TenantID {
		violations = append(violations, "customers belong to different tenants")
	}
	if source.Type != destination.Type {
		violations = append(violations, "customers are of different types")
	}
	if source.IsBlacklisted() {
		violations = append(violations, "source customer is blacklisted")
	}
	if destination.IsBlacklisted() {
		violations = append(violations, "destination customer is blacklisted")
	}
	if source.IsDeleted() {
		violations = append(violations, "source customer is already deleted")
	}
	if destination.IsDeleted() {
		violations = append(violations, "destination customer is deleted")
	}
	return violations
}

// Preview computes what a merge would do without persisting anything
func (s *MergeService) Preview(ctx context.Context, sourceID, destinationID uuid.UUID) (*MergePreview, error) {
	source, err := s.customers.FindByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	destination, err := s.customers.FindByID(ctx, destinationID)
	if err != nil {
		return nil, err
	}

	preview := &MergePreview{
		SourceID:      source.ID,
		DestinationID: destination.ID,
		Violations:    s.Validate(source, destination),
	}

	plan := planMerge(source, destination, "")
	preview.FieldsToFill = plan.fieldsToFill
	preview.ContactsToTransfer = len(plan.contacts)
	preview.AddressesToTransfer = len(plan.addresses)
	preview.WillAdoptTaxProfile = plan.adoptTaxProfile
	preview.WillMergeNotes = plan.mergeNotes

	return preview, nil
}

// mergePlan is the precomputed set of changes a merge will apply
type mergePlan struct {
	fieldsToFill    []string
	contacts        []Contact
	addresses       []Address
	adoptTaxProfile bool
	mergeNotes      bool
}

// planMerge decides what moves from source to destination. Destination
// values always win: source values only fill gaps. Notes are rewritten when
// the source carries notes or the merge carries a reason, so the reason is
// never lost.
func planMerge(source, destination *Customer, reason string) mergePlan {
	plan := mergePlan{fieldsToFill: []string{}}

	if destination.FirstName == "" && source.FirstName != "" {
		plan.fieldsToFill = append(plan.fieldsToFill, "first_name")
	}
	if destination.LastName == "" && source.LastName != "" {
		plan.fieldsToFill = append(plan.fieldsToFill, "last_name")
	}
	if !destination.HasEmail() && source.HasEmail() {
		plan.fieldsToFill = append(plan.fieldsToFill, "email")
	}
	if !destination.HasPhone() && source.HasPhone() {
		plan.fieldsToFill = append(plan.fieldsToFill, "phone")
	}
	if destination.Segment == "" && source.Segment != "" {
		plan.fieldsToFill = append(plan.fieldsToFill, "segment")
	}

	for _, contact := range source.Contacts {
		duplicate := false
		for _, existing := range destination.Contacts {
			if contact.Matches(existing) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			plan.contacts = append(plan.contacts, contact.CopyFor(destination.ID))
		}
	}

	for _, address := range source.Addresses {
		duplicate := false
		for _, existing := range destination.Addresses {
			if address.SameLocation(existing) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			plan.addresses = append(plan.addresses, address.CopyFor(destination.ID))
		}
	}

	plan.adoptTaxProfile = !destination.HasTaxProfile() && source.HasTaxProfile()
	plan.mergeNotes = strings.TrimSpace(source.Notes) != "" || strings.TrimSpace(reason) != ""

	return plan
}

// combineNotes rebuilds the destination notes: existing notes first, then the
// source's notes under a labeled header, then the labeled merge reason, then
// a trailing merge timestamp line. Blank sections are skipped.
func combineNotes(destinationNotes string, source *Customer, reason string, now time.Time) string {
	parts := make([]string, 0, 4)
	if trimmed := strings.TrimSpace(destinationNotes); trimmed != "" {
		parts = append(parts, trimmed)
	}
	if trimmed := strings.TrimSpace(source.Notes); trimmed != "" {
		parts = append(parts, fmt.Sprintf("--- Notes from %s (%s) ---\n%s",
			source.FullName(), source.Document.String(), trimmed))
	}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		parts = append(parts, "Merge reason: "+trimmed)
	}
	parts = append(parts, "Merged on "+now.Format("2006-01-02 15:04:05"))
	return strings.Join(parts, "\n\n")
}

// applyMerge mutates both aggregates according to the plan
func applyMerge(plan mergePlan, source, destination *Customer, actorID uuid.UUID, reason string) {
	now := time.Now()

	for _, field := range plan.fieldsToFill {
		switch field {
		case "first_name":
			destination.FirstName = source.FirstName
		case "last_name":
			destination.LastName = source.LastName
		case "email":
			destination.Email = source.Email
		case "phone":
			destination.Phone = source.Phone
		case "segment":
			destination.Segment = source.Segment
		}
	}

	if plan.mergeNotes {
		destination.Notes = combineNotes(destination.Notes, source, reason, now)
	}

	destination.Contacts = append(destination.Contacts, plan.contacts...)
	destination.Addresses = append(destination.Addresses, plan.addresses...)

	if plan.adoptTaxProfile {
		profile := source.TaxProfile.CopyFor(destination.ID)
		destination.TaxProfile = &profile
	}

	destination.UpdatedAt = now
	destination.IncrementVersion()
	destination.AddDomainEvent(NewCustomerMergedEvent(source, destination, actorID, reason))

	source.MergedIntoID = &destination.ID
	source.DeletedAt = &now
	source.DeletedReason = fmt.Sprintf("merged into #%s", destination.ID)
	source.UpdatedAt = now
	source.IncrementVersion()
	source.AddDomainEvent(NewCustomerDeletedEvent(source, source.DeletedReason))
}
