package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/crm/backend/internal/domain/shared"
)

// EventUpgrader transforms a stored event payload from one schema version
// to the next. Upgraders are strictly sequential: a CustomerMerged v1
// payload reaches v3 by running the 1->2 and 2->3 upgraders in order.
type EventUpgrader interface {
	// SourceVersion returns the version this upgrader reads from
	SourceVersion() int
	// TargetVersion returns the version this upgrader produces
	TargetVersion() int
	// Upgrade transforms the raw JSON payload from source to target version
	Upgrade(payload []byte) ([]byte, error)
}

// VersionedEventConfig holds the versioning state of a single event type.
type VersionedEventConfig struct {
	EventType      string                     // e.g. "CustomerMerged"
	CurrentVersion int                        // latest schema version
	Upgraders      map[int]EventUpgrader      // source version -> upgrader
	Versions       map[int]shared.DomainEvent // version -> prototype instance
}

// VersionRegistry maps event types to their schema versions and upgrade
// chains. Outbox replay and dead-letter retries consult it before handing
// payloads to handlers.
type VersionRegistry struct {
	mu      sync.RWMutex
	configs map[string]*VersionedEventConfig
}

func NewVersionRegistry() *VersionRegistry {
	return &VersionRegistry{
		configs: make(map[string]*VersionedEventConfig),
	}
}

// buildUpgraderChain indexes upgraders by source version and verifies the
// chain is sequential and gapless up to currentVersion.
func buildUpgraderChain(eventType string, currentVersion int, upgraders []EventUpgrader) (map[int]EventUpgrader, error) {
	chain := make(map[int]EventUpgrader, len(upgraders))
	for _, u := range upgraders {
		if u.TargetVersion() != u.SourceVersion()+1 {
			return nil, fmt.Errorf("upgrader must be sequential: got %d -> %d", u.SourceVersion(), u.TargetVersion())
		}
		chain[u.SourceVersion()] = u
	}

	for v := 1; v < currentVersion; v++ {
		if _, ok := chain[v]; !ok {
			return nil, fmt.Errorf("missing upgrader for version %d -> %d for event type %s", v, v+1, eventType)
		}
	}

	return chain, nil
}

// RegisterVersionedEvent registers an event type whose schema has evolved.
// versions maps each schema version to a prototype of the struct that
// deserializes it; upgraders must cover every step from 1 to currentVersion.
func (r *VersionRegistry) RegisterVersionedEvent(
	eventType string,
	currentVersion int,
	versions map[int]shared.DomainEvent,
	upgraders ...EventUpgrader,
) error {
	chain, err := buildUpgraderChain(eventType, currentVersion, upgraders)
	if err != nil {
		return err
	}

	if _, ok := versions[currentVersion]; !ok {
		return fmt.Errorf("versions map must include current version %d for event type %s", currentVersion, eventType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[eventType] = &VersionedEventConfig{
		EventType:      eventType,
		CurrentVersion: currentVersion,
		Upgraders:      chain,
		Versions:       versions,
	}

	return nil
}

// RegisterSimpleEvent registers an event type that is still on version 1.
// Most customer lifecycle events live here until their schema changes.
func (r *VersionRegistry) RegisterSimpleEvent(eventType string, eventInstance shared.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[eventType] = &VersionedEventConfig{
		EventType:      eventType,
		CurrentVersion: 1,
		Upgraders:      make(map[int]EventUpgrader),
		Versions: map[int]shared.DomainEvent{
			1: eventInstance,
		},
	}
}

// GetConfig returns the versioning config for an event type.
func (r *VersionRegistry) GetConfig(eventType string) (*VersionedEventConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[eventType]
	return config, ok
}

// GetCurrentVersion returns the latest schema version for an event type.
func (r *VersionRegistry) GetCurrentVersion(eventType string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[eventType]
	if !ok {
		return 0, false
	}
	return config.CurrentVersion, true
}

// IsRegistered checks if an event type is registered.
func (r *VersionRegistry) IsRegistered(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[eventType]
	return ok
}

// RegisteredTypes returns all registered event types.
func (r *VersionRegistry) RegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.configs))
	for t := range r.configs {
		types = append(types, t)
	}
	return types
}

// UpgradePayload walks the upgrade chain from fromVersion to the latest
// version. Payloads already at or past the current version pass through
// untouched.
func (r *VersionRegistry) UpgradePayload(eventType string, payload []byte, fromVersion int) ([]byte, int, error) {
	config, ok := r.GetConfig(eventType)
	if !ok {
		return nil, 0, fmt.Errorf("unknown event type: %s", eventType)
	}

	if fromVersion >= config.CurrentVersion {
		return payload, config.CurrentVersion, nil
	}

	currentPayload := payload
	var err error
	for v := fromVersion; v < config.CurrentVersion; v++ {
		upgrader, ok := config.Upgraders[v]
		if !ok {
			return nil, 0, fmt.Errorf("missing upgrader for version %d -> %d for event type %s", v, v+1, eventType)
		}
		currentPayload, err = upgrader.Upgrade(currentPayload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to upgrade from v%d to v%d: %w", v, v+1, err)
		}
	}

	return currentPayload, config.CurrentVersion, nil
}

// ExtractVersion reads the schema_version field from raw event JSON.
// Events written before versioning existed carry no field and are
// treated as version 1.
func ExtractVersion(payload []byte) int {
	var info struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(payload, &info); err != nil {
		return 1
	}
	if info.SchemaVersion == 0 {
		return 1
	}
	return info.SchemaVersion
}

// MapUpgrader implements EventUpgrader by decoding the payload to a map,
// applying a transform, and re-encoding. It stamps the target version into
// schema_version so chained upgraders see the right input.
type MapUpgrader struct {
	sourceVersion int
	targetVersion int
	transform     func(data map[string]any) (map[string]any, error)
}

func NewMapUpgrader(source, target int, transform func(data map[string]any) (map[string]any, error)) *MapUpgrader {
	return &MapUpgrader{
		sourceVersion: source,
		targetVersion: target,
		transform:     transform,
	}
}

func (u *MapUpgrader) SourceVersion() int {
	return u.sourceVersion
}

func (u *MapUpgrader) TargetVersion() int {
	return u.targetVersion
}

func (u *MapUpgrader) Upgrade(payload []byte) ([]byte, error) {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	transformed, err := u.transform(data)
	if err != nil {
		return nil, fmt.Errorf("transform failed: %w", err)
	}

	transformed["schema_version"] = u.targetVersion

	result, err := json.Marshal(transformed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transformed payload: %w", err)
	}

	return result, nil
}

var _ EventUpgrader = (*MapUpgrader)(nil)
