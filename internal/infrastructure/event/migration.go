package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventMigrator upgrades stored event payloads to their current schema
// version. It is meant for batch jobs that sweep outbox entries or other
// persisted events after a new version of an event type ships.
type EventMigrator struct {
	serializer *VersionedSerializer
	logger     *zap.Logger
}

func NewEventMigrator(serializer *VersionedSerializer, logger *zap.Logger) *EventMigrator {
	return &EventMigrator{serializer: serializer, logger: logger}
}

// MigrationResult summarizes one batch migration run.
type MigrationResult struct {
	EventType      string
	TotalProcessed int
	Upgraded       int
	AlreadyCurrent int
	Failed         int
	FailedPayloads []FailedMigration
	StartedAt      time.Time
	CompletedAt    time.Time
	FromVersion    int
	ToVersion      int
}

// FailedMigration records a payload that could not be upgraded.
type FailedMigration struct {
	Payload []byte
	Error   string
	Version int
}

func (r *MigrationResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// MigratePayloads upgrades each payload in the batch to the current version
// of eventType. Payloads already at the current version are counted but left
// alone. A failed payload does not abort the batch; it is collected in the
// result so the caller can park or retry it. Cancellation stops the sweep and
// returns the partial result together with ctx.Err().
func (m *EventMigrator) MigratePayloads(ctx context.Context, eventType string, payloads [][]byte) (*MigrationResult, error) {
	currentVersion, ok := m.serializer.GetCurrentVersion(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	result := &MigrationResult{
		EventType:      eventType,
		ToVersion:      currentVersion,
		StartedAt:      time.Now(),
		FailedPayloads: make([]FailedMigration, 0),
	}

	for _, payload := range payloads {
		select {
		case <-ctx.Done():
			result.CompletedAt = time.Now()
			return result, ctx.Err()
		default:
		}
		m.migrateOne(result, eventType, currentVersion, payload)
	}
	result.CompletedAt = time.Now()

	if m.logger != nil && result.Failed > 0 {
		m.logger.Warn("event payload migration completed with failures",
			zap.String("event_type", eventType),
			zap.Int("upgraded", result.Upgraded),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

func (m *EventMigrator) migrateOne(result *MigrationResult, eventType string, currentVersion int, payload []byte) {
	result.TotalProcessed++

	version := ExtractVersion(payload)
	if result.FromVersion == 0 || version < result.FromVersion {
		result.FromVersion = version
	}
	if version >= currentVersion {
		result.AlreadyCurrent++
		return
	}

	if _, _, err := m.serializer.UpgradePayloadOnly(eventType, payload); err != nil {
		result.Failed++
		result.FailedPayloads = append(result.FailedPayloads, FailedMigration{
			Payload: payload,
			Error:   err.Error(),
			Version: version,
		})
		return
	}
	result.Upgraded++
}

// ValidateUpgradeChain verifies that an upgrader exists for every version
// between 1 and the current version of eventType.
func (m *EventMigrator) ValidateUpgradeChain(eventType string) error {
	config, ok := m.serializer.GetVersionRegistry().GetConfig(eventType)
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	for v := 1; v < config.CurrentVersion; v++ {
		if _, ok := config.Upgraders[v]; !ok {
			return fmt.Errorf("missing upgrader for version %d -> %d", v, v+1)
		}
	}
	return nil
}

// EventVersionAnalysis describes the version spread of a payload set.
type EventVersionAnalysis struct {
	EventType      string
	CurrentVersion int
	VersionCounts  map[int]int
	OldestVersion  int
	NewestVersion  int
	TotalEvents    int
	NeedsMigration int
	UpToDate       int
}

// AnalyzePayloads inspects a batch of payloads without modifying them,
// reporting how many are stale per version. Run this before MigratePayloads
// to size the job.
func (m *EventMigrator) AnalyzePayloads(eventType string, payloads [][]byte) (*EventVersionAnalysis, error) {
	currentVersion, ok := m.serializer.GetCurrentVersion(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	analysis := &EventVersionAnalysis{
		EventType:      eventType,
		CurrentVersion: currentVersion,
		VersionCounts:  make(map[int]int),
		OldestVersion:  -1,
		NewestVersion:  -1,
		TotalEvents:    len(payloads),
	}
	for _, payload := range payloads {
		version := ExtractVersion(payload)
		analysis.VersionCounts[version]++
		if analysis.OldestVersion == -1 || version < analysis.OldestVersion {
			analysis.OldestVersion = version
		}
		if version > analysis.NewestVersion {
			analysis.NewestVersion = version
		}
		if version < currentVersion {
			analysis.NeedsMigration++
		} else {
			analysis.UpToDate++
		}
	}
	return analysis, nil
}

// MigrationPlan lists the upgrade steps needed to bring an event type from
// one version to the current one.
type MigrationPlan struct {
	EventType    string
	FromVersion  int
	ToVersion    int
	UpgradeSteps []UpgradeStep
}

type UpgradeStep struct {
	FromVersion int
	ToVersion   int
	HasUpgrader bool
}

func (m *EventMigrator) CreateMigrationPlan(eventType string, fromVersion int) (*MigrationPlan, error) {
	config, ok := m.serializer.GetVersionRegistry().GetConfig(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	plan := &MigrationPlan{
		EventType:    eventType,
		FromVersion:  fromVersion,
		ToVersion:    config.CurrentVersion,
		UpgradeSteps: []UpgradeStep{},
	}
	for v := fromVersion; v < config.CurrentVersion; v++ {
		_, hasUpgrader := config.Upgraders[v]
		plan.UpgradeSteps = append(plan.UpgradeSteps, UpgradeStep{
			FromVersion: v,
			ToVersion:   v + 1,
			HasUpgrader: hasUpgrader,
		})
	}
	return plan, nil
}

// IsValid reports whether every step in the plan has a registered upgrader.
func (p *MigrationPlan) IsValid() bool {
	for _, step := range p.UpgradeSteps {
		if !step.HasUpgrader {
			return false
		}
	}
	return true
}

// CommonUpgraders builds upgraders for the schema changes that come up most
// often when an event type evolves. Each method produces a one-version step
// from sourceVersion to sourceVersion+1.
type CommonUpgraders struct{}

func (CommonUpgraders) step(sourceVersion int, mutate func(map[string]any)) *MapUpgrader {
	return NewMapUpgrader(sourceVersion, sourceVersion+1, func(data map[string]any) (map[string]any, error) {
		mutate(data)
		return data, nil
	})
}

// AddField adds fieldName with a default value.
func (u CommonUpgraders) AddField(sourceVersion int, fieldName string, defaultValue any) *MapUpgrader {
	return u.step(sourceVersion, func(data map[string]any) {
		data[fieldName] = defaultValue
	})
}

// RemoveField drops fieldName.
func (u CommonUpgraders) RemoveField(sourceVersion int, fieldName string) *MapUpgrader {
	return u.step(sourceVersion, func(data map[string]any) {
		delete(data, fieldName)
	})
}

// RenameField moves the value of oldName to newName. Missing fields are left
// untouched.
func (u CommonUpgraders) RenameField(sourceVersion int, oldName, newName string) *MapUpgrader {
	return u.step(sourceVersion, func(data map[string]any) {
		if val, ok := data[oldName]; ok {
			data[newName] = val
			delete(data, oldName)
		}
	})
}

// TransformField applies transform to the value of fieldName if present.
func (u CommonUpgraders) TransformField(sourceVersion int, fieldName string, transform func(any) any) *MapUpgrader {
	return u.step(sourceVersion, func(data map[string]any) {
		if val, ok := data[fieldName]; ok {
			data[fieldName] = transform(val)
		}
	})
}

// WrapInObject nests the value of fieldName under wrapperKey.
func (u CommonUpgraders) WrapInObject(sourceVersion int, fieldName, wrapperKey string) *MapUpgrader {
	return u.step(sourceVersion, func(data map[string]any) {
		if val, ok := data[fieldName]; ok {
			data[fieldName] = map[string]any{wrapperKey: val}
		}
	})
}

// UnwrapFromObject reverses WrapInObject, lifting wrapperKey's value back up
// to fieldName.
func (u CommonUpgraders) UnwrapFromObject(sourceVersion int, fieldName, wrapperKey string) *MapUpgrader {
	return u.step(sourceVersion, func(data map[string]any) {
		obj, ok := data[fieldName].(map[string]any)
		if !ok {
			return
		}
		if unwrapped, ok := obj[wrapperKey]; ok {
			data[fieldName] = unwrapped
		}
	})
}

// CopyPayload deep-copies a JSON payload by round-tripping it through a map.
func CopyPayload(payload []byte) ([]byte, error) {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	return json.Marshal(data)
}

// MigrationStats accumulates migration counters per event type. Safe for
// concurrent use.
type MigrationStats struct {
	mu    sync.RWMutex
	stats map[string]*EventMigrationStats
}

type EventMigrationStats struct {
	EventType           string
	TotalMigrated       int64
	TotalFailed         int64
	LastMigratedAt      time.Time
	AverageDurationMs   float64
	MigrationsByVersion map[string]int64 // "v1->v2" => count
}

func (s *EventMigrationStats) clone() *EventMigrationStats {
	out := *s
	out.MigrationsByVersion = make(map[string]int64, len(s.MigrationsByVersion))
	for k, v := range s.MigrationsByVersion {
		out.MigrationsByVersion[k] = v
	}
	return &out
}

func NewMigrationStats() *MigrationStats {
	return &MigrationStats{stats: make(map[string]*EventMigrationStats)}
}

// RecordMigration records one upgrade attempt. Duration feeds a rolling
// average over successful migrations only.
func (s *MigrationStats) RecordMigration(eventType string, fromVersion, toVersion int, durationMs float64, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.stats[eventType]
	if !ok {
		stats = &EventMigrationStats{
			EventType:           eventType,
			MigrationsByVersion: make(map[string]int64),
		}
		s.stats[eventType] = stats
	}

	if success {
		stats.TotalMigrated++
		stats.LastMigratedAt = time.Now()
		n := float64(stats.TotalMigrated)
		stats.AverageDurationMs = stats.AverageDurationMs*(n-1)/n + durationMs/n
	} else {
		stats.TotalFailed++
	}
	stats.MigrationsByVersion[fmt.Sprintf("v%d->v%d", fromVersion, toVersion)]++
}

// GetStats returns a copy of the counters for eventType.
func (s *MigrationStats) GetStats(eventType string) (*EventMigrationStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[eventType]
	if !ok {
		return nil, false
	}
	return stats.clone(), true
}
