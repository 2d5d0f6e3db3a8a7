package main

import (
	"database/sql"
	"fmt"

	"github.com/crm/backend/internal/infrastructure/event"
	"go.uber.org/zap"
)

// runEventsCommand inspects or rewrites outbox payloads after an event
// schema bump. analyze is read-only; upgrade rewrites stale payloads in a
// single transaction and requires -confirm.
func runEventsCommand(db *sql.DB, args []string, log *zap.Logger) {
	if len(args) < 2 {
		log.Fatal("Usage: migrate events <analyze|upgrade> <event-type>")
	}
	action, eventType := args[0], args[1]

	serializer := event.NewVersionedSerializer(log)
	if err := event.RegisterVersionedEvents(serializer); err != nil {
		log.Fatal("Failed to register events", zap.Error(err))
	}
	migrator := event.NewEventMigrator(serializer, log)

	if err := migrator.ValidateUpgradeChain(eventType); err != nil {
		log.Fatal("Upgrade chain is incomplete", zap.String("event_type", eventType), zap.Error(err))
	}

	switch action {
	case "analyze":
		runEventsAnalyze(db, migrator, eventType, log)
	case "upgrade":
		if !hasConfirmFlag(args[2:]) {
			log.Fatal("Upgrade cancelled. Use 'migrate events upgrade <event-type> -confirm' to confirm.")
		}
		runEventsUpgrade(db, serializer, eventType, log)
	default:
		log.Fatal("Unknown events action", zap.String("action", action))
	}
}

func runEventsAnalyze(db *sql.DB, migrator *event.EventMigrator, eventType string, log *zap.Logger) {
	payloads, err := loadOutboxPayloads(db, eventType)
	if err != nil {
		log.Fatal("Failed to load outbox payloads", zap.Error(err))
	}

	analysis, err := migrator.AnalyzePayloads(eventType, payloads)
	if err != nil {
		log.Fatal("Analysis failed", zap.Error(err))
	}

	log.Info("Outbox payload analysis",
		zap.String("event_type", analysis.EventType),
		zap.Int("current_version", analysis.CurrentVersion),
		zap.Int("total", analysis.TotalEvents),
		zap.Int("up_to_date", analysis.UpToDate),
		zap.Int("needs_migration", analysis.NeedsMigration),
	)
	for version, count := range analysis.VersionCounts {
		fmt.Printf("  v%d: %d payload(s)\n", version, count)
	}
}

func runEventsUpgrade(db *sql.DB, serializer *event.VersionedSerializer, eventType string, log *zap.Logger) {
	tx, err := db.Begin()
	if err != nil {
		log.Fatal("Failed to begin transaction", zap.Error(err))
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT id, payload FROM outbox_events WHERE event_type = $1 FOR UPDATE`, eventType)
	if err != nil {
		log.Fatal("Failed to load outbox payloads", zap.Error(err))
	}

	type outboxRow struct {
		id      string
		payload []byte
	}
	var stale []outboxRow
	currentVersion, _ := serializer.GetCurrentVersion(eventType)
	total := 0
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.payload); err != nil {
			rows.Close()
			log.Fatal("Failed to scan outbox row", zap.Error(err))
		}
		total++
		if event.ExtractVersion(row.payload) < currentVersion {
			stale = append(stale, row)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		log.Fatal("Failed to read outbox rows", zap.Error(err))
	}
	rows.Close()

	upgraded := 0
	for _, row := range stale {
		newPayload, _, err := serializer.UpgradePayloadOnly(eventType, row.payload)
		if err != nil {
			log.Fatal("Failed to upgrade payload",
				zap.String("outbox_id", row.id), zap.Error(err))
		}
		if _, err := tx.Exec(
			`UPDATE outbox_events SET payload = $1 WHERE id = $2`, newPayload, row.id); err != nil {
			log.Fatal("Failed to store upgraded payload",
				zap.String("outbox_id", row.id), zap.Error(err))
		}
		upgraded++
	}

	if err := tx.Commit(); err != nil {
		log.Fatal("Failed to commit upgrades", zap.Error(err))
	}

	log.Info("Outbox payloads upgraded",
		zap.String("event_type", eventType),
		zap.Int("total", total),
		zap.Int("upgraded", upgraded),
		zap.Int("already_current", total-upgraded),
	)
}

func loadOutboxPayloads(db *sql.DB, eventType string) ([][]byte, error) {
	rows, err := db.Query(`SELECT payload FROM outbox_events WHERE event_type = $1`, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	return payloads, rows.Err()
}
