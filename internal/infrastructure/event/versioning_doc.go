package event

/*
Event Schema Versioning
=======================

Events sit in the outbox table and in subscriber queues long after the code
that produced them has moved on. The versioning layer lets deserialization
upgrade an old payload to the current schema transparently, so handlers only
ever see the latest struct shape.

Moving parts:

  - BaseDomainEvent.Version serializes as schema_version; payloads written
    before versioning existed have no field and are treated as version 1.
  - EventUpgrader transforms a payload one step (v1->v2, v2->v3, ...).
    Chains must be sequential; the registry rejects gaps at registration.
  - VersionRegistry holds, per event type, the current version, a struct
    prototype for every supported version, and the upgrader chain.
  - VersionedSerializer wraps the registry and is a drop-in replacement for
    EventSerializer in the outbox processor.

Evolving a schema
-----------------

CustomerBlacklisted went through this lifecycle. v1 carried only a reason;
v2 attributed the action to a back-office user:

	type CustomerBlacklistedEventV2 struct {
	    shared.BaseDomainEvent
	    Reason        string `json:"reason"`
	    BlacklistedBy string `json:"blacklisted_by"`
	}

	v1ToV2 := NewMapUpgrader(1, 2, func(data map[string]any) (map[string]any, error) {
	    data["blacklisted_by"] = "unattributed"
	    return data, nil
	})

	err := serializer.RegisterVersioned(
	    "CustomerBlacklisted",
	    2,
	    map[int]shared.DomainEvent{
	        1: &customer.CustomerBlacklistedEvent{},
	        2: &customer.CustomerBlacklistedEventV2{},
	    },
	    v1ToV2,
	)

Events still on version 1 (the overwhelming majority) register with
serializer.Register(eventType, prototype) and skip all of the above.

For mechanical transformations, CommonUpgraders covers the usual cases
without a hand-written transform: AddField, RemoveField, RenameField,
TransformField, WrapInObject, UnwrapFromObject.

Backfilling stored payloads
---------------------------

EventMigrator rewrites historical payloads in bulk, typically after a
schema bump, so the outbox table does not accumulate an unbounded mix of
versions:

	migrator := NewEventMigrator(serializer, logger)
	analysis, _ := migrator.AnalyzePayloads("CustomerBlacklisted", payloads)
	result, _ := migrator.MigratePayloads(ctx, "CustomerBlacklisted", payloads)

AnalyzePayloads reports the version distribution before touching anything;
MigratePayloads honors context cancellation and keeps failed payloads
untouched alongside their error. MigrationStats aggregates per-type counts
and durations for the metrics endpoint.

Rules of thumb
--------------

  - Bump the version for any rename, removal, type change, or new required
    field. Purely additive optional fields can stay on the same version.
  - An upgrader handles exactly one transition and must be deterministic;
    default missing fields instead of failing.
  - Deploy the upgrader before any producer emits the new version, then run
    the batch migration.
  - Never rename an event type. Routing keys on the type string; if the name
    has to change, register a new type and retire the old one.
*/
