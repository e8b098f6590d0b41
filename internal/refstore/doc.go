// Package refstore provides durable storage for conversation references.
//
// # Architecture
//
// The Store interface is implemented by four backends selected at startup:
//
//   - RedisStore: one hash record per conversation in a Redis instance
//   - FileStore: a single JSON file in the legacy nested-object format
//   - SQLiteStore: a single-table SQLite database
//   - MemoryStore: an in-process map for tests and ephemeral runs
//
// All backends share the same semantics: last-write-wins upserts keyed by
// conversation id, copy-out reads, idempotent deletes, and a degrade-on-read
// failure policy (a flaky engine makes lookups come back empty rather than
// erroring, while writes always surface failures).
//
// # Serialization
//
// Two wire formats exist. The flat string-record codec (EncodeRecord /
// DecodeRecord) backs the hash- and row-shaped engines; the legacy
// nested-object JSON schema backs the file store and the migration/export
// pipeline. Both round-trip the full reference, with the tri-state group
// flag encoded as ""/"true"/"false".
package refstore
