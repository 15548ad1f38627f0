// Package store provides SQLite-backed record storage and a search audit
// log for linql.
//
// Records of a catalog type are stored as JSON documents, one row per
// record, keyed by the type's qualified name:
//   - records: the data a search runs against, in insertion order
//   - searches: one audit entry per executed search
//
// # Ordering
//
// Reads order by seq INTEGER (insertion order), never by timestamps, so a
// search over the same rows always sees them in the same order. Audit
// entries use UUIDv7 identifiers, which sort by creation time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Stored documents round-trip through catalog.Convert, so a record read
// back has exactly the runtime representation it had when written.
package store
