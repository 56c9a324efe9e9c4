// Package store provides the SQLite-backed preference backend.
//
// Preferences are typed key/value entries:
//   - scalar: a single string
//   - list: an ordered list of strings
//   - maps: an ordered list of ordered tag maps
//
// Values are stored as JSON TEXT together with their kind. Reading a key
// with the wrong accessor is an error (ErrKindMismatch), never a silent
// conversion. Tag maps keep their key order through the round trip.
//
// Writes notify subscribers synchronously after the change is committed.
// Update groups several writes into one transaction with one notification
// pass, which is how the catalog persists its parallel lists.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
