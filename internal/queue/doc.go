// Package queue persists redaction jobs in SQLite and guards them while a
// batch runs.
//
// Each Entry pairs a source video with the target filename built from its
// study metadata. The Store rejects duplicate sources and duplicate targets,
// keeps entries in creation order, and records per-entry status and frame
// progress so a later CLI invocation can show what a batch did.
//
// While a batch is running the queue is frozen: Freeze takes an exclusive
// file lock next to the database, and every mutating call fails with
// ErrFrozen until the batch releases it. Status and progress updates made by
// the batch itself are not affected.
//
// The database is transient job state. Schema changes bump schemaVersion in
// schema.go; users clear the database to adopt the new schema.
package queue
