// Package services defines shared utilities consumed by the redaction runner
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue entry IDs, batch IDs, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent queue statuses (failed vs partial).
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform across the batch.
package services
