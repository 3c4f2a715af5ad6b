// Package services defines shared utilities consumed by the processor and
// the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, tile indexes, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run statuses (failed vs aborted).
//
// Use these helpers when wiring new processing steps so error handling and
// observability stay uniform across the pipeline.
package services
