// Package services defines shared utilities consumed by the scanner, the
// duplicate resolver, and the placement pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and the file under
//     work for logging.
//   - Structured error markers plus the Wrap helper that give every failure a
//     consistent classification (operator action vs transient).
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
