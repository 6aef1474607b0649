// Package main hosts the shutter CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration, opens the per-run logger and
// the index, and hands off to the internal packages: scanner for indexing,
// duplicates for grouping and pruning, and placement for moving photos into
// the canonical layout. Teardown runs in reverse on exit or interrupt so the
// exiftool process, the index lock, and the log file are always released.
package main
