// Package scanner walks photo directories and brings the index up to date.
//
// The walk is depth-first over an explicit stack, visiting subdirectories in
// lexical order. For each directory the scanner loads an index.Cache so
// already-indexed files cost a map lookup rather than a decode; only new or
// incomplete files are signed and upserted. Undecodable files are counted and
// skipped without stopping the scan.
package scanner
