// Package signature computes the two digests shutter keeps for every image:
// an exact BLAKE3 content hash of the file bytes and a perceptual hash of the
// decoded pixels. Files that share a perceptual signature are treated as
// duplicates even when their bytes differ (re-encodes, stripped metadata).
package signature
