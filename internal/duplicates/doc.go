// Package duplicates groups indexed photos that share a perceptual signature.
//
// Find reconciles each group against the filesystem, dropping index rows for
// files that no longer exist, and picks the copy to keep with a KeepPolicy.
// Prune performs the same reconciliation over the whole index, and Discard
// sends every non-kept copy to the trash.
package duplicates
