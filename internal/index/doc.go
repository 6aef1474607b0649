// Package index persists the photo index in SQLite and serves the queries the
// scanner, duplicate resolver, and placement pipeline depend on.
//
// A Store owns the database handle and an exclusive lock file next to it, so
// only one shutter process mutates an index at a time. Paths are stored in
// their canonical key form (see fileutil.PathKey); callers never need to try
// escaped or alternate spellings when looking a file up.
//
// Cache is a read-through snapshot of the rows below one directory. The
// scanner rebuilds it for each directory it visits; the Store remains the
// system of record.
package index
