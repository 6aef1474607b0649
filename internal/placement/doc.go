// Package placement moves photos into the canonical Year/Mon layout.
//
// A Pipeline takes each source through four steps: a duplicate check against
// the index, capture time derivation from EXIF or the file name, destination
// resolution with a one-second collision probe, and a no-overwrite commit that
// records an audit note in the file and updates the index. Duplicates are
// routed to the Trash instead of being renamed. Every mutation is skipped in
// dry-run mode while the plan is still computed and logged.
package placement
