// Package filters evaluates substring include/exclude rules against directory
// paths and file names, and compiles the same rules to parameterized SQL
// predicates for index queries.
package filters
