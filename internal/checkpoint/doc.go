// Package checkpoint persists the last fully processed molecular mass so
// that an interrupted crawl resumes at page granularity.
//
// The file holds a single decimal number followed by a newline. Save
// writes a temporary file in the same directory, syncs it and renames it
// over the old one, so a reader never sees a torn value.
package checkpoint
