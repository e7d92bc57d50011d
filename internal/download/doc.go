// Package download fetches remote files into the flat data directory.
//
// Files are streamed to a hidden temporary file next to the destination
// and renamed into place only after the whole body was written and synced,
// so a failed or interrupted transfer never leaves a file that looks
// complete. Dedup computes collision-free names, SanitizeFilename turns a
// compound name into a portable file name stem, and Downloader decides per
// task whether to fetch, skip or write to a disambiguated name.
package download
