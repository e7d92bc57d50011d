// Package database provides the SQLite download ledger of irscrape.
//
// The ledger, CrawlDB, records:
//   - every file written to the data directory, keyed by its remote URL,
//     with its on-disk path, size and blake2b digest
//   - every completed search page with its window and counters
//
// The checkpoint file remains the only resume state; the ledger lets the
// downloader tell an earlier download of the same URL from a different
// compound whose sanitised name happens to collide, and feeds the
// report command.
//
// SQLite is used through modernc.org/sqlite, which needs no cgo, in WAL
// mode with a single writer connection.
package database
