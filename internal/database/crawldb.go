package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/irscrape/internal/model"
)

// FileName is the ledger file created inside the ledger directory.
const FileName = "irscrape.db"

// timeLayout stores UTC timestamps at fixed width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// CrawlDB is the SQLite download ledger.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ReadOnlyOptions opens an existing ledger without creating one.
func ReadOnlyOptions() Options {
	return Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	}
}

// Open opens or creates the ledger in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// wrapping os.ErrNotExist is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("ledger not found at %s: %w", dbPath, os.ErrNotExist)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check ledger path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite allows one writer; downloads record from several goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the ledger file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per remote file; re-downloads update the row.
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_url TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		compound TEXT NOT NULL,
		path TEXT NOT NULL,
		bytes INTEGER NOT NULL DEFAULT 0,
		digest TEXT,
		downloaded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_path ON downloads(path);
	CREATE INDEX IF NOT EXISTS idx_downloads_compound ON downloads(compound);

	-- One row per completed search page.
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		window_start REAL NOT NULL,
		window_width REAL NOT NULL,
		next_start REAL NOT NULL,
		entries INTEGER NOT NULL,
		resolved INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		downloaded INTEGER NOT NULL,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_start ON pages(window_start);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RecordDownload inserts or updates the record for rec.RemoteURL.
// A zero DownloadedAt is set to the current time.
func (cdb *CrawlDB) RecordDownload(ctx context.Context, rec *model.DownloadRecord) error {
	if rec.DownloadedAt.IsZero() {
		rec.DownloadedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO downloads (remote_url, kind, compound, path, bytes, digest, downloaded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(remote_url) DO UPDATE SET
		kind = excluded.kind,
		compound = excluded.compound,
		path = excluded.path,
		bytes = excluded.bytes,
		digest = excluded.digest,
		downloaded_at = excluded.downloaded_at
	`

	_, err := cdb.db.ExecContext(ctx, query,
		rec.RemoteURL,
		string(rec.Kind),
		rec.Compound,
		rec.Path,
		rec.Bytes,
		rec.Digest,
		rec.DownloadedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

const downloadColumns = `id, remote_url, kind, compound, path, bytes, digest, downloaded_at`

// FindByURL returns the record for remoteURL, or nil if there is none.
func (cdb *CrawlDB) FindByURL(ctx context.Context, remoteURL string) (*model.DownloadRecord, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE remote_url = ?`
	rec, err := scanDownload(cdb.db.QueryRowContext(ctx, query, remoteURL))
	if err != nil {
		return nil, fmt.Errorf("failed to find download by URL: %w", err)
	}
	return rec, nil
}

// FindByPath returns the most recent record written to path, or nil if
// there is none.
func (cdb *CrawlDB) FindByPath(ctx context.Context, path string) (*model.DownloadRecord, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE path = ?
	ORDER BY downloaded_at DESC, id DESC LIMIT 1`
	rec, err := scanDownload(cdb.db.QueryRowContext(ctx, query, path))
	if err != nil {
		return nil, fmt.Errorf("failed to find download by path: %w", err)
	}
	return rec, nil
}

// RecentDownloads returns up to limit records, newest first.
func (cdb *CrawlDB) RecentDownloads(ctx context.Context, limit int) ([]model.DownloadRecord, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads
	ORDER BY downloaded_at DESC, id DESC LIMIT ?`

	rows, err := cdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var results []model.DownloadRecord
	for rows.Next() {
		rec, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDownload reads one downloads row. sql.ErrNoRows yields nil, nil.
func scanDownload(row rowScanner) (*model.DownloadRecord, error) {
	var rec model.DownloadRecord
	var kind string
	var digest sql.NullString
	var downloadedAt string

	err := row.Scan(
		&rec.ID,
		&rec.RemoteURL,
		&kind,
		&rec.Compound,
		&rec.Path,
		&rec.Bytes,
		&digest,
		&downloadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Kind = model.FileKind(kind)
	rec.Digest = digest.String
	rec.DownloadedAt = parseTimestamp(downloadedAt)
	return &rec, nil
}

// RecordPage appends a completed search page.
func (cdb *CrawlDB) RecordPage(ctx context.Context, rec *model.PageRecord) error {
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO pages (window_start, window_width, next_start, entries, resolved, skipped, downloaded, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := cdb.db.ExecContext(ctx, query,
		rec.WindowStart,
		rec.WindowWidth,
		rec.NextStart,
		rec.Entries,
		rec.Resolved,
		rec.Skipped,
		rec.Downloaded,
		rec.FetchedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record page: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		rec.ID = id
	}
	return nil
}

// RecentPages returns up to limit page records, newest first.
func (cdb *CrawlDB) RecentPages(ctx context.Context, limit int) ([]model.PageRecord, error) {
	query := `
	SELECT id, window_start, window_width, next_start, entries, resolved, skipped, downloaded, fetched_at
	FROM pages
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := cdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var results []model.PageRecord
	for rows.Next() {
		var rec model.PageRecord
		var fetchedAt string

		err := rows.Scan(
			&rec.ID,
			&rec.WindowStart,
			&rec.WindowWidth,
			&rec.NextStart,
			&rec.Entries,
			&rec.Resolved,
			&rec.Skipped,
			&rec.Downloaded,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		rec.FetchedAt = parseTimestamp(fetchedAt)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// Summary aggregates the ledger.
func (cdb *CrawlDB) Summary(ctx context.Context) (*model.LedgerSummary, error) {
	s := &model.LedgerSummary{ByKind: make(map[model.FileKind]int)}

	var first, last sql.NullString
	err := cdb.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COUNT(DISTINCT compound), COALESCE(SUM(bytes), 0),
		MIN(downloaded_at), MAX(downloaded_at)
	FROM downloads
	`).Scan(&s.Downloads, &s.Compounds, &s.Bytes, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise downloads: %w", err)
	}
	s.FirstDownload = parseTimestamp(first.String)
	s.LastDownload = parseTimestamp(last.String)

	rows, err := cdb.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM downloads GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count kinds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		s.ByKind[model.FileKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = cdb.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(MAX(next_start), 0) FROM pages
	`).Scan(&s.Pages, &s.HighestMass)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise pages: %w", err)
	}

	return s, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses s with the first matching format, or returns the
// zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
