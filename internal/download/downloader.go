package download

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/irscrape/internal/model"
)

// chunkSize is the buffer used to copy a response body to disk.
const chunkSize = 32 * 1024

// partSuffix marks in-progress temporary files.
const partSuffix = ".part"

// Opener opens the body of a remote file for reading.
// fetch.Fetcher implements it.
type Opener interface {
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Ledger remembers which remote URL was written to which path.
// database.CrawlDB implements it. Both lookups return nil, nil when no
// record matches.
type Ledger interface {
	FindByURL(ctx context.Context, remoteURL string) (*model.DownloadRecord, error)
	FindByPath(ctx context.Context, path string) (*model.DownloadRecord, error)
	RecordDownload(ctx context.Context, rec *model.DownloadRecord) error
}

// Downloader streams remote files into local paths with deduplication.
type Downloader struct {
	// opener fetches remote bodies.
	opener Opener

	// ledger is optional; without it a file already present at the
	// requested path is always taken as already downloaded.
	ledger Ledger

	// repeat overwrites existing files instead of skipping them.
	repeat bool

	logger *slog.Logger

	// mu guards inflight and byURL.
	mu sync.Mutex

	// inflight maps destinations of transfers in progress to the transfer,
	// so concurrent tasks with the same name never write the same path.
	inflight map[string]*transfer

	// byURL maps remote URLs of transfers in progress to the transfer.
	byURL map[string]*transfer
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithLedger attaches a download ledger.
func WithLedger(l Ledger) Option {
	return func(d *Downloader) {
		d.ledger = l
	}
}

// WithRepeatDownload makes the downloader overwrite existing files.
func WithRepeatDownload(repeat bool) Option {
	return func(d *Downloader) {
		d.repeat = repeat
	}
}

// WithLogger sets the logger for download events.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// New creates a Downloader that reads bodies through opener.
func New(opener Opener, opts ...Option) *Downloader {
	d := &Downloader{
		opener:   opener,
		inflight: make(map[string]*transfer),
		byURL:    make(map[string]*transfer),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Download runs one task to a terminal outcome. It never panics on remote
// or disk failures; they are reported through the result's Outcome and Err.
func (d *Downloader) Download(ctx context.Context, task model.DownloadTask) model.DownloadResult {
	result := model.DownloadResult{Task: task}

	dest, existing, err := d.reserve(ctx, task)
	if err != nil {
		result.Outcome = model.OutcomeFailed
		result.Err = &DownloadError{URL: task.RemoteURL, Path: task.DestinationPath, Err: err}
		d.logger.Warn("download failed", "url", task.RemoteURL, "error", err)
		return result
	}
	if existing != "" {
		result.Outcome = model.OutcomeSkipped
		result.Path = existing
		d.logger.Info("repeat file", "path", existing, "url", task.RemoteURL)
		return result
	}
	defer d.release(dest)

	n, digest, err := d.transfer(ctx, task.RemoteURL, dest)
	if err != nil {
		result.Outcome = model.OutcomeFailed
		result.Err = &DownloadError{URL: task.RemoteURL, Path: dest, Err: err}
		d.logger.Warn("download failed", "url", task.RemoteURL, "path", dest, "error", err)
		return result
	}

	result.Outcome = model.OutcomeDownloaded
	result.Path = dest
	result.Bytes = n
	result.Digest = digest
	d.logger.Info("downloaded", "path", dest, "bytes", n)

	if d.ledger != nil {
		rec := &model.DownloadRecord{
			RemoteURL: task.RemoteURL,
			Kind:      task.Kind,
			Compound:  task.Compound,
			Path:      dest,
			Bytes:     n,
			Digest:    digest,
		}
		if err := d.ledger.RecordDownload(ctx, rec); err != nil {
			d.logger.Warn("failed to record download", "path", dest, "error", err)
		}
	}

	return result
}

// transfer is one download in progress. done is closed when it ends,
// successfully or not.
type transfer struct {
	url  string
	done chan struct{}
}

// reserve decides where a task goes. It returns either a destination to
// write to (reserved until release) or the path of an existing copy that
// makes the transfer unnecessary. A task that depends on a transfer still
// in progress waits for it and decides again, so the outcome is the same
// as if the tasks had run one after another.
func (d *Downloader) reserve(ctx context.Context, task model.DownloadTask) (dest, existing string, err error) {
	for {
		dest, existing, wait, err := d.tryReserve(ctx, task)
		if err != nil || wait == nil {
			return dest, existing, err
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
}

// tryReserve makes one reservation attempt. A non-nil wait channel means
// the decision depends on a transfer in progress.
func (d *Downloader) tryReserve(ctx context.Context, task model.DownloadTask) (dest, existing string, wait <-chan struct{}, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	requested := task.DestinationPath

	if t, busy := d.byURL[task.RemoteURL]; busy {
		return "", "", t.done, nil
	}

	if d.repeat {
		if t, busy := d.inflight[requested]; busy {
			return "", "", t.done, nil
		}
		return d.claimLocked(requested, task.RemoteURL), "", nil, nil
	}

	if d.ledger != nil {
		rec, err := d.ledger.FindByURL(ctx, task.RemoteURL)
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to look up ledger: %w", err)
		}
		if rec != nil {
			ok, err := exists(rec.Path)
			if err != nil {
				return "", "", nil, err
			}
			if ok {
				return "", rec.Path, nil, nil
			}
		}
	}

	if t, busy := d.inflight[requested]; busy {
		// Without a ledger a finished file at the requested path counts as
		// this task's copy, so wait for it to land or fail.
		if d.ledger == nil {
			return "", "", t.done, nil
		}
	} else {
		ok, err := exists(requested)
		if err != nil {
			return "", "", nil, err
		}
		if !ok {
			return d.claimLocked(requested, task.RemoteURL), "", nil, nil
		}
		if !d.ownedByOther(ctx, requested, task.RemoteURL) {
			return "", requested, nil, nil
		}
	}

	unique, err := dedupWith(requested, d.takenLocked)
	if err != nil {
		return "", "", nil, err
	}
	return d.claimLocked(unique, task.RemoteURL), "", nil, nil
}

// ownedByOther reports whether the ledger says the file at path came from
// a different remote URL. Without a record nothing is known, and the file
// is taken to be an earlier download of the same compound.
func (d *Downloader) ownedByOther(ctx context.Context, path, remoteURL string) bool {
	if d.ledger == nil {
		return false
	}
	owner, err := d.ledger.FindByPath(ctx, path)
	if err != nil {
		d.logger.Warn("failed to look up ledger", "path", path, "error", err)
		return false
	}
	if owner == nil {
		return false
	}
	return owner.RemoteURL != remoteURL
}

// claimLocked reserves path for remoteURL. d.mu must be held.
func (d *Downloader) claimLocked(path, remoteURL string) string {
	t := &transfer{url: remoteURL, done: make(chan struct{})}
	d.inflight[path] = t
	d.byURL[remoteURL] = t
	return path
}

// takenLocked reports whether a path is on disk or reserved. d.mu must be
// held.
func (d *Downloader) takenLocked(path string) (bool, error) {
	if _, busy := d.inflight[path]; busy {
		return true, nil
	}
	return exists(path)
}

// release ends the reservation of dest and wakes tasks waiting on it.
func (d *Downloader) release(dest string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.inflight[dest]
	if !ok {
		return
	}
	delete(d.inflight, dest)
	if d.byURL[t.url] == t {
		delete(d.byURL, t.url)
	}
	close(t.done)
}

// transfer streams rawURL to dest through a temporary file in the same
// directory and renames it into place once complete.
func (d *Downloader) transfer(ctx context.Context, rawURL, dest string) (int64, string, error) {
	body, err := d.opener.Open(ctx, rawURL)
	if err != nil {
		return 0, "", err
	}
	defer body.Close()

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return 0, "", fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*"+partSuffix)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	hash, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}

	n, err := io.CopyBuffer(io.MultiWriter(tmp, hash), body, make([]byte, chunkSize))
	if err != nil {
		return n, "", fmt.Errorf("failed to write body: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return n, "", fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		committed = true
		return n, "", fmt.Errorf("failed to move file into place: %w", err)
	}
	committed = true

	return n, hex.EncodeToString(hash.Sum(nil)), nil
}

// CleanPartials removes temporary files left in dir by transfers that were
// interrupted, for example by a crash. It returns how many were removed.
func CleanPartials(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, partSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
