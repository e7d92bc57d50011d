package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Defaults used when no option overrides them.
const (
	defaultTimeout       = 60 * time.Second
	defaultCrawlDelay    = time.Second
	defaultMaxRetries    = 3
	defaultMaxBodySize   = 5 * 1024 * 1024
	defaultRetryInterval = 2 * time.Second
	defaultUserAgent     = "irscrape/1.0"
)

// Page is a fetched and parsed HTML document.
type Page struct {
	// URL is the address the document was requested from. Relative links
	// in Doc resolve against it.
	URL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Doc is the parsed document.
	Doc *goquery.Document
}

// Fetcher issues rate-limited GET requests with retries.
// It is safe for concurrent use.
type Fetcher struct {
	client        *http.Client
	limiter       *rate.Limiter
	userAgent     string
	maxBodySize   int64
	maxRetries    int
	retryInterval time.Duration
	logger        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTimeout bounds each request, including reading its body.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithCrawlDelay sets the minimum interval between any two requests.
// Zero disables the limiter.
func WithCrawlDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.limiter = newLimiter(d)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the largest HTML page Fetch accepts. Larger pages
// fail with ErrBodyTooLarge.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithRetryInterval sets the first backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		f.retryInterval = d
	}
}

// WithLogger sets the logger used for retry notices.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:        &http.Client{Timeout: defaultTimeout},
		limiter:       newLimiter(defaultCrawlDelay),
		userAgent:     defaultUserAgent,
		maxBodySize:   defaultMaxBodySize,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Fetch retrieves rawURL and parses it as HTML.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	var page *Page
	err := f.retry(ctx, rawURL, func(resp *http.Response) error {
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
		if err != nil {
			return &FetchError{URL: rawURL, Err: fmt.Errorf("failed to read body: %w", err)}
		}
		if int64(len(body)) > f.maxBodySize {
			return backoff.Permanent(&FetchError{
				URL:        rawURL,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, f.maxBodySize),
			})
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(&FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: err})
		}
		page = &Page{URL: rawURL, StatusCode: resp.StatusCode, Doc: doc}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("fetched page", "url", rawURL)
	return page, nil
}

// Open retrieves rawURL and returns its body unread. The caller must
// close it.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := f.retry(ctx, rawURL, func(resp *http.Response) error {
		body = resp.Body
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// retry runs one GET per attempt until handle accepts a 2xx response or
// the retry budget is spent. When closeBody is set the response body is
// closed after handle returns.
func (f *Fetcher) retry(ctx context.Context, rawURL string, handle func(*http.Response) error, closeBody bool) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.retryInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.maxRetries)), ctx)

	attempt := func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(&FetchError{URL: rawURL, Err: err})
		}

		resp, err := f.do(ctx, rawURL)
		if err != nil {
			return &FetchError{URL: rawURL, Err: err}
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			drain(resp.Body)
			fe := &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
			if fe.Temporary() {
				return fe
			}
			return backoff.Permanent(fe)
		}

		if closeBody {
			defer resp.Body.Close()
		}
		if err := handle(resp); err != nil {
			if !closeBody {
				resp.Body.Close()
			}
			return err
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Warn("request failed, retrying", "url", rawURL, "error", err, "wait", wait)
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{URL: rawURL, Err: err}
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	return f.client.Do(req)
}

// drain discards the rest of a body so the connection can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	_ = body.Close()
}
