package config

import (
	"math"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBaseURL is the NIST Chemistry WebBook search endpoint.
	DefaultBaseURL = "https://webbook.nist.gov/cgi/cbook.cgi"

	// DefaultDataDir is the flat directory downloaded files land in.
	DefaultDataDir = "raw_data"

	// DefaultLogDir holds the progress file, the ledger and log files.
	DefaultLogDir = "logging"

	// ProgressFileName is the checkpoint file name inside the log directory.
	ProgressFileName = "progress"

	// LedgerFileName is the SQLite download ledger inside the log directory.
	LedgerFileName = "irscrape.db"

	// DefaultStartMass is the first window start when no checkpoint exists.
	DefaultStartMass = 10.0

	// DefaultWindowWidth is the width of every mass window in g/mol.
	DefaultWindowWidth = 300.0

	// DefaultMaxMass stops the crawl once a window would start above it.
	DefaultMaxMass = 2000.0

	// DefaultMassStep is how far the window moves when a page makes no
	// progress because every listed entry sits at the window start.
	DefaultMassStep = 0.01

	// DefaultConcurrency of 1 processes compounds strictly one at a time.
	DefaultConcurrency = 1

	// DefaultCrawlDelay is the minimum interval between two requests to the
	// remote host.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultTimeout bounds a single HTTP request, body included.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is how many times a failed GET is retried.
	DefaultMaxRetries = 3

	// DefaultMaxBodySize limits how much of an HTML page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies irscrape in HTTP requests.
	DefaultUserAgent = "irscrape/1.0 (+https://github.com/nao1215/irscrape)"

	// AppName is the application name used for XDG directory paths.
	AppName = "irscrape"
)

// Config holds all configuration options for irscrape.
// It is populated once from the config file and CLI flags, validated, and
// then passed by value to every component constructor.
type Config struct {
	// BaseURL is the search endpoint. Relative links found on fetched
	// pages are resolved against the page they came from.
	BaseURL string

	// DataDir is where .jdx and .mol files are written.
	DataDir string

	// LogDir holds the progress checkpoint, the ledger and log files.
	LogDir string

	// StartMass is the window start used when no checkpoint exists, or
	// always when StartMassOverride is true.
	StartMass float64

	// StartMassOverride makes StartMass win over a saved checkpoint.
	// It is set when the start mass is given on the command line.
	StartMassOverride bool

	// WindowWidth is the width of every mass window.
	WindowWidth float64

	// MaxMass ends the crawl once the window start exceeds it.
	MaxMass float64

	// MassStep is the forced advance applied when a page does not move the
	// window forward.
	MassStep float64

	// MaxPages stops the crawl after this many search pages.
	// Zero means no limit.
	MaxPages int

	// RepeatDownload overwrites files that already exist instead of
	// skipping them.
	RepeatDownload bool

	// Concurrency is the number of compounds of one page processed at the
	// same time. 1 keeps the crawl strictly sequential.
	Concurrency int

	// CrawlDelay is the minimum interval between requests to the host.
	CrawlDelay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MaxRetries is the number of retries for a failed GET.
	MaxRetries int

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize caps the bytes read from an HTML response.
	MaxBodySize int64

	// LogToFile writes a timestamped log file into LogDir.
	LogToFile bool

	// UseLedger records downloads in the SQLite ledger and uses it to tell
	// an already downloaded file from a name collision.
	UseLedger bool

	// Verbose enables debug logging on stderr.
	Verbose bool

	// ConfigFilePath is the configuration file that was loaded, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		DataDir:     DefaultDataDir,
		LogDir:      DefaultLogDir,
		StartMass:   DefaultStartMass,
		WindowWidth: DefaultWindowWidth,
		MaxMass:     DefaultMaxMass,
		MassStep:    DefaultMassStep,
		Concurrency: DefaultConcurrency,
		CrawlDelay:  DefaultCrawlDelay,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		LogToFile:   true,
		UseLedger:   true,
	}
}

// ProgressPath returns the path of the checkpoint file.
func (c *Config) ProgressPath() string {
	return filepath.Join(c.LogDir, ProgressFileName)
}

// LedgerDir returns the directory the SQLite ledger is stored in.
func (c *Config) LedgerDir() string {
	return c.LogDir
}

// XDGDataDir returns the XDG data directory for irscrape.
// On Linux: ~/.local/share/irscrape
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for irscrape.
// On Linux: ~/.config/irscrape
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// UseXDGDirs moves the data and log directories under XDGDataDir.
func (c *Config) UseXDGDirs() {
	base := XDGDataDir()
	c.DataDir = filepath.Join(base, DefaultDataDir)
	c.LogDir = filepath.Join(base, DefaultLogDir)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.DataDir == "" {
		return ErrEmptyDataDir
	}
	if c.LogDir == "" {
		return ErrEmptyLogDir
	}

	if !isFinite(c.WindowWidth) || c.WindowWidth <= 0 {
		return ErrInvalidWindowWidth
	}
	if !isFinite(c.StartMass) || c.StartMass < 0 {
		return ErrInvalidStartMass
	}
	if !isFinite(c.MaxMass) || c.MaxMass < c.StartMass {
		return ErrInvalidMaxMass
	}
	if !isFinite(c.MassStep) || c.MassStep <= 0 {
		return ErrInvalidMassStep
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
