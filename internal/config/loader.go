package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".irscrape"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .irscrape configuration file.
// Every field is optional; unset fields leave the current value alone.
type File struct {
	BaseURL string `yaml:"baseURL,omitempty"`
	DataDir string `yaml:"dataDir,omitempty"`
	LogDir  string `yaml:"logDir,omitempty"`

	StartMass   *float64 `yaml:"startMass,omitempty"`
	WindowWidth *float64 `yaml:"windowWidth,omitempty"`
	MaxMass     *float64 `yaml:"maxMass,omitempty"`
	MassStep    *float64 `yaml:"massStep,omitempty"`
	MaxPages    *int     `yaml:"maxPages,omitempty"`

	RepeatDownload *bool `yaml:"repeatDownload,omitempty"`
	Concurrency    *int  `yaml:"concurrency,omitempty"`

	CrawlDelay  *time.Duration `yaml:"crawlDelay,omitempty"`
	Timeout     *time.Duration `yaml:"timeout,omitempty"`
	MaxRetries  *int           `yaml:"maxRetries,omitempty"`
	UserAgent   string         `yaml:"userAgent,omitempty"`
	MaxBodySize *int64         `yaml:"maxBodySize,omitempty"`

	LogToFile *bool `yaml:"logToFile,omitempty"`
	UseLedger *bool `yaml:"useLedger,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply overlays the values set in the file onto cfg.
func (f *File) Apply(cfg *Config) {
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.LogDir != "" {
		cfg.LogDir = f.LogDir
	}
	if f.StartMass != nil {
		cfg.StartMass = *f.StartMass
	}
	if f.WindowWidth != nil {
		cfg.WindowWidth = *f.WindowWidth
	}
	if f.MaxMass != nil {
		cfg.MaxMass = *f.MaxMass
	}
	if f.MassStep != nil {
		cfg.MassStep = *f.MassStep
	}
	if f.MaxPages != nil {
		cfg.MaxPages = *f.MaxPages
	}
	if f.RepeatDownload != nil {
		cfg.RepeatDownload = *f.RepeatDownload
	}
	if f.Concurrency != nil {
		cfg.Concurrency = *f.Concurrency
	}
	if f.CrawlDelay != nil {
		cfg.CrawlDelay = *f.CrawlDelay
	}
	if f.Timeout != nil {
		cfg.Timeout = *f.Timeout
	}
	if f.MaxRetries != nil {
		cfg.MaxRetries = *f.MaxRetries
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.MaxBodySize != nil {
		cfg.MaxBodySize = *f.MaxBodySize
	}
	if f.LogToFile != nil {
		cfg.LogToFile = *f.LogToFile
	}
	if f.UseLedger != nil {
		cfg.UseLedger = *f.UseLedger
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .irscrape in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .irscrape in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
