package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/gfontscan/internal/fetch"
	"github.com/nao1215/gfontscan/internal/pipeline"
)

// Default configuration values.
const (
	// DefaultMaxDepth is how many levels of @import are followed.
	// Real import chains are one or two levels deep.
	DefaultMaxDepth = pipeline.DefaultMaxDepth

	// DefaultTimeout bounds a single HTTP request including redirects.
	DefaultTimeout = fetch.DefaultTimeout

	// DefaultBatchSize is the number of targets resolved at once.
	DefaultBatchSize = pipeline.DefaultBatchConcurrency

	// DefaultConcurrency is the number of stylesheets of one recursion level
	// fetched at once. One keeps the run strictly sequential.
	DefaultConcurrency = 1

	// DefaultUserAgent is sent unless a flag or site entry overrides it.
	// Some sites serve a stripped page to unknown clients, so it mimics a
	// desktop browser.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultAcceptLanguage is sent unless a flag or site entry overrides it.
	DefaultAcceptLanguage = fetch.DefaultAcceptLanguage

	// DefaultMaxBodySize limits the decoded size of each response.
	DefaultMaxBodySize = fetch.DefaultMaxBodySize

	// AppName is the application name used for XDG directory paths.
	AppName = "gfontscan"
)

// Config holds all configuration options for gfontscan.
// This struct is populated from CLI flags and the config file and passed
// through the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would
// add complexity without significant benefit.
type Config struct {
	// Targets is the list of page URLs to check.
	Targets []string

	// MaxDepth is the maximum number of @import levels followed.
	// Site entries may override it per host.
	MaxDepth int

	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// BatchSize is the number of targets resolved concurrently.
	BatchSize int

	// Concurrency is the number of stylesheets of one level fetched at once.
	Concurrency int

	// Delay is the minimum spacing between requests of one client.
	// Zero disables the politeness delay.
	Delay time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// AcceptLanguage is the Accept-Language header sent with HTTP requests.
	AcceptLanguage string

	// MaxBodySize is the maximum decoded response size in bytes.
	// Zero means use the default.
	MaxBodySize int64

	// Verbose enables progress lines and debug logging on stderr.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/gfontscan on Linux).
	DBDir string

	// SaveToDB indicates whether results are stored in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:       DefaultMaxDepth,
		Timeout:        DefaultTimeout,
		BatchSize:      DefaultBatchSize,
		Concurrency:    DefaultConcurrency,
		UserAgent:      DefaultUserAgent,
		AcceptLanguage: DefaultAcceptLanguage,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for gfontscan.
// On Linux: ~/.local/share/gfontscan
// On macOS: ~/Library/Application Support/gfontscan
// On Windows: %LOCALAPPDATA%\gfontscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for gfontscan.
// On Linux: ~/.config/gfontscan
// On macOS: ~/Library/Application Support/gfontscan
// On Windows: %APPDATA%\gfontscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any fetching begins.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxDepth < 1 {
		return ErrInvalidMaxDepth
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
