package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values for the crawl command.
// The values mirror the behavior of the original store crawl: one request at
// a time, a ten second timeout and a one second pause between pages.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "storecrawl"

	// DefaultTimeout is the per-request timeout for page fetches.
	DefaultTimeout = 10 * time.Second

	// DefaultCrawlDelay is the pause between two page fetches of a crawl.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultMaxPages of 0 means the crawl runs until the frontier is empty.
	DefaultMaxPages = 0

	// DefaultParallel is the number of stores crawled at the same time.
	// Each store crawl itself is always sequential.
	DefaultParallel = 1

	// DefaultUserAgent identifies storecrawl in HTTP requests.
	DefaultUserAgent = "storecrawl/1.0 (+https://github.com/nao1215/storecrawl)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultSpecialMarker is the host substring that marks special links.
	DefaultSpecialMarker = "instagram.com"

	// DefaultStoreNameColumn is the header of the store name column.
	DefaultStoreNameColumn = "店舗名"

	// DefaultWebsiteColumn is the header of the website column.
	DefaultWebsiteColumn = "ウェブサイト"

	// DefaultInputFile is the store list written by the places command.
	DefaultInputFile = "data/indoor_golf_places_sorted.xlsx"

	// DefaultCrawlOutputFile is where the crawl results are written.
	DefaultCrawlOutputFile = "data/crawled_indoor_golf_websites.xlsx"
)

// Config holds all options of the crawl command.
// It is populated from the configuration file and CLI flags and passed
// through the application rather than kept in global state.
type Config struct {
	// InputFile is the store list spreadsheet (.xlsx).
	InputFile string

	// OutputFile is the spreadsheet the crawl rows are written to.
	OutputFile string

	// Sheet is the sheet of InputFile to read. Empty means the first sheet.
	Sheet string

	// StoreNameColumn is the header of the store name column.
	StoreNameColumn string

	// WebsiteColumn is the header of the website column.
	WebsiteColumn string

	// Start is the 1-indexed first store to crawl.
	Start int

	// Count is the number of stores to crawl starting at Start.
	Count int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// CrawlDelay is the pause between page fetches.
	CrawlDelay time.Duration

	// MaxPages caps the pages crawled per store. 0 means unbounded.
	MaxPages int

	// Parallel is the number of stores crawled concurrently.
	Parallel int

	// SpecialMarkers are host substrings whose links are collected.
	// The first marker names the output column.
	SpecialMarkers []string

	// UserAgent is the User-Agent header sent with each request.
	UserAgent string

	// MaxBodySize is the maximum number of body bytes read per page.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// MarkdownReport is an optional path for a Markdown summary.
	MarkdownReport string

	// ConfigFilePath is the configuration file given with --config.
	ConfigFilePath string

	// SiteConfigs holds per-host overrides from the configuration file.
	SiteConfigs *File

	// Verbose enables debug logging.
	Verbose bool

	// LogFile is an optional path for a rotating JSON log file.
	LogFile string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB enables saving the run to the history database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		InputFile:       DefaultInputFile,
		OutputFile:      DefaultCrawlOutputFile,
		StoreNameColumn: DefaultStoreNameColumn,
		WebsiteColumn:   DefaultWebsiteColumn,
		Timeout:         DefaultTimeout,
		CrawlDelay:      DefaultCrawlDelay,
		MaxPages:        DefaultMaxPages,
		Parallel:        DefaultParallel,
		SpecialMarkers:  []string{DefaultSpecialMarker},
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
	}
}

// ApplyFile copies the non-zero values of the file's crawl section into c.
// CLI flags are applied afterwards and win over file values.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f

	s := f.Crawl
	if s.Input != "" {
		c.InputFile = s.Input
	}
	if s.Output != "" {
		c.OutputFile = s.Output
	}
	if s.Sheet != "" {
		c.Sheet = s.Sheet
	}
	if s.StoreNameColumn != "" {
		c.StoreNameColumn = s.StoreNameColumn
	}
	if s.WebsiteColumn != "" {
		c.WebsiteColumn = s.WebsiteColumn
	}
	if s.Timeout > 0 {
		c.Timeout = s.Timeout
	}
	if s.Delay != nil {
		c.CrawlDelay = *s.Delay
	}
	if s.MaxPages > 0 {
		c.MaxPages = s.MaxPages
	}
	if s.Parallel > 0 {
		c.Parallel = s.Parallel
	}
	if len(s.Markers) > 0 {
		c.SpecialMarkers = s.Markers
	}
	if s.UserAgent != "" {
		c.UserAgent = s.UserAgent
	}
	if s.Proxy != "" {
		c.ProxyAddress = s.Proxy
	}
}

// SpecialColumn returns the output column label for special links.
// "instagram.com" becomes "Instagram", matching the original spreadsheet.
func (c *Config) SpecialColumn() string {
	if len(c.SpecialMarkers) == 0 {
		return "Special"
	}
	label := c.SpecialMarkers[0]
	if i := strings.Index(label, "."); i >= 0 {
		label = label[:i]
	}
	if label == "" {
		return "Special"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// XDGDataDir returns the XDG data directory for storecrawl.
// On Linux: ~/.local/share/storecrawl
// On macOS: ~/Library/Application Support/storecrawl
// On Windows: %LOCALAPPDATA%\storecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for storecrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found as one of the sentinel errors of this package.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputFile) == "" {
		return ErrNoInput
	}
	if strings.TrimSpace(c.OutputFile) == "" {
		return ErrNoOutput
	}
	if c.Start < 1 || c.Count < 1 {
		return ErrInvalidRange
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Parallel <= 0 {
		return ErrInvalidParallel
	}
	if len(c.SpecialMarkers) == 0 {
		return ErrNoSpecialMarker
	}
	for _, m := range c.SpecialMarkers {
		if strings.TrimSpace(m) == "" {
			return ErrNoSpecialMarker
		}
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
