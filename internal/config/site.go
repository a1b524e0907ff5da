package config

import (
	"time"

	"github.com/nao1215/storecrawl/internal/geo"
)

// SiteConfig holds overrides for a single store website host.
// This allows customizing crawl behavior for sites that need a cookie to get
// past an age gate or that have huge calendar sections not worth crawling.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the global page cap for this site.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are URL path patterns to skip during crawling.
	// Patterns use path.Match glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict the crawl to matching URL paths.
	// The start page is always fetched.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// CrawlSection is the "crawl" section of the configuration file.
type CrawlSection struct {
	Input           string         `yaml:"input,omitempty"`
	Output          string         `yaml:"output,omitempty"`
	Sheet           string         `yaml:"sheet,omitempty"`
	StoreNameColumn string         `yaml:"storeNameColumn,omitempty"`
	WebsiteColumn   string         `yaml:"websiteColumn,omitempty"`
	Timeout         time.Duration  `yaml:"timeout,omitempty"`
	Delay           *time.Duration `yaml:"delay,omitempty"`
	MaxPages        int            `yaml:"maxPages,omitempty"`
	Parallel        int            `yaml:"parallel,omitempty"`
	Markers         []string       `yaml:"markers,omitempty"`
	UserAgent       string         `yaml:"userAgent,omitempty"`
	Proxy           string         `yaml:"proxy,omitempty"`
}

// PlacesSection is the "places" section of the configuration file.
type PlacesSection struct {
	Keyword           string          `yaml:"keyword,omitempty"`
	Location          *geo.Coordinate `yaml:"location,omitempty"`
	Radius            uint            `yaml:"radius,omitempty"`
	Language          string          `yaml:"language,omitempty"`
	PageDelay         *time.Duration  `yaml:"pageDelay,omitempty"`
	DetailConcurrency int             `yaml:"detailConcurrency,omitempty"`
	Output            string          `yaml:"output,omitempty"`
}

// File represents the structure of the .storecrawl configuration file.
type File struct {
	// Crawl holds defaults for the crawl command.
	Crawl CrawlSection `yaml:"crawl,omitempty"`

	// Places holds defaults for the places command.
	Places PlacesSection `yaml:"places,omitempty"`

	// Sites maps hosts to their site-specific configurations.
	// Keys are the host as it appears in the URL, including a port if any
	// (e.g., "golf.example.jp" or "localhost:8080").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to all hosts
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	result := cf.Defaults

	// Copy the defaults' headers so merging never mutates cf.Defaults.
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	return result
}
