// Package config provides configuration structures and utilities for storecrawl.
// It defines the options of the crawl and places commands, the YAML
// configuration file with per-host overrides, and API key loading from
// dotenv files.
package config
