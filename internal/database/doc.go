// Package database provides the SQLite run history for storecrawl.
//
// RunDB stores:
//   - One summary row per crawl or places run
//   - The crawled pages of each crawl run, in output order
//   - The places of each places run, including the state of every lookup
//
// The database lives in the XDG data directory and uses modernc.org/sqlite,
// a CGO-free driver, with WAL enabled and a single open connection.
package database
