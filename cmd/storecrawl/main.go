// Package main provides the entry point for the storecrawl CLI.
//
// storecrawl builds lead lists of stores: it searches businesses with the
// Google Places API, then crawls each store website breadth-first and
// collects links to Instagram (or any other configured host).
//
// Usage:
//
//	storecrawl places --keyword インドアゴルフ
//	storecrawl crawl --start 1 --count 10
//
// See --help for all available options.
package main

// main is the entry point for storecrawl.
func main() {
	Execute()
}
