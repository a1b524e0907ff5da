// Package pipeline runs the two storecrawl workflows.
//
// The places lookup is a Pipeline of Steps (search, details, address,
// distance and sort) executed in sequence over one model.PlacesReport. Each
// step receives the report enriched by the previous ones, so steps can be
// added or replaced without touching the others.
//
// The store crawl is a StoreBatch: one crawler.Spider per store, with
// concurrency across stores controlled by errgroup while the output keeps
// the input order.
//
// CrawlTable and PlacesTable turn the results into report tables.
package pipeline
