// Package model defines the core data structures used throughout storecrawl.
//
// This package contains the following main types:
//   - PageRecord: One fetched page of a store website (URL, title, special links)
//   - Store: One row of the input store list
//   - CrawlRun: The rows produced by crawling a batch of stores
//   - Place: One business returned by the places lookup
//   - PlacesReport: The accumulated state of a places lookup run
//   - Lookup: A three-way outcome (absent, failed, present) for enrichment calls
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, pipeline, report and database packages all use
// these types, so centralizing them prevents import cycles.
package model
