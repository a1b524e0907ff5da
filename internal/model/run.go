package model

import (
	"time"

	"github.com/google/uuid"
)

// RunKind distinguishes the two pipelines in the run history.
type RunKind string

const (
	// RunKindCrawl is a store website crawl.
	RunKindCrawl RunKind = "crawl"

	// RunKindPlaces is a places lookup.
	RunKindPlaces RunKind = "places"
)

// CrawlRow is one output row of a store crawl: a crawled page together with
// the store it belongs to.
type CrawlRow struct {
	StoreName    string `json:"store_name"`
	StoreURL     string `json:"store_url"`
	PageURL      string `json:"page_url"`
	Title        string `json:"title"`
	SpecialLinks string `json:"special_links"`
}

// NewCrawlRow combines a store and one of its page records.
func NewCrawlRow(store Store, page PageRecord) CrawlRow {
	return CrawlRow{
		StoreName:    store.Name,
		StoreURL:     store.Website,
		PageURL:      page.URL,
		Title:        page.Title,
		SpecialLinks: page.SpecialLinksString(),
	}
}

// CrawlRun is the result of crawling a batch of stores.
type CrawlRun struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Input is the store list the run was started from.
	Input string `json:"input"`

	// Output is the spreadsheet the rows were written to.
	Output string `json:"output,omitempty"`

	// SpecialColumn is the header of the special links column.
	SpecialColumn string `json:"special_column,omitempty"`

	// Rows are the crawled pages in store order, then BFS order.
	Rows []CrawlRow `json:"rows"`

	// StoresCrawled counts stores whose website was crawled.
	StoresCrawled int `json:"stores_crawled"`

	// StoresSkipped counts stores skipped for an absent or invalid website.
	StoresSkipped int `json:"stores_skipped"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is set when the run completes.
	FinishedAt time.Time `json:"finished_at"`

	// Cancelled is true when the run was interrupted and Rows are partial.
	Cancelled bool `json:"cancelled"`
}

// NewCrawlRun creates an empty run for the given input.
func NewCrawlRun(input string) *CrawlRun {
	return &CrawlRun{
		ID:        uuid.NewString(),
		Input:     input,
		Rows:      make([]CrawlRow, 0),
		StartedAt: time.Now(),
	}
}

// PagesWithSpecialLinks counts rows that carry at least one special link.
func (r *CrawlRun) PagesWithSpecialLinks() int {
	n := 0
	for _, row := range r.Rows {
		if row.SpecialLinks != "" {
			n++
		}
	}
	return n
}
