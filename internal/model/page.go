package model

import (
	"sort"
	"strings"
)

// SpecialLinkSeparator joins the special links of a page for tabular output.
const SpecialLinkSeparator = ", "

// PageRecord represents a single fetched page of a crawl.
// It is created once per fetched URL and is not modified afterwards.
type PageRecord struct {
	// URL is the canonical URL that was fetched.
	URL string `json:"url"`

	// Title is the trimmed text of the <title> element.
	// Empty when the page has no title or the response was not HTML.
	Title string `json:"title"`

	// SpecialLinks contains the canonical special-domain links found on the
	// page, deduplicated and sorted.
	SpecialLinks []string `json:"special_links,omitempty"`
}

// NewPageRecord creates a PageRecord from a set of special links.
// The set is copied into a sorted slice so the record is independent of
// map iteration order.
func NewPageRecord(pageURL, title string, special map[string]struct{}) PageRecord {
	links := make([]string, 0, len(special))
	for link := range special {
		links = append(links, link)
	}
	sort.Strings(links)

	return PageRecord{
		URL:          pageURL,
		Title:        title,
		SpecialLinks: links,
	}
}

// SpecialLinksString returns the special links joined by SpecialLinkSeparator.
func (p PageRecord) SpecialLinksString() string {
	return strings.Join(p.SpecialLinks, SpecialLinkSeparator)
}

// HasSpecialLinks reports whether the page links to any special domain.
func (p PageRecord) HasSpecialLinks() bool {
	return len(p.SpecialLinks) > 0
}
