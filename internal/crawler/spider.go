package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/storecrawl/internal/model"
)

// DefaultDelay is the pause between two fetches of a crawl.
const DefaultDelay = 1 * time.Second

// DefaultMarker is the host substring of special links.
const DefaultMarker = "instagram.com"

// ErrInvalidRootURL is returned when the crawl root has no scheme or host.
var ErrInvalidRootURL = errors.New("invalid root URL: scheme and host are required")

// Spider runs a breadth-first, same-host crawl of one website.
//
// The frontier is a FIFO queue seeded with the root URL. Every URL is marked
// visited before it is fetched, so a failing page is never retried and cyclic
// link graphs terminate. A URL is enqueued only when it is neither visited
// nor already queued, which keeps the two sets disjoint.
//
// A Spider holds no crawl state between calls; Crawl may be called again
// for another site.
type Spider struct {
	// fetcher retrieves pages.
	fetcher Fetcher

	// delay is the pause between fetches, applied after failures too.
	delay time.Duration

	// maxPages caps the URLs fetched per crawl. 0 means unbounded.
	maxPages int

	// markers are host substrings of special links.
	markers []string

	// ignorePatterns are URL path patterns never enqueued.
	// Patterns use glob syntax (e.g., "/calendar/*", "*.pdf").
	ignorePatterns []string

	// followPatterns, when set, restrict the frontier to matching paths.
	// The root is always fetched.
	followPatterns []string

	// logger receives per-page diagnostics.
	logger *slog.Logger

	// onPage is called after each emitted record.
	onPage func(model.PageRecord)
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithDelay sets the pause between fetches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithMaxPages caps the number of URLs fetched per crawl. 0 means unbounded.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithMarkers sets the host substrings of special links.
func WithMarkers(markers []string) SpiderOption {
	return func(s *Spider) {
		if len(markers) > 0 {
			s.markers = markers
		}
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are enqueued.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOnPage registers a callback invoked for every emitted record.
func WithOnPage(fn func(model.PageRecord)) SpiderOption {
	return func(s *Spider) {
		s.onPage = fn
	}
}

// NewSpider creates a Spider that fetches pages with fetcher.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher: fetcher,
		delay:   DefaultDelay,
		markers: []string{DefaultMarker},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl crawls the site rooted at rootURL and returns one record per
// successfully fetched page in BFS order.
//
// Fetch failures are logged and skipped. When ctx is cancelled the records
// collected so far are returned together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, rootURL string) ([]model.PageRecord, error) {
	root, err := url.Parse(strings.TrimSpace(rootURL))
	if err != nil || root.Scheme == "" || root.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRootURL, rootURL)
	}

	seed := canonical(root)
	normalizer := NewNormalizer(root, s.markers)

	visited := make(map[string]struct{})
	queued := map[string]struct{}{seed: {}}
	frontier := []string{seed}
	records := make([]model.PageRecord, 0)

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if s.maxPages > 0 && len(visited) >= s.maxPages {
			s.logger.Info("page limit reached", "root", seed, "max_pages", s.maxPages, "pending", len(frontier))
			break
		}

		current := frontier[0]
		frontier = frontier[1:]
		delete(queued, current)

		if _, ok := visited[current]; ok {
			continue
		}
		visited[current] = struct{}{}

		record, links, err := s.visit(ctx, current, normalizer)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			s.logger.Warn("failed to fetch page", "url", current, "error", err)
		} else {
			for _, link := range links {
				if _, ok := visited[link]; ok {
					continue
				}
				if _, ok := queued[link]; ok {
					continue
				}
				if !s.shouldCrawl(link) {
					continue
				}
				queued[link] = struct{}{}
				frontier = append(frontier, link)
			}

			records = append(records, record)
			if s.onPage != nil {
				s.onPage(record)
			}
		}

		if s.delay > 0 && len(frontier) > 0 {
			select {
			case <-ctx.Done():
				return records, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return records, nil
}

// visit fetches one page and returns its record and its internal links in
// document order.
func (s *Spider) visit(ctx context.Context, pageURL string, normalizer *Normalizer) (model.PageRecord, []string, error) {
	resp, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return model.PageRecord{}, nil, err
	}

	doc, err := ParseDocument(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		// A broken page still counts as visited with an empty title.
		s.logger.Debug("failed to parse page", "url", pageURL, "error", err)
		doc = &Document{}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return model.PageRecord{}, nil, err
	}

	special := make(map[string]struct{})
	internal := make([]string, 0)
	for _, href := range doc.Hrefs {
		if strings.TrimSpace(href) == "" {
			continue
		}
		link := Canonicalize(base, href)
		switch normalizer.Classify(link) {
		case LinkSpecial:
			special[SpecialLinkForm(link)] = struct{}{}
		case LinkInternal:
			internal = append(internal, link)
		case LinkExternal:
		}
	}

	s.logger.Debug("page crawled", "url", pageURL, "title", doc.Title, "links", len(internal), "special", len(special))
	return model.NewPageRecord(pageURL, doc.Title, special), internal, nil
}

// shouldCrawl checks a URL against the ignore and follow patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, crawl it
func (s *Spider) shouldCrawl(targetURL string) bool {
	if len(s.ignorePatterns) == 0 && len(s.followPatterns) == 0 {
		return true
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}
	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
//
// Examples:
//   - "/calendar/*" matches "/calendar", "/calendar/2024/01"
//   - "*.pdf" matches "/menu/price.pdf"
//   - "/news/?" matches "/news/1"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Bare patterns like "*.pdf" match the last path segment.
	if !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}
