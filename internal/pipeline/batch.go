package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/storecrawl/internal/crawler"
	"github.com/nao1215/storecrawl/internal/model"
	"github.com/nao1215/storecrawl/internal/storelist"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// SpiderFactory creates the spider used to crawl one store.
// A factory lets every store get its own site configuration and cookie jar.
type SpiderFactory func(store model.Store) (*crawler.Spider, error)

// StoreBatch crawls the websites of a list of stores.
// Each store crawl is sequential; up to concurrency stores are crawled at
// the same time and the rows keep the input order.
type StoreBatch struct {
	// newSpider creates a spider for each store.
	newSpider SpiderFactory

	// concurrency is the maximum number of concurrent store crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// progress receives the progress bar. nil disables it.
	progress io.Writer
}

// BatchOption configures a StoreBatch.
type BatchOption func(*StoreBatch)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *StoreBatch) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent store crawls.
// Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *StoreBatch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithProgress shows a progress bar of completed stores on w.
func WithProgress(w io.Writer) BatchOption {
	return func(b *StoreBatch) {
		b.progress = w
	}
}

// NewStoreBatch creates a StoreBatch.
func NewStoreBatch(newSpider SpiderFactory, opts ...BatchOption) *StoreBatch {
	b := &StoreBatch{
		newSpider:   newSpider,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// storeResult is the outcome of one store.
type storeResult struct {
	rows    []model.CrawlRow
	crawled bool
	skipped bool
}

// Run crawls every store in input order and returns the collected rows.
// Stores without a usable website are logged and skipped. When ctx is
// cancelled the rows gathered so far are returned with ctx.Err() and the
// run is marked as cancelled.
func (b *StoreBatch) Run(ctx context.Context, input string, stores []model.Store) (*model.CrawlRun, error) {
	run := model.NewCrawlRun(input)

	b.logger.Info("starting store batch",
		"stores", len(stores),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	bar := b.newProgressBar(len(stores))
	results := make([]storeResult, len(stores))

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, store := range stores {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = b.crawlStore(ctx, store, i+1, len(stores))
			if bar != nil {
				_ = bar.Add(1) //nolint:errcheck // progress output only
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	if bar != nil {
		_ = bar.Finish() //nolint:errcheck // progress output only
	}

	for _, r := range results {
		run.Rows = append(run.Rows, r.rows...)
		if r.crawled {
			run.StoresCrawled++
		}
		if r.skipped {
			run.StoresSkipped++
		}
	}
	run.FinishedAt = time.Now()

	b.logger.Info("store batch complete",
		"stores_crawled", run.StoresCrawled,
		"stores_skipped", run.StoresSkipped,
		"pages", len(run.Rows),
		"elapsed", time.Since(startTime),
	)

	if err := ctx.Err(); err != nil {
		run.Cancelled = true
		return run, err
	}
	return run, nil
}

// crawlStore crawls one store and converts its pages into rows.
func (b *StoreBatch) crawlStore(ctx context.Context, store model.Store, index, total int) storeResult {
	state, err := storelist.Classify(store)
	switch state {
	case model.WebsiteAbsent:
		b.logger.Info("skipping store without website", "store", store.Name, "row", store.Row)
		return storeResult{skipped: true}
	case model.WebsiteInvalid:
		b.logger.Warn("skipping store with invalid website", "store", store.Name, "row", store.Row, "error", err)
		return storeResult{skipped: true}
	}

	b.logger.Info("crawling store",
		"store", store.Name,
		"url", store.Website,
		"index", index,
		"total", total,
	)

	spider, err := b.newSpider(store)
	if err != nil {
		b.logger.Warn("failed to prepare crawler", "store", store.Name, "error", err)
		return storeResult{skipped: true}
	}

	pages, err := spider.Crawl(ctx, store.Website)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		b.logger.Warn("store crawl failed", "store", store.Name, "error", err)
	}

	rows := make([]model.CrawlRow, 0, len(pages))
	for _, page := range pages {
		rows = append(rows, model.NewCrawlRow(store, page))
	}

	b.logger.Info("store crawl completed", "store", store.Name, "pages", len(pages))
	return storeResult{rows: rows, crawled: true}
}

// newProgressBar returns nil when progress output is disabled.
func (b *StoreBatch) newProgressBar(total int) *progressbar.ProgressBar {
	if b.progress == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.progress),
		progressbar.OptionSetDescription("crawling stores"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
