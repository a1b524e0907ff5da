package pipeline

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/storecrawl/internal/config"
	"github.com/nao1215/storecrawl/internal/crawler"
	"github.com/nao1215/storecrawl/internal/httpclient"
	"github.com/nao1215/storecrawl/internal/model"
)

// NewSpiderFactory returns a SpiderFactory that applies the crawl settings of
// cfg and the per-host overrides of cfg.SiteConfigs to every store.
func NewSpiderFactory(cfg *config.Config, clients *httpclient.Factory, logger *slog.Logger) SpiderFactory {
	if logger == nil {
		logger = slog.Default()
	}

	return func(store model.Store) (*crawler.Spider, error) {
		u, err := url.Parse(strings.TrimSpace(store.Website))
		if err != nil {
			return nil, fmt.Errorf("failed to parse website of %s: %w", store.Name, err)
		}
		site := cfg.SiteConfigs.GetSiteConfig(u.Host)

		client := clients.HTTPClientWithConfig(u.Host, site.Cookie, site.Headers)
		fetcher := crawler.NewHTTPFetcher(client, crawler.WithMaxBodySize(cfg.MaxBodySize))

		maxPages := cfg.MaxPages
		if site.MaxPages > 0 {
			maxPages = site.MaxPages
		}

		opts := []crawler.SpiderOption{
			crawler.WithDelay(cfg.CrawlDelay),
			crawler.WithMaxPages(maxPages),
			crawler.WithMarkers(cfg.SpecialMarkers),
			crawler.WithLogger(logger.With("store", store.Name)),
		}
		if len(site.IgnorePatterns) > 0 {
			opts = append(opts, crawler.WithIgnorePatterns(site.IgnorePatterns))
		}
		if len(site.FollowPatterns) > 0 {
			opts = append(opts, crawler.WithFollowPatterns(site.FollowPatterns))
		}

		return crawler.NewSpider(fetcher, opts...), nil
	}
}
