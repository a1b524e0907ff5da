// Package crawler implements the breadth-first crawl of a single store website.
//
// # Components
//
//   - Canonicalize and Normalizer: reduce links to scheme://host/path and
//     classify them as internal, external or special (Instagram by default)
//   - Spider: the BFS traversal with a FIFO frontier and a visited set
//   - ParseDocument: charset-aware extraction of the title and anchors
//   - Fetcher / HTTPFetcher: one GET per page with timeout and size limit
//
// # Traversal
//
// The root URL is always fetched first. Links are enqueued only when their
// host equals the root's host exactly and they are neither visited nor
// queued. Special links are collected per page and never crawled. There is
// no depth limit; WithMaxPages offers an opt-in page cap. The spider waits a
// fixed delay between fetches, failed or not.
//
// # Usage
//
//	fetcher := crawler.NewHTTPFetcher(httpClient)
//	spider := crawler.NewSpider(fetcher, crawler.WithDelay(time.Second))
//	records, err := spider.Crawl(ctx, "https://golf.example/")
package crawler
