// Package crawler implements the per-company crawl pipeline: link ranking,
// consent dismissal, bounded page aggregation, fact extraction and the
// controller that sequences them over a browser page.
package crawler
