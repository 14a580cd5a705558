// Package crawler runs the crawl orchestrator: a fixed concurrency worker
// pool fed by deduplicated sitemap entries, running the full per-URL
// pipeline (fetch, classify, clean, extract, detect structure, extract
// nav, build Markdown, hash, persist) for each one. The pool fans out
// over golang.org/x/sync/errgroup with a bounded limit rather than an
// open-ended frontier, since the queue is a fixed, known-up-front
// sitemap set.
package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"archivecrawl/extract"
	"archivecrawl/fetch"
	"archivecrawl/hashing"
	"archivecrawl/htmlclean"
	"archivecrawl/markdown"
	"archivecrawl/metadata"
	"archivecrawl/models"
	"archivecrawl/nav"
	"archivecrawl/override"
	"archivecrawl/report"
	"archivecrawl/sitemap"
	"archivecrawl/storage"
	"archivecrawl/structural"
	"archivecrawl/urlnorm"
)

// DefaultConcurrency is the fixed worker-pool size used when the caller
// does not override it.
const DefaultConcurrency = 10

// defaultFetchTimeout bounds each individual fetch attempt.
const defaultFetchTimeout = 30 * time.Second

// Request is the orchestrator's input.
type Request struct {
	Sitemaps         []string
	RunID            string
	MaxPages         int
	FetchModeDefault models.FetchMode
	Recrawl          bool
	DryRun           bool
}

// Orchestrator wires every pipeline stage together and drives the worker
// pool.
type Orchestrator struct {
	intake    *sitemap.Intake
	fetcher   fetch.Fetcher
	store     *storage.Store
	overrides *override.Cache
	reporter  *report.Reporter
	log       *logrus.Logger

	concurrency    int
	fetchTimeout   time.Duration
	limiter        *rate.Limiter
	soft404Phrases []string
}

// New builds an Orchestrator. store may be nil in dry-run-only use, but any
// non-dry-run Run call requires it.
func New(intake *sitemap.Intake, fetcher fetch.Fetcher, store *storage.Store, overrides *override.Cache, log *logrus.Logger, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{
		intake:        intake,
		fetcher:       fetcher,
		store:         store,
		overrides:     overrides,
		reporter:      report.New(log),
		log:           log,
		concurrency:   concurrency,
		fetchTimeout:  defaultFetchTimeout,
		limiter:       rate.NewLimiter(rate.Limit(concurrency*2), concurrency*4),
		soft404Phrases: hashing.DefaultSoft404Phrases,
	}
}

// counters are the atomic per-run tallies shared across workers.
type counters struct {
	discovered   atomic.Int64
	crawled      atomic.Int64
	redirects    atomic.Int64
	errors       atomic.Int64
	skipped      atomic.Int64
	contentBytes atomic.Int64
}

func (c *counters) snapshotInto(run *models.CrawlRun) {
	run.Discovered = c.discovered.Load()
	run.Crawled = c.crawled.Load()
	run.Redirects = c.redirects.Load()
	run.Errors = c.errors.Load()
	run.Skipped = c.skipped.Load()
	run.TotalContentBytes = c.contentBytes.Load()
}

// Run executes one full crawl: sitemap intake, dedup/enqueue, worker-pool
// fan-out over the per-URL pipeline, and run-record finalization.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.CrawlRun, error) {
	entries := o.intake.Run(ctx, req.Sitemaps)

	run := &models.CrawlRun{
		RunID:            req.RunID,
		SeedSitemaps:     req.Sitemaps,
		MaxPages:         req.MaxPages,
		DefaultFetchMode: req.FetchModeDefault,
		StartedAt:        time.Now().UTC(),
	}

	if len(entries) == 0 {
		return run, fmt.Errorf("crawler: sitemap intake produced zero URLs")
	}

	if req.DryRun {
		o.log.WithField("count", len(entries)).Info("dry run: sitemap intake complete")
		limit := 10
		if len(entries) < limit {
			limit = len(entries)
		}
		for _, e := range entries[:limit] {
			fmt.Println(e.Canonical)
		}
		return run, nil
	}

	if o.store == nil {
		return run, fmt.Errorf("crawler: no storage configured for a non-dry-run crawl")
	}
	if err := o.store.CreateRun(ctx, run); err != nil {
		return run, fmt.Errorf("crawler: create run: %w", err)
	}

	// Group by canonical form so two sitemap-seeded raw URLs that collapse
	// to the same canonical share a single fetch (and a single Page row)
	// while each raw URL still gets its own Alias row.
	groups := make(map[string][]sitemap.Entry, len(entries))
	var order []string
	for _, e := range entries {
		if _, ok := groups[e.Canonical]; !ok {
			order = append(order, e.Canonical)
		}
		groups[e.Canonical] = append(groups[e.Canonical], e)
	}

	var c counters
	c.discovered.Store(int64(len(entries)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, canonical := range order {
		group := groups[canonical]
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			// The cap counts successful fetches, not candidates pulled off
			// the queue: errored or skipped entries must not consume it, so
			// it is checked per-dispatch rather than by pre-truncating the
			// candidate list.
			if req.MaxPages > 0 && c.crawled.Load() >= int64(req.MaxPages) {
				return nil
			}

			primary := group[0]
			if !req.Recrawl {
				exists, err := o.store.PageExistsByFinalURL(gctx, primary.Canonical)
				if err == nil && exists {
					c.skipped.Add(1)
					return nil
				}
			}

			if err := o.limiter.Wait(gctx); err != nil {
				return nil
			}

			o.processGroup(gctx, group, run.RunID, &c)
			c.snapshotInto(run)
			o.reporter.Progress(run)
			return nil
		})
	}

	_ = g.Wait()

	c.snapshotInto(run)
	if err := o.store.FinishRun(ctx, run); err != nil {
		o.log.WithError(err).Error("crawler: failed to finalize run record")
	}
	o.reporter.Summary(run)

	return run, nil
}

// processGroup runs the full per-URL pipeline (fetch, classify, clean,
// extract, detect structure, extract nav, build Markdown, hash, persist)
// once for a group of sitemap entries that share a single canonical form,
// then writes one Alias row per distinct raw URL in the group so that
// two raw seeds collapsing to the same canonical still each get their own
// alias record. It never returns an error: a failed fetch or extraction is
// recorded as an ERROR page rather than propagated.
func (o *Orchestrator) processGroup(ctx context.Context, group []sitemap.Entry, runID string, c *counters) {
	primary := group[0]
	fetchMode := o.fetchModeFor(primary.Canonical)

	result, err := o.fetcher.Fetch(ctx, primary.Canonical, o.fetchTimeout)
	if err != nil {
		c.errors.Add(1)
		for _, e := range group {
			o.persistFetchError(ctx, e, runID, fetchMode, err)
		}
		return
	}

	finalURL, err := urlnorm.Normalize(result.FinalURL)
	if err != nil {
		c.errors.Add(1)
		for _, e := range group {
			o.persistFetchError(ctx, e, runID, fetchMode, err)
		}
		return
	}

	var redirectChain []string
	if finalURL != primary.Canonical {
		redirectChain = []string{primary.Canonical, finalURL}
		c.redirects.Add(1)
	}

	crawlStatus := classifyStatus(result.StatusCode)

	page := &models.Page{
		FinalURL:             finalURL,
		StatusCode:           result.StatusCode,
		CrawlStatus:          crawlStatus,
		RequestedURLOriginal: primary.Raw,
		RedirectChain:        redirectChain,
		FetchMode:            fetchMode,
		RunID:                runID,
		SitemapTypeHint:      primary.TypeHint,
		LastCrawledAt:        time.Now().UTC(),
	}

	if crawlStatus == models.StatusOK {
		o.runContentPipeline(page, string(result.Body), finalURL)
		c.contentBytes.Add(int64(len(result.Body)))
	}

	if err := o.store.UpsertPage(ctx, page); err != nil {
		o.log.WithError(err).WithField("url", finalURL).Error("crawler: page upsert failed")
	}

	for _, e := range group {
		alias := &models.UrlAlias{
			RequestedURL:  e.Raw,
			FinalURL:      finalURL,
			StatusCode:    result.StatusCode,
			RedirectChain: redirectChain,
			RunID:         runID,
		}
		if err := o.store.UpsertAlias(ctx, alias); err != nil {
			o.log.WithError(err).WithField("url", finalURL).Error("crawler: alias upsert failed")
		}
	}

	c.crawled.Add(1)
}

// runContentPipeline runs cleaning, extraction, structural detection, nav
// extraction, Markdown building, and content hashing over a successfully
// fetched 2xx page, mutating page in place.
func (o *Orchestrator) runContentPipeline(page *models.Page, rawHTML, pageURL string) {
	page.HTMLContent = rawHTML

	domain := urlnorm.Domain(pageURL)
	removeSelectors := o.overrides.RemoveSelectors(domain)
	mainSelectors := o.overrides.MainContentSelectors(domain)

	rawDoc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		o.log.WithError(err).WithField("url", pageURL).Warn("crawler: raw HTML parse failed")
		return
	}

	meta := metadata.Extract(rawDoc, pageURL)
	page.Title = meta.Title
	page.H1 = meta.H1
	page.MetaDescription = meta.MetaDescription

	cleanedBody := htmlclean.Clean(rawHTML, removeSelectors, o.log)
	extraction := extract.Extract(cleanedBody, rawHTML, pageURL, mainSelectors)
	page.CleanHTML = extraction.CleanHTML
	page.WordCount = extraction.WordCount
	page.ExtractionMethod = extraction.Method
	page.JunkScore = extraction.JunkScore

	elements, stats := structural.Detect(rawHTML)
	structStats := stats
	page.StructuralStats = &structStats

	navStructure := nav.Extract(rawDoc, rawHTML, pageURL, elements)
	page.NavStructure = &navStructure

	mdResult, err := markdown.Build(rawHTML, elements, pageURL, page.H1)
	if err != nil {
		o.log.WithError(err).WithField("url", pageURL).Warn("crawler: markdown build failed")
	} else {
		page.Markdown = mdResult.Markdown
		page.MarkdownEnhanced = mdResult.MarkdownEnhanced
	}

	hash := hashing.ContentHash(page.CleanHTML)
	if hash != "" {
		page.ContentHash = &hash
	}

	if hashing.IsSoft404(page.Title, page.CleanHTML, page.WordCount, o.soft404Phrases) {
		page.CrawlStatus = models.StatusSoft404
	}
}

// persistFetchError records a failed fetch as an ERROR page keyed on the
// entry's canonical form, with an Alias row keyed on its exact raw URL.
// Called once per entry in a group, so a shared canonical collapses to one
// Page row (repeated upserts of the same FinalURL) while each raw URL
// still gets its own alias record.
func (o *Orchestrator) persistFetchError(ctx context.Context, entry sitemap.Entry, runID string, fetchMode models.FetchMode, fetchErr error) {
	msg := fetchErr.Error()
	page := &models.Page{
		FinalURL:             entry.Canonical,
		CrawlStatus:          models.StatusError,
		RequestedURLOriginal: entry.Raw,
		FetchMode:            fetchMode,
		RunID:                runID,
		SitemapTypeHint:      entry.TypeHint,
		LastCrawledAt:        time.Now().UTC(),
		LastError:            &msg,
	}
	if err := o.store.UpsertPage(ctx, page); err != nil {
		o.log.WithError(err).WithField("url", entry.Canonical).Error("crawler: error-page upsert failed")
	}

	alias := &models.UrlAlias{RequestedURL: entry.Raw, FinalURL: entry.Canonical, RunID: runID}
	if err := o.store.UpsertAlias(ctx, alias); err != nil {
		o.log.WithError(err).WithField("url", entry.Canonical).Error("crawler: alias upsert failed")
	}
}

func (o *Orchestrator) fetchModeFor(canonicalURL string) models.FetchMode {
	domain := urlnorm.Domain(canonicalURL)
	if mode, ok := o.overrides.ForceFetchMode(domain); ok {
		return mode
	}
	return o.fetcher.Mode()
}

// classifyStatus maps an HTTP status code to a CrawlStatus.
func classifyStatus(statusCode int) models.CrawlStatus {
	switch {
	case statusCode == 404 || statusCode == 410:
		return models.StatusNotFound
	case statusCode >= 400:
		return models.StatusError
	case statusCode >= 200 && statusCode < 300:
		return models.StatusOK
	default:
		return models.StatusError
	}
}
