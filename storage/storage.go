// Package storage implements hash-gated upserts for pages, aliases, runs,
// and domain overrides against Postgres, using plain database/sql and
// lib/pq with no ORM.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"archivecrawl/models"
)

// Store wraps a Postgres connection pool and implements every upsert
// the crawl pipeline needs.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, pings, and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("storage: schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// FromDB wraps an already-open *sql.DB without touching the schema, used in
// tests and by callers that want custom connection-pool tuning.
func FromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id SERIAL PRIMARY KEY,
			final_url TEXT UNIQUE NOT NULL,
			status_code INTEGER,
			crawl_status TEXT,
			requested_url_original TEXT,
			redirect_chain JSONB,
			fetch_mode TEXT,
			run_id TEXT,
			sitemap_type_hint TEXT,
			html_content TEXT,
			clean_html TEXT,
			markdown TEXT,
			markdown_enhanced TEXT,
			content_hash TEXT,
			title TEXT,
			h1 TEXT,
			meta_description TEXT,
			word_count INTEGER,
			nav_structure JSONB,
			structural_stats JSONB,
			extraction_method TEXT,
			junk_score DOUBLE PRECISION,
			last_crawled_at TIMESTAMPTZ,
			last_error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_content_hash ON pages(content_hash)`,
		`CREATE TABLE IF NOT EXISTS url_aliases (
			requested_url TEXT PRIMARY KEY,
			final_url TEXT NOT NULL,
			status_code INTEGER,
			redirect_chain JSONB,
			first_seen_at TIMESTAMPTZ NOT NULL,
			last_seen_at TIMESTAMPTZ NOT NULL,
			run_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS crawl_runs (
			run_id TEXT PRIMARY KEY,
			seed_sitemaps JSONB,
			max_pages INTEGER,
			default_fetch_mode TEXT,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			discovered BIGINT DEFAULT 0,
			crawled BIGINT DEFAULT 0,
			redirects BIGINT DEFAULT 0,
			errors BIGINT DEFAULT 0,
			skipped BIGINT DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS domain_overrides (
			domain TEXT PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT true,
			main_content_selectors JSONB,
			remove_selectors JSONB,
			force_fetch_mode TEXT,
			notes TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func jsonOrNil(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func navStructureJSON(ns *models.NavStructure) ([]byte, error) {
	if ns == nil {
		return nil, nil
	}
	return json.Marshal(ns)
}

func structuralStatsJSON(ss *models.StructuralStats) ([]byte, error) {
	if ss == nil {
		return nil, nil
	}
	return json.Marshal(ss)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

// UpsertPage performs a hash-gated page upsert: always overwrite
// provenance/status fields from new data; only overwrite
// html_content/clean_html when the new content_hash is present and differs
// from what's stored; everything else is COALESCE(new, old).
func (s *Store) UpsertPage(ctx context.Context, p *models.Page) error {
	redirectChain, err := jsonOrNil(stringSliceOrNil(p.RedirectChain))
	if err != nil {
		return fmt.Errorf("storage: marshal redirect_chain: %w", err)
	}
	navStructure, err := navStructureJSON(p.NavStructure)
	if err != nil {
		return fmt.Errorf("storage: marshal nav_structure: %w", err)
	}
	structuralStats, err := structuralStatsJSON(p.StructuralStats)
	if err != nil {
		return fmt.Errorf("storage: marshal structural_stats: %w", err)
	}

	const query = `
	INSERT INTO pages (
		final_url, status_code, crawl_status, requested_url_original, redirect_chain,
		fetch_mode, run_id, sitemap_type_hint, html_content, clean_html, markdown,
		markdown_enhanced, content_hash, title, h1, meta_description, word_count,
		nav_structure, structural_stats, extraction_method, junk_score,
		last_crawled_at, last_error
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23
	)
	ON CONFLICT (final_url) DO UPDATE SET
		status_code = EXCLUDED.status_code,
		crawl_status = EXCLUDED.crawl_status,
		redirect_chain = EXCLUDED.redirect_chain,
		fetch_mode = EXCLUDED.fetch_mode,
		last_error = EXCLUDED.last_error,
		last_crawled_at = EXCLUDED.last_crawled_at,
		run_id = EXCLUDED.run_id,
		html_content = CASE
			WHEN EXCLUDED.content_hash IS NOT NULL AND EXCLUDED.content_hash IS DISTINCT FROM pages.content_hash
			THEN EXCLUDED.html_content ELSE pages.html_content END,
		clean_html = CASE
			WHEN EXCLUDED.content_hash IS NOT NULL AND EXCLUDED.content_hash IS DISTINCT FROM pages.content_hash
			THEN EXCLUDED.clean_html ELSE pages.clean_html END,
		markdown = COALESCE(EXCLUDED.markdown, pages.markdown),
		markdown_enhanced = COALESCE(EXCLUDED.markdown_enhanced, pages.markdown_enhanced),
		title = COALESCE(EXCLUDED.title, pages.title),
		h1 = COALESCE(EXCLUDED.h1, pages.h1),
		meta_description = COALESCE(EXCLUDED.meta_description, pages.meta_description),
		word_count = COALESCE(EXCLUDED.word_count, pages.word_count),
		extraction_method = COALESCE(EXCLUDED.extraction_method, pages.extraction_method),
		junk_score = COALESCE(EXCLUDED.junk_score, pages.junk_score),
		content_hash = COALESCE(EXCLUDED.content_hash, pages.content_hash),
		sitemap_type_hint = COALESCE(EXCLUDED.sitemap_type_hint, pages.sitemap_type_hint),
		nav_structure = COALESCE(EXCLUDED.nav_structure, pages.nav_structure),
		structural_stats = COALESCE(EXCLUDED.structural_stats, pages.structural_stats)
	RETURNING id`

	return s.db.QueryRowContext(ctx, query,
		p.FinalURL, p.StatusCode, string(p.CrawlStatus), p.RequestedURLOriginal, redirectChain,
		string(p.FetchMode), p.RunID, p.SitemapTypeHint, nullString(p.HTMLContent), nullString(p.CleanHTML),
		nullString(p.Markdown), nullString(p.MarkdownEnhanced), p.ContentHash, nullString(p.Title),
		nullString(p.H1), nullString(p.MetaDescription), nullInt(p.WordCount),
		navStructure, structuralStats, nullExtractionMethod(p.ExtractionMethod), nullFloat(p.JunkScore),
		p.LastCrawledAt, p.LastError,
	).Scan(&p.ID)
}

func stringSliceOrNil(s []string) interface{} {
	if len(s) == 0 {
		return nil
	}
	return s
}

func nullExtractionMethod(m models.ExtractionMethod) *string {
	if m == "" {
		return nil
	}
	s := string(m)
	return &s
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

// UpsertAlias writes the requested_url -> final_url mapping, keeping
// first_seen_at stable across repeated writes and bumping last_seen_at.
func (s *Store) UpsertAlias(ctx context.Context, a *models.UrlAlias) error {
	redirectChain, err := jsonOrNil(stringSliceOrNil(a.RedirectChain))
	if err != nil {
		return fmt.Errorf("storage: marshal redirect_chain: %w", err)
	}

	const query = `
	INSERT INTO url_aliases (requested_url, final_url, status_code, redirect_chain, first_seen_at, last_seen_at, run_id)
	VALUES ($1, $2, $3, $4, $5, $5, $6)
	ON CONFLICT (requested_url) DO UPDATE SET
		final_url = EXCLUDED.final_url,
		status_code = EXCLUDED.status_code,
		redirect_chain = EXCLUDED.redirect_chain,
		last_seen_at = EXCLUDED.last_seen_at,
		run_id = EXCLUDED.run_id`

	_, err = s.db.ExecContext(ctx, query, a.RequestedURL, a.FinalURL, a.StatusCode, redirectChain, time.Now().UTC(), a.RunID)
	return err
}

// CreateRun inserts a new CrawlRun row at startup.
func (s *Store) CreateRun(ctx context.Context, run *models.CrawlRun) error {
	seeds, err := jsonOrNil(stringSliceOrNil(run.SeedSitemaps))
	if err != nil {
		return fmt.Errorf("storage: marshal seed_sitemaps: %w", err)
	}
	const query = `
	INSERT INTO crawl_runs (run_id, seed_sitemaps, max_pages, default_fetch_mode, started_at)
	VALUES ($1, $2, $3, $4, $5)`
	_, err = s.db.ExecContext(ctx, query, run.RunID, seeds, run.MaxPages, string(run.DefaultFetchMode), run.StartedAt)
	return err
}

// UpdateRunStats writes the current aggregate counters for an in-progress run.
func (s *Store) UpdateRunStats(ctx context.Context, run *models.CrawlRun) error {
	const query = `
	UPDATE crawl_runs SET discovered = $2, crawled = $3, redirects = $4, errors = $5, skipped = $6
	WHERE run_id = $1`
	_, err := s.db.ExecContext(ctx, query, run.RunID, run.Discovered, run.Crawled, run.Redirects, run.Errors, run.Skipped)
	return err
}

// FinishRun sets finished_at and writes the final counters.
func (s *Store) FinishRun(ctx context.Context, run *models.CrawlRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	const query = `
	UPDATE crawl_runs SET finished_at = $2, discovered = $3, crawled = $4, redirects = $5, errors = $6, skipped = $7
	WHERE run_id = $1`
	_, err := s.db.ExecContext(ctx, query, run.RunID, now, run.Discovered, run.Crawled, run.Redirects, run.Errors, run.Skipped)
	return err
}

// UpsertDomainOverride is a straightforward overwrite on conflict.
func (s *Store) UpsertDomainOverride(ctx context.Context, o *models.DomainOverride) error {
	mainSelectors, err := jsonOrNil(stringSliceOrNil(o.MainContentSelectors))
	if err != nil {
		return fmt.Errorf("storage: marshal main_content_selectors: %w", err)
	}
	removeSelectors, err := jsonOrNil(stringSliceOrNil(o.RemoveSelectors))
	if err != nil {
		return fmt.Errorf("storage: marshal remove_selectors: %w", err)
	}
	var forceMode *string
	if o.ForceFetchMode != nil {
		m := string(*o.ForceFetchMode)
		forceMode = &m
	}

	const query = `
	INSERT INTO domain_overrides (domain, enabled, main_content_selectors, remove_selectors, force_fetch_mode, notes)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (domain) DO UPDATE SET
		enabled = EXCLUDED.enabled,
		main_content_selectors = EXCLUDED.main_content_selectors,
		remove_selectors = EXCLUDED.remove_selectors,
		force_fetch_mode = EXCLUDED.force_fetch_mode,
		notes = EXCLUDED.notes`
	_, err = s.db.ExecContext(ctx, query, o.Domain, o.Enabled, mainSelectors, removeSelectors, forceMode, o.Notes)
	return err
}

// LoadDomainOverrides reads the full table, satisfying override.Loader.
func (s *Store) LoadDomainOverrides(ctx context.Context) ([]models.DomainOverride, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, enabled, main_content_selectors, remove_selectors, force_fetch_mode, notes FROM domain_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DomainOverride
	for rows.Next() {
		var o models.DomainOverride
		var mainSel, removeSel []byte
		var forceMode sql.NullString
		if err := rows.Scan(&o.Domain, &o.Enabled, &mainSel, &removeSel, &forceMode, &o.Notes); err != nil {
			return nil, err
		}
		if len(mainSel) > 0 {
			if err := json.Unmarshal(mainSel, &o.MainContentSelectors); err != nil {
				return nil, fmt.Errorf("storage: unmarshal main_content_selectors: %w", err)
			}
		}
		if len(removeSel) > 0 {
			if err := json.Unmarshal(removeSel, &o.RemoveSelectors); err != nil {
				return nil, fmt.Errorf("storage: unmarshal remove_selectors: %w", err)
			}
		}
		if forceMode.Valid && forceMode.String != "" {
			m := models.FetchMode(forceMode.String)
			o.ForceFetchMode = &m
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PageExistsByFinalURL reports whether a Page row already exists for the
// given canonical URL, used by the orchestrator's recrawl-skip check.
func (s *Store) PageExistsByFinalURL(ctx context.Context, finalURL string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pages WHERE final_url = $1)`, finalURL).Scan(&exists)
	return exists, err
}
