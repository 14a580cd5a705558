// Command archivecrawl is a sitemap-driven web crawler that produces a
// canonical, deduplicated archive of pages with clean Markdown, structural
// markers, and navigation/link-graph metadata.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"archivecrawl/config"
	"archivecrawl/crawler"
	"archivecrawl/fetch"
	"archivecrawl/models"
	"archivecrawl/override"
	"archivecrawl/sitemap"
	"archivecrawl/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	var (
		sitemaps  []string
		maxPages  int
		fetchMode string
		debug     bool
		dryRun    bool
		recrawl   bool
	)

	cmd := &cobra.Command{
		Use:           "archivecrawl",
		Short:         "Crawl sitemaps into a canonical, deduplicated page archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Debug = debug
			log := cfg.Logger()

			fm := models.FetchStatic
			if fetchMode == "browser" {
				fm = models.FetchBrowser
			}

			httpSource := sitemap.NewHTTPSource(cfg.UserAgent)
			intake := sitemap.New(httpSource, log)
			fetcher := fetch.NewStaticClient(cfg.UserAgent)

			req := crawler.Request{
				Sitemaps:         sitemaps,
				RunID:            uuid.NewString(),
				MaxPages:         maxPages,
				FetchModeDefault: fm,
				Recrawl:          recrawl,
				DryRun:           dryRun,
			}

			if dryRun {
				orc := crawler.New(intake, fetcher, nil, override.New(), log, cfg.Concurrency)
				_, err := orc.Run(cmd.Context(), req)
				return err
			}

			store, err := storage.Open(cfg.DSN())
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer store.Close()

			overrides := override.New()
			if err := overrides.Load(cmd.Context(), store); err != nil {
				log.WithError(err).Warn("failed to load domain overrides, proceeding without them")
			}

			orc := crawler.New(intake, fetcher, store, overrides, log, cfg.Concurrency)
			_, err = orc.Run(cmd.Context(), req)
			return err
		},
	}

	cmd.Flags().StringArrayVar(&sitemaps, "sitemap", nil, "sitemap URL to crawl (repeatable, required)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 10000, "maximum number of pages to crawl")
	cmd.Flags().StringVar(&fetchMode, "fetch-mode", "static", "fetch mode: static or browser")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable verbose logs")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run sitemap intake only, print first 10 URLs, no DB writes")
	cmd.Flags().BoolVar(&recrawl, "recrawl", false, "disable the existence-skip for already-crawled pages")
	cmd.MarkFlagRequired("sitemap")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	cmd.SetContext(ctx)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
