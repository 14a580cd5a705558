// Package report implements periodic progress logging and an end-of-run
// tabular summary for a crawl run.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"archivecrawl/models"
)

// ProgressEvery is how often, in crawled pages, a progress record is
// emitted.
const ProgressEvery = 10

// Reporter emits progress records during a run and a final summary at the
// end, logging through the shared logrus logger rather than bare stdout
// prints.
type Reporter struct {
	log *logrus.Logger
}

// New builds a Reporter bound to log.
func New(log *logrus.Logger) *Reporter {
	return &Reporter{log: log}
}

// Progress logs a progress record if crawled is a non-zero multiple of
// ProgressEvery.
func (r *Reporter) Progress(run *models.CrawlRun) {
	if run.Crawled == 0 || run.Crawled%ProgressEvery != 0 {
		return
	}
	r.log.WithFields(logrus.Fields{
		"run_id":     run.RunID,
		"discovered": run.Discovered,
		"crawled":    run.Crawled,
		"redirects":  run.Redirects,
		"errors":     run.Errors,
		"skipped":    run.Skipped,
	}).Info("crawl progress")
}

// Summary logs the final run counts and duration.
func (r *Reporter) Summary(run *models.CrawlRun) {
	var duration time.Duration
	if run.FinishedAt != nil {
		duration = run.FinishedAt.Sub(run.StartedAt)
	}

	var b strings.Builder
	b.WriteString("\nCrawl Summary\n")
	b.WriteString("=============\n")
	fmt.Fprintf(&b, "%-14s %d\n", "Discovered", run.Discovered)
	fmt.Fprintf(&b, "%-14s %d\n", "Crawled", run.Crawled)
	fmt.Fprintf(&b, "%-14s %d\n", "Redirects", run.Redirects)
	fmt.Fprintf(&b, "%-14s %d\n", "Errors", run.Errors)
	fmt.Fprintf(&b, "%-14s %d\n", "Skipped", run.Skipped)
	fmt.Fprintf(&b, "%-14s %s\n", "Content size", TotalContentSize(run.TotalContentBytes))
	fmt.Fprintf(&b, "%-14s %s\n", "Duration", duration.Round(time.Second))

	r.log.Info(b.String())
}

// formatBytes renders a byte count in human units, adapted from the
// teacher's benchmark.formatBytes for reporting total page-body size.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// TotalContentSize reports the aggregate byte size processed in the run, for
// inclusion in an extended summary line.
func TotalContentSize(totalBytes int64) string {
	return formatBytes(totalBytes)
}
