package crawler

import (
	"bytes"
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivecrawl/fetch"
	"archivecrawl/models"
	"archivecrawl/override"
	"archivecrawl/sitemap"
	"archivecrawl/storage"
)

type fakeSitemapSource struct {
	body []byte
	err  error
}

func (f fakeSitemapSource) Fetch(ctx context.Context, sitemapURL string) ([]byte, error) {
	return f.body, f.err
}

type fakeFetcher struct {
	results map[string]fetch.Result
	errs    map[string]error
	err     error
}

func (f fakeFetcher) Fetch(ctx context.Context, requestURL string, timeout time.Duration) (fetch.Result, error) {
	if f.err != nil {
		return fetch.Result{}, f.err
	}
	if err, ok := f.errs[requestURL]; ok {
		return fetch.Result{}, err
	}
	if r, ok := f.results[requestURL]; ok {
		return r, nil
	}
	return fetch.Result{FinalURL: requestURL, StatusCode: 200, Body: []byte("<html><body><p>hello world</p></body></html>")}, nil
}

func (f fakeFetcher) Mode() models.FetchMode { return models.FetchStatic }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	return log
}

const sitemapXML = `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`

const sitemapXMLWithDuplicateCanonical = `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/a?utm_source=feed</loc></url>
</urlset>`

func TestRun_DryRunSkipsStorage(t *testing.T) {
	intake := sitemap.New(fakeSitemapSource{body: []byte(sitemapXML)}, testLogger())
	orc := New(intake, fakeFetcher{}, nil, nil, testLogger(), 2)

	run, err := orc.Run(context.Background(), Request{
		Sitemaps: []string{"https://example.com/sitemap.xml"},
		RunID:    "run-dry",
		DryRun:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "run-dry", run.RunID)
}

func TestRun_ZeroURLsIsAnError(t *testing.T) {
	intake := sitemap.New(fakeSitemapSource{err: assertErr{}}, testLogger())
	orc := New(intake, fakeFetcher{}, nil, nil, testLogger(), 2)

	_, err := orc.Run(context.Background(), Request{
		Sitemaps: []string{"https://example.com/sitemap.xml"},
		RunID:    "run-empty",
	})
	assert.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, models.StatusOK, classifyStatus(200))
	assert.Equal(t, models.StatusNotFound, classifyStatus(404))
	assert.Equal(t, models.StatusNotFound, classifyStatus(410))
	assert.Equal(t, models.StatusError, classifyStatus(500))
	assert.Equal(t, models.StatusError, classifyStatus(301))
}

// TestRun_DuplicateCanonicalSharesOnePageButWritesTwoAliases covers invariant
// 9: two sitemap-seeded raw URLs that normalize to the same canonical must
// collapse to a single fetch and a single Page row, while each raw URL still
// gets its own Alias row.
func TestRun_DuplicateCanonicalSharesOnePageButWritesTwoAliases(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := storage.FromDB(db)

	mock.ExpectExec("INSERT INTO crawl_runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO pages").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO url_aliases").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO url_aliases").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE crawl_runs SET finished_at").WillReturnResult(sqlmock.NewResult(1, 1))

	intake := sitemap.New(fakeSitemapSource{body: []byte(sitemapXMLWithDuplicateCanonical)}, testLogger())
	orc := New(intake, fakeFetcher{}, store, override.New(), testLogger(), 1)

	run, err := orc.Run(context.Background(), Request{
		Sitemaps: []string{"https://example.com/sitemap.xml"},
		RunID:    "run-dup",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, run.Crawled, "one fetch for both raw URLs sharing a canonical")
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestRun_MaxPagesCountsOnlySuccessfulFetches covers §5: the cap counts
// successful fetches, not candidates pulled off the queue, so an errored
// entry must not consume it.
func TestRun_MaxPagesCountsOnlySuccessfulFetches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := storage.FromDB(db)

	mock.ExpectExec("INSERT INTO crawl_runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("INSERT INTO pages").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO pages").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec("INSERT INTO url_aliases").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO url_aliases").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE crawl_runs SET finished_at").WillReturnResult(sqlmock.NewResult(1, 1))

	fetcher := fakeFetcher{
		errs: map[string]error{
			"https://example.com/a": assertErr{},
		},
		results: map[string]fetch.Result{
			"https://example.com/b": {FinalURL: "https://example.com/b", StatusCode: 200, Body: []byte("<html><body><p>hello world</p></body></html>")},
		},
	}

	intake := sitemap.New(fakeSitemapSource{body: []byte(sitemapXML)}, testLogger())
	orc := New(intake, fetcher, store, override.New(), testLogger(), 1)

	run, err := orc.Run(context.Background(), Request{
		Sitemaps: []string{"https://example.com/sitemap.xml"},
		RunID:    "run-cap",
		MaxPages: 1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, run.Crawled, "the errored entry must not consume the cap")
	assert.EqualValues(t, 1, run.Errors)
}
