package storage

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivecrawl/models"
)

func TestUpsertPage_RunsHashGatedUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := FromDB(db)

	mock.ExpectQuery("INSERT INTO pages").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	hash := "abc123"
	page := &models.Page{
		FinalURL:      "https://example.com/a",
		StatusCode:    200,
		CrawlStatus:   models.StatusOK,
		FetchMode:     models.FetchStatic,
		RunID:         "run-1",
		ContentHash:   &hash,
		HTMLContent:   "<html></html>",
		CleanHTML:     "<p>hi</p>",
		LastCrawledAt: time.Now(),
	}

	err = store.UpsertPage(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, int64(42), page.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAlias_ExecutesUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := FromDB(db)

	mock.ExpectExec("INSERT INTO url_aliases").WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.UpsertAlias(context.Background(), &models.UrlAlias{
		RequestedURL: "https://example.com/old",
		FinalURL:     "https://example.com/new",
		StatusCode:   301,
		RunID:        "run-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRunAndFinishRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := FromDB(db)

	mock.ExpectExec("INSERT INTO crawl_runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE crawl_runs SET finished_at").WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.CrawlRun{
		RunID:        "run-1",
		SeedSitemaps: []string{"https://example.com/sitemap.xml"},
		MaxPages:     100,
		StartedAt:    time.Now(),
	}
	require.NoError(t, store.CreateRun(context.Background(), run))
	require.NoError(t, store.FinishRun(context.Background(), run))
	assert.NotNil(t, run.FinishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDomainOverrides_UnmarshalsJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := FromDB(db)

	rows := sqlmock.NewRows([]string{"domain", "enabled", "main_content_selectors", "remove_selectors", "force_fetch_mode", "notes"}).
		AddRow("example.com", true, []byte(`["#main"]`), []byte(`[".ads"]`), "browser", "test note")
	mock.ExpectQuery("SELECT domain, enabled").WillReturnRows(rows)

	overrides, err := store.LoadDomainOverrides(context.Background())
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, "example.com", overrides[0].Domain)
	assert.Equal(t, []string{"#main"}, overrides[0].MainContentSelectors)
	require.NotNil(t, overrides[0].ForceFetchMode)
	assert.Equal(t, models.FetchBrowser, *overrides[0].ForceFetchMode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageExistsByFinalURL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := FromDB(db)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.PageExistsByFinalURL(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
