package sitemap

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	bodies map[string][]byte
	errs   map[string]error
}

func (f *fakeSource) Fetch(_ context.Context, u string) ([]byte, error) {
	if err, ok := f.errs[u]; ok {
		return nil, err
	}
	body, ok := f.bodies[u]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", u)
	}
	return body, nil
}

const indexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://ex.com/post-sitemap.xml</loc></sitemap>
  <sitemap><loc>https://ex.com/page-sitemap.xml</loc></sitemap>
</sitemapindex>`

const postSitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://ex.com/blog/hello-world</loc></url>
  <url><loc>https://ex.com/blog/second-post/</loc></url>
</urlset>`

const pageSitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://ex.com/about</loc></url>
  <url><loc>https://ex.com/blog/hello-world?utm_source=feed</loc></url>
</urlset>`

func TestIntake_ExpandsIndexAndKeepsDistinctRawURLs(t *testing.T) {
	src := &fakeSource{bodies: map[string][]byte{
		"https://ex.com/sitemap_index.xml": []byte(indexXML),
		"https://ex.com/post-sitemap.xml":  []byte(postSitemapXML),
		"https://ex.com/page-sitemap.xml":  []byte(pageSitemapXML),
	}}

	intake := New(src, nil)
	entries := intake.Run(context.Background(), []string{"https://ex.com/sitemap_index.xml"})

	require.Len(t, entries, 4, "raw <loc> values are only deduped when byte-identical")

	byRaw := map[string]Entry{}
	for _, e := range entries {
		byRaw[e.Raw] = e
	}

	helloWorld, ok := byRaw["https://ex.com/blog/hello-world"]
	require.True(t, ok)
	assert.Equal(t, "https://ex.com/post-sitemap.xml", helloWorld.SitemapSource)
	require.NotNil(t, helloWorld.TypeHint)
	assert.Equal(t, "post", *helloWorld.TypeHint)

	helloWorldTracked, ok := byRaw["https://ex.com/blog/hello-world?utm_source=feed"]
	require.True(t, ok, "a tracking-parameter variant of an already-seen URL is kept as its own entry")
	assert.Equal(t, helloWorld.Canonical, helloWorldTracked.Canonical, "both variants share one canonical form")

	about, ok := byRaw["https://ex.com/about"]
	require.True(t, ok)
	require.NotNil(t, about.TypeHint)
	assert.Equal(t, "page", *about.TypeHint)
}

func TestIntake_OneSeedFailureDoesNotAbortOthers(t *testing.T) {
	src := &fakeSource{
		bodies: map[string][]byte{
			"https://good.com/sitemap.xml": []byte(postSitemapXML),
		},
		errs: map[string]error{
			"https://bad.com/sitemap.xml": fmt.Errorf("connection refused"),
		},
	}

	intake := New(src, nil)
	entries := intake.Run(context.Background(), []string{
		"https://bad.com/sitemap.xml",
		"https://good.com/sitemap.xml",
	})

	assert.Len(t, entries, 2)
}

func TestTypeHintFor(t *testing.T) {
	cases := map[string]string{
		"post-sitemap1.xml":     "post",
		"page-sitemap.xml":      "page",
		"product-sitemap.xml":   "product",
		"category-sitemap.xml":  "pagination",
		"news-sitemap.xml":      "post",
		"event-sitemap.xml":     "event",
		"portfolio-sitemap.xml": "portfolio",
	}
	for file, want := range cases {
		got := typeHintFor("https://ex.com/" + file)
		require.NotNil(t, got, file)
		assert.Equal(t, want, *got, file)
	}

	assert.Nil(t, typeHintFor("https://ex.com/sitemap.xml"))
}
