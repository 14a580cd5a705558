package sitemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSource is the default Source implementation: a plain GET with a fixed
// timeout, grounded on circuit-geek-pagepipe's discoverFromSitemap.
type HTTPSource struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPSource builds an HTTPSource with a sane default timeout.
func NewHTTPSource(userAgent string) *HTTPSource {
	return &HTTPSource{
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: userAgent,
	}
}

// Fetch implements Source.
func (h *HTTPSource) Fetch(ctx context.Context, sitemapURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	req.Header.Set("Accept", "application/xml,text/xml;q=0.9,*/*;q=0.8")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sitemap %s returned status %d", sitemapURL, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
