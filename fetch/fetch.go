// Package fetch defines the fetch-layer contract: given a URL and
// timeout, return the terminal URL, status, body, and content type. The
// default implementation is a plain static HTTP client; a browser-driven
// implementation can satisfy the same interface without touching callers.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"archivecrawl/models"
)

// Result is what a Fetcher returns for a single request.
type Result struct {
	FinalURL    string
	StatusCode  int
	Body        []byte
	ContentType string
}

// Fetcher is the fetch-layer contract. Implementations must follow HTTP
// redirects internally and expose only the terminal URL; intermediate hops
// are not part of this contract.
type Fetcher interface {
	Fetch(ctx context.Context, requestURL string, timeout time.Duration) (Result, error)
	Mode() models.FetchMode
}

// StaticClient is the default Fetcher: a plain net/http client with a
// pooled, keep-alive transport and a fixed User-Agent.
type StaticClient struct {
	client    *http.Client
	userAgent string
}

// NewStaticClient builds a StaticClient with pooled keep-alive transport
// settings sized for sustained concurrent crawling.
func NewStaticClient(userAgent string) *StaticClient {
	return &StaticClient{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

func (s *StaticClient) Mode() models.FetchMode { return models.FetchStatic }

func (s *StaticClient) Fetch(ctx context.Context, requestURL string, timeout time.Duration) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: read body: %w", err)
	}

	finalURL := requestURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Result{
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
