// Package collygetter implements the fetch transport using gocolly.
package collygetter

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/avelkov/newsreel/internal/fetcher"
)

// Getter performs single HTTP GETs through a Colly collector. One cookie
// jar is shared across all requests so a session established on one
// attempt carries into the retries.
type Getter struct {
	baseCollector *colly.Collector
	jar           http.CookieJar
}

// New builds a Getter.
func New() (*Getter, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := colly.NewCollector(colly.Async(false))
	// retries hit the same entry URL, so revisits must be allowed, and
	// blocked statuses must surface as responses rather than errors
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())
	c.SetCookieJar(jar)

	return &Getter{baseCollector: c, jar: jar}, nil
}

// Get fetches the URL once. Responses with non-2xx status codes are
// returned as pages, not errors; only transport failures error out.
func (g *Getter) Get(ctx context.Context, url string, headers http.Header, timeout time.Duration) (fetcher.Page, error) {
	var (
		page     fetcher.Page
		got      bool
		fetchErr error
	)

	collector := g.baseCollector.Clone()
	collector.SetCookieJar(g.jar)
	if timeout > 0 {
		collector.SetRequestTimeout(timeout)
	}

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		page = fetcher.Page{
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			FinalURL:   r.Request.URL.String(),
		}
		got = true
	})

	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := runCollector(ctx, collector, url); err != nil {
		return fetcher.Page{}, err
	}
	if fetchErr != nil {
		return fetcher.Page{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	if !got {
		return fetcher.Page{}, fmt.Errorf("fetch %s: no response received", url)
	}
	return page, nil
}

func runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
