// Package fetcher implements HTTP retrieval with session continuity,
// adaptive headers, and per-class retry/backoff. It is the only layer that
// touches the network directly.
package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/scraper"
)

// Page is the raw outcome of a single HTTP attempt.
type Page struct {
	StatusCode int
	Body       []byte
	FinalURL   string
}

// Getter performs one HTTP GET. The fetch client layers retry and anti-bot
// policy on top of it.
type Getter interface {
	Get(ctx context.Context, url string, headers http.Header, timeout time.Duration) (Page, error)
}

// Config captures the retry/backoff knobs, forwarded opaquely from the
// configuration layer.
type Config struct {
	StandardTimeout    time.Duration
	HardenedTimeout    time.Duration
	MaxAttempts        int
	PreRequestDelay    time.Duration
	BlockedWait        time.Duration
	RetryWait          time.Duration
	TransportRetryWait time.Duration
	RateLimitRPS       float64
	RateLimitBurst     int
}

func (c Config) withDefaults() Config {
	if c.StandardTimeout <= 0 {
		c.StandardTimeout = 10 * time.Second
	}
	if c.HardenedTimeout <= 0 {
		c.HardenedTimeout = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PreRequestDelay <= 0 {
		c.PreRequestDelay = 2 * time.Second
	}
	if c.BlockedWait <= 0 {
		c.BlockedWait = 3 * time.Second
	}
	if c.RetryWait <= 0 {
		c.RetryWait = time.Second
	}
	if c.TransportRetryWait <= 0 {
		c.TransportRetryWait = 2 * time.Second
	}
	return c
}

// Client implements scraper.Fetcher. Standard sources get one polite
// attempt; hardened sources get a fixed pre-request delay, multiple
// attempts, and a header-profile swap after a 403.
type Client struct {
	getter   Getter
	renderer scraper.Renderer
	detector *BlockDetector
	limiter  *hostLimiter
	cfg      Config
	logger   *zap.Logger
}

// Option configures optional collaborators on the Client.
type Option func(*Client)

// WithRenderer enables headless re-rendering of pages the block detector
// flags.
func WithRenderer(r scraper.Renderer) Option {
	return func(c *Client) { c.renderer = r }
}

// WithBlockDetector sets the block-page heuristic.
func WithBlockDetector(d *BlockDetector) Option {
	return func(c *Client) { c.detector = d }
}

// New builds a fetch Client over the given Getter.
func New(getter Getter, cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		getter:  getter,
		limiter: newHostLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the source's entry page, applying the policy its anti-bot
// class calls for. Failures are reported as *scraper.FetchError; a canceled
// context surfaces as the context's own error.
func (c *Client) Fetch(ctx context.Context, source scraper.Source) (scraper.FetchResult, error) {
	if source.Hardened() {
		return c.fetchHardened(ctx, source)
	}
	return c.fetchStandard(ctx, source)
}

func (c *Client) fetchStandard(ctx context.Context, source scraper.Source) (scraper.FetchResult, error) {
	start := time.Now()
	page, err := c.attempt(ctx, source, chromeProfile, c.cfg.StandardTimeout)
	if err != nil {
		return scraper.FetchResult{}, c.classifyTransport(ctx, source, err)
	}
	if page.StatusCode != http.StatusOK {
		kind := scraper.FetchHTTPOther
		if blockedStatus(page.StatusCode) {
			kind = scraper.FetchBlocked
			scraper.BlockedFetches.WithLabelValues(scraper.Host(source.EntryURL)).Inc()
		}
		return scraper.FetchResult{}, scraper.NewFetchError(kind, source.Name, page.StatusCode, nil)
	}
	return c.finish(ctx, source, page, chromeProfile, 1, start), nil
}

func (c *Client) fetchHardened(ctx context.Context, source scraper.Source) (scraper.FetchResult, error) {
	if err := sleepCtx(ctx, c.cfg.PreRequestDelay); err != nil {
		return scraper.FetchResult{}, err
	}

	start := time.Now()
	profile := chromeProfile
	lastStatus := 0

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		page, err := c.attempt(ctx, source, profile, c.cfg.HardenedTimeout)
		if err != nil {
			// transport failures are swallowed and retried on non-final
			// attempts; only the final attempt's failure is surfaced
			if attempt == c.cfg.MaxAttempts {
				return scraper.FetchResult{}, c.classifyTransport(ctx, source, err)
			}
			c.logger.Debug("fetch attempt failed, retrying",
				zap.String("source", source.Name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if err := sleepCtx(ctx, c.cfg.TransportRetryWait); err != nil {
				return scraper.FetchResult{}, err
			}
			continue
		}

		if page.StatusCode == http.StatusOK {
			return c.finish(ctx, source, page, profile, attempt, start), nil
		}
		lastStatus = page.StatusCode
		if attempt == c.cfg.MaxAttempts {
			break
		}

		wait := c.cfg.RetryWait
		if page.StatusCode == http.StatusForbidden {
			// blocked: present a different browser signature and give the
			// site a longer breather before the next attempt
			profile = safariProfile
			wait = c.cfg.BlockedWait
			c.logger.Info("got 403, swapping user-agent profile",
				zap.String("source", source.Name),
				zap.Int("attempt", attempt),
			)
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return scraper.FetchResult{}, err
		}
	}

	scraper.BlockedFetches.WithLabelValues(scraper.Host(source.EntryURL)).Inc()
	return scraper.FetchResult{}, scraper.NewFetchError(scraper.FetchBlocked, source.Name, lastStatus, nil)
}

func (c *Client) attempt(
	ctx context.Context,
	source scraper.Source,
	profile headerProfile,
	timeout time.Duration,
) (Page, error) {
	if err := c.limiter.Wait(ctx, source.EntryURL); err != nil {
		return Page{}, err
	}
	scraper.FetchAttempts.WithLabelValues(scraper.Host(source.EntryURL)).Inc()
	return c.getter.Get(ctx, source.EntryURL, profile.headers(source.EntryURL), timeout)
}

// finish assembles the FetchResult, re-rendering through the headless
// browser when a nominally successful response looks like a block page.
func (c *Client) finish(
	ctx context.Context,
	source scraper.Source,
	page Page,
	profile headerProfile,
	attempts int,
	start time.Time,
) scraper.FetchResult {
	body := page.Body
	rendered := false
	if c.detector != nil && c.renderer != nil && c.detector.Blocked(body) {
		c.logger.Info("block page suspected, promoting to headless render",
			zap.String("source", source.Name),
		)
		out, status, err := c.renderer.Render(ctx, source.EntryURL, profile.userAgent)
		switch {
		case err != nil:
			c.logger.Warn("headless render failed, keeping plain body",
				zap.String("source", source.Name),
				zap.Error(err),
			)
		case status == 0 || status == http.StatusOK:
			body = out
			rendered = true
		}
	}
	return scraper.FetchResult{
		Body:       body,
		StatusCode: page.StatusCode,
		FinalURL:   page.FinalURL,
		Attempts:   attempts,
		Rendered:   rendered,
		Duration:   time.Since(start),
	}
}

func (c *Client) classifyTransport(ctx context.Context, source scraper.Source, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return scraper.NewFetchError(scraper.FetchTimeout, source.Name, 0, err)
	}
	return scraper.NewFetchError(scraper.FetchConnection, source.Name, 0, err)
}

func blockedStatus(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// sleepCtx waits for the duration unless the context finishes first.
func sleepCtx(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
