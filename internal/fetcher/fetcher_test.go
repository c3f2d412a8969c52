package fetcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/scraper"
)

type scriptedGetter struct {
	mu      sync.Mutex
	pages   []Page
	errs    []error
	headers []http.Header
}

func (g *scriptedGetter) Get(_ context.Context, _ string, headers http.Header, _ time.Duration) (Page, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.headers)
	g.headers = append(g.headers, headers)
	if i < len(g.errs) && g.errs[i] != nil {
		return Page{}, g.errs[i]
	}
	if i < len(g.pages) {
		return g.pages[i], nil
	}
	return Page{StatusCode: http.StatusOK, Body: []byte("<html><body>ok</body></html>")}, nil
}

func (g *scriptedGetter) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.headers)
}

func fastConfig() Config {
	return Config{
		StandardTimeout:    time.Second,
		HardenedTimeout:    time.Second,
		MaxAttempts:        3,
		PreRequestDelay:    time.Millisecond,
		BlockedWait:        time.Millisecond,
		RetryWait:          time.Millisecond,
		TransportRetryWait: time.Millisecond,
	}
}

func standardSource() scraper.Source {
	return scraper.Source{
		Name:      "Example News",
		EntryURL:  "https://example.com/news",
		Selectors: []string{"h2 a"},
		Class:     scraper.ClassStandard,
	}
}

func hardenedSource() scraper.Source {
	src := standardSource()
	src.Class = scraper.ClassHardened
	return src
}

func TestFetchStandardSingleAttempt(t *testing.T) {
	t.Parallel()

	getter := &scriptedGetter{
		pages: []Page{{StatusCode: http.StatusOK, Body: []byte("<html>hello</html>"), FinalURL: "https://example.com/news"}},
	}
	client := New(getter, fastConfig(), zap.NewNop())

	res, err := client.Fetch(context.Background(), standardSource())
	require.NoError(t, err)
	require.Equal(t, 1, getter.calls())
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 1, res.Attempts)
	require.Equal(t, []byte("<html>hello</html>"), res.Body)
	require.False(t, res.Rendered)
	require.Equal(t, chromeProfile.userAgent, getter.headers[0].Get("User-Agent"))
}

func TestFetchStandardBlockedStatus(t *testing.T) {
	t.Parallel()

	getter := &scriptedGetter{pages: []Page{{StatusCode: http.StatusForbidden}}}
	client := New(getter, fastConfig(), zap.NewNop())

	_, err := client.Fetch(context.Background(), standardSource())
	require.Error(t, err)
	require.Equal(t, 1, getter.calls())

	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scraper.FetchBlocked, fe.Kind)
	require.Equal(t, http.StatusForbidden, fe.Status)
}

func TestFetchStandardHTTPOther(t *testing.T) {
	t.Parallel()

	getter := &scriptedGetter{pages: []Page{{StatusCode: http.StatusInternalServerError}}}
	client := New(getter, fastConfig(), zap.NewNop())

	_, err := client.Fetch(context.Background(), standardSource())
	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scraper.FetchHTTPOther, fe.Kind)
	require.Equal(t, http.StatusInternalServerError, fe.Status)
}

func TestFetchHardenedSwapsProfileAfter403(t *testing.T) {
	t.Parallel()

	getter := &scriptedGetter{
		pages: []Page{
			{StatusCode: http.StatusForbidden},
			{StatusCode: http.StatusForbidden},
			{StatusCode: http.StatusOK, Body: []byte("<html>finally</html>")},
		},
	}
	client := New(getter, fastConfig(), zap.NewNop())

	res, err := client.Fetch(context.Background(), hardenedSource())
	require.NoError(t, err)
	require.Equal(t, 3, getter.calls())
	require.Equal(t, 3, res.Attempts)

	require.Equal(t, chromeProfile.userAgent, getter.headers[0].Get("User-Agent"))
	require.Equal(t, safariProfile.userAgent, getter.headers[1].Get("User-Agent"))
	require.Equal(t, safariProfile.userAgent, getter.headers[2].Get("User-Agent"))
}

func TestFetchHardenedExhaustionIsBlocked(t *testing.T) {
	t.Parallel()

	getter := &scriptedGetter{
		pages: []Page{
			{StatusCode: http.StatusForbidden},
			{StatusCode: http.StatusServiceUnavailable},
			{StatusCode: http.StatusForbidden},
		},
	}
	client := New(getter, fastConfig(), zap.NewNop())

	_, err := client.Fetch(context.Background(), hardenedSource())
	require.Error(t, err)
	require.Equal(t, 3, getter.calls())

	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scraper.FetchBlocked, fe.Kind)
	require.Equal(t, http.StatusForbidden, fe.Status)
}

func TestFetchHardenedRetriesTransportErrors(t *testing.T) {
	t.Parallel()

	getter := &scriptedGetter{
		errs: []error{
			errors.New("connection reset"),
			nil,
		},
		pages: []Page{
			{},
			{StatusCode: http.StatusOK, Body: []byte("<html>ok</html>")},
		},
	}
	client := New(getter, fastConfig(), zap.NewNop())

	res, err := client.Fetch(context.Background(), hardenedSource())
	require.NoError(t, err)
	require.Equal(t, 2, getter.calls())
	require.Equal(t, 2, res.Attempts)
}

func TestFetchClassifiesTimeout(t *testing.T) {
	t.Parallel()

	getter := &scriptedGetter{errs: []error{context.DeadlineExceeded}}
	client := New(getter, fastConfig(), zap.NewNop())

	_, err := client.Fetch(context.Background(), standardSource())
	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scraper.FetchTimeout, fe.Kind)
}

func TestFetchClassifiesConnectionError(t *testing.T) {
	t.Parallel()

	getter := &scriptedGetter{errs: []error{errors.New("no route to host")}}
	client := New(getter, fastConfig(), zap.NewNop())

	_, err := client.Fetch(context.Background(), standardSource())
	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scraper.FetchConnection, fe.Kind)
}

func TestFetchHardenedCancelDuringWait(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.PreRequestDelay = time.Minute

	getter := &scriptedGetter{}
	client := New(getter, cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Fetch(ctx, hardenedSource())
	require.ErrorIs(t, err, context.Canceled)
	_, isFetchErr := scraper.IsFetchError(err)
	require.False(t, isFetchErr)
	require.Zero(t, getter.calls())
}

type staticRenderer struct {
	body   []byte
	status int
	err    error
	calls  int
}

func (r *staticRenderer) Render(_ context.Context, _, _ string) ([]byte, int, error) {
	r.calls++
	return r.body, r.status, r.err
}

func TestFetchPromotesBlockPageToRenderer(t *testing.T) {
	t.Parallel()

	blockBody := []byte("<html><body>Please verify you are human. Captcha required.</body></html>")
	getter := &scriptedGetter{pages: []Page{{StatusCode: http.StatusOK, Body: blockBody}}}
	renderer := &staticRenderer{body: []byte("<html><body><h2><a href='/x'>Real headline content here today</a></h2></body></html>"), status: http.StatusOK}

	client := New(getter, fastConfig(), zap.NewNop(),
		WithRenderer(renderer),
		WithBlockDetector(NewBlockDetector(0, nil)),
	)

	res, err := client.Fetch(context.Background(), standardSource())
	require.NoError(t, err)
	require.Equal(t, 1, renderer.calls)
	require.True(t, res.Rendered)
	require.Equal(t, renderer.body, res.Body)
}

func TestFetchKeepsPlainBodyWhenRenderFails(t *testing.T) {
	t.Parallel()

	blockBody := []byte("<html><body>unusual traffic detected</body></html>")
	getter := &scriptedGetter{pages: []Page{{StatusCode: http.StatusOK, Body: blockBody}}}
	renderer := &staticRenderer{err: errors.New("browser unavailable")}

	client := New(getter, fastConfig(), zap.NewNop(),
		WithRenderer(renderer),
		WithBlockDetector(NewBlockDetector(0, nil)),
	)

	res, err := client.Fetch(context.Background(), standardSource())
	require.NoError(t, err)
	require.False(t, res.Rendered)
	require.Equal(t, blockBody, res.Body)
}

func TestBlockDetector(t *testing.T) {
	t.Parallel()

	d := NewBlockDetector(64, nil)
	require.True(t, d.Blocked([]byte("<html>tiny</html>")))
	require.True(t, d.Blocked([]byte("<html><body>Access Denied: your request was flagged by our security service.</body></html>")))
	require.False(t, d.Blocked([]byte("<html><body><h2><a href='/a'>Ordinary markets coverage for the morning</a></h2></body></html>")))

	var nilDetector *BlockDetector
	require.False(t, nilDetector.Blocked([]byte("captcha")))
}
