package pipeline

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quelltext/provenia/internal/cache"
	"github.com/quelltext/provenia/internal/util"
	"github.com/quelltext/provenia/internal/worker"
)

// Fetcher retrieves origin pages for the merge engine. Every fetch goes
// through the robots.txt gate and the per-domain rate limiter; successful
// responses land in the page cache so a rerun over the same entity is free.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	cache   cache.Cache
	limiter *worker.Limiter
	robots  *util.RobotsChecker
	ttl     time.Duration
}

// Options configures a Fetcher. Cache, Limiter and Robots may each be nil to
// disable that concern (tests mostly run without them).
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	MaxBytes    int64
	CacheTTL    time.Duration
	HTTPProxy   string
	HTTPSProxy  string
	InsecureTLS bool

	Cache   cache.Cache
	Limiter *worker.Limiter
	Robots  *util.RobotsChecker
}

// NewFetcher creates a fetcher.
func NewFetcher(opts Options) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy),
	}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		cache:     opts.Cache,
		limiter:   opts.Limiter,
		robots:    opts.Robots,
		ttl:       opts.CacheTTL,
	}
}

// Fetch returns the page body for a URL, from cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	key := cache.Key(rawURL)
	if f.cache != nil {
		if body, found := f.cache.Get(key); found {
			return string(body), nil
		}
	}

	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return "", fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return "", fmt.Errorf("disallowed by robots.txt: %s", rawURL)
		}
		if f.limiter != nil {
			if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
				return "", err
			}
		}
	} else if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return "", err
		}
	}

	body, err := f.fetchWithRetry(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if f.cache != nil {
		// A cache write failure is not a fetch failure.
		_ = f.cache.Set(key, []byte(body), f.ttl)
	}

	return body, nil
}

// fetchSleepFunc is swapped out in tests to avoid real backoff waits.
var fetchSleepFunc = time.Sleep

const fetchAttempts = 3

// fetchWithRetry retries transient failures (5xx, 429, connection drops)
// with linear backoff. Client errors fail immediately.
func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		body, err := f.fetch(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return "", err
		}
		if attempt < fetchAttempts {
			fetchSleepFunc(time.Duration(attempt) * time.Second)
		}
	}
	return "", lastErr
}

// isRetryableFetchError classifies fetch errors by message: server-side and
// rate-limit statuses plus dropped connections are worth retrying.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"unexpected status: 5",
		"unexpected status: 429",
		"connection refused",
		"connection reset",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}
