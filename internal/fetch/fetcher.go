package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	DefaultConcurrency = 6
	DefaultMaxAttempts = 3
	DefaultTimeout     = 15 * time.Second
	DefaultBackoffBase = 300 * time.Millisecond
	DefaultMaxJitter   = 150 * time.Millisecond
	DefaultUserAgent   = "Mozilla/5.0 (compatible; extraliga/1.0)"
	// NHL endpoints are picky about Referer.
	DefaultReferer = "https://www.nhl.com/"

	maxErrorBody = 512
)

// ErrRateLimited is returned when the upstream kept answering 429 until attempts ran out.
var ErrRateLimited = errors.New("upstream rate limited")

// StatusError is a non-2xx upstream answer other than 429.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Code)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is (or wraps) an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Request describes one remote JSON resource.
type Request struct {
	URL    string
	Header http.Header
}

// Result is the outcome for one Request of a batch. Body is nil when Err is set.
type Result struct {
	Request Request
	Body    []byte
	Err     error
}

// Options tune the fetcher. Zero fields take the package defaults.
type Options struct {
	Concurrency int
	MaxAttempts int
	Timeout     time.Duration
	BackoffBase time.Duration
	MaxJitter   time.Duration
	// RatePerSec paces outbound attempts; 0 disables pacing.
	RatePerSec float64
	Burst      int
	UserAgent  string
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	if o.MaxJitter < 0 {
		o.MaxJitter = 0
	}
	if o.Burst <= 0 {
		o.Burst = o.Concurrency
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// Fetcher retrieves remote JSON with retries, backoff, pacing and a fixed
// worker-pool ceiling for batches.
type Fetcher struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	cache   *Cache
	// wait sleeps between attempts; swapped in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// New returns a Fetcher. httpClient may be nil; cache may be nil to disable
// caching and coalescing.
func New(httpClient *http.Client, opts Options, cache *Cache) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	opts = opts.withDefaults()
	limiter := rate.NewLimiter(rate.Inf, opts.Burst)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst)
	}
	return &Fetcher{
		http:    httpClient,
		opts:    opts,
		limiter: limiter,
		cache:   cache,
		wait:    sleepCtx,
	}
}

// Get fetches one resource, through the cache when one is configured.
func (f *Fetcher) Get(ctx context.Context, req Request) ([]byte, error) {
	if f.cache == nil {
		return f.fetch(ctx, req)
	}
	return f.cache.Get(ctx, req.URL, func(ctx context.Context) ([]byte, error) {
		return f.fetch(ctx, req)
	})
}

// GetJSON fetches url and decodes the body into out.
func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	body, err := f.Get(ctx, Request{URL: url})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// FetchAll retrieves every request with at most Concurrency requests in flight.
// Results are positional. A failed request is reported in its Result and never
// aborts the others. Once ctx is done, requests still queued are not sent and
// carry ctx's error.
func (f *Fetcher) FetchAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	workers := min(f.opts.Concurrency, len(reqs))

	queue := make(chan int, len(reqs))
	for i := range reqs {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				if err := ctx.Err(); err != nil {
					results[i] = Result{Request: reqs[i], Err: err}
					continue
				}
				body, err := f.Get(ctx, reqs[i])
				if err != nil {
					slog.Warn("fetch failed", "url", reqs[i].URL, "error", err)
				}
				results[i] = Result{Request: reqs[i], Body: body, Err: err}
			}
		}()
	}
	wg.Wait()

	slog.Debug("batch fetch complete", "requests", len(reqs), "workers", workers)
	return results
}

// fetch runs the retry loop for one request.
func (f *Fetcher) fetch(ctx context.Context, req Request) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.opts.MaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		body, err := f.attempt(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrRateLimited) {
			slog.Warn("rate limited by upstream", "url", req.URL, "attempt", attempt+1)
		} else {
			slog.Debug("fetch attempt failed", "url", req.URL, "attempt", attempt+1, "error", err)
		}
		if attempt == f.opts.MaxAttempts-1 {
			break
		}
		if err := f.wait(ctx, f.backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", req.URL, f.opts.MaxAttempts, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, req Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	hr, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("User-Agent", f.opts.UserAgent)
	hr.Header.Set("Referer", DefaultReferer)
	for k, vv := range req.Header {
		hr.Header.Del(k)
		for _, v := range vv {
			hr.Header.Add(k, v)
		}
	}

	resp, err := f.http.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{URL: req.URL, Code: resp.StatusCode, Body: string(body)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// backoff is base * 2^attempt plus up to MaxJitter of random jitter.
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := f.opts.BackoffBase << attempt
	if f.opts.MaxJitter > 0 {
		d += time.Duration(rand.Int64N(int64(f.opts.MaxJitter)))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
