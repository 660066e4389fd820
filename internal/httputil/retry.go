// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the rate-limited fetcher shared by every paper
// source: bounded retries, jittered and escalating backoff, per-attempt
// timeouts, user-agent rotation, and an optional proxy provider.
package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/gscientist/pkg/types"
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// ProxyProvider hands out proxies for individual attempts. Acquire returns
// types.ErrNoProxyAvailable when nothing usable is left.
type ProxyProvider interface {
	Acquire(ctx context.Context) (*url.URL, error)
	Evict(u *url.URL)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher performs GET requests with the retry policy of a RetryConfig.
// A Fetcher is safe for sequential use; concurrent use is safe as long as
// the configured ProxyProvider is.
type Fetcher struct {
	client     *http.Client
	policy     types.RetryConfig
	limiter    *rate.Limiter
	proxies    ProxyProvider
	userAgents []string
	header     http.Header
	sleep      SleepFunc
	log        zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the base HTTP client. Proxied attempts clone its transport.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithProxies routes every attempt through a proxy from p.
func WithProxies(p ProxyProvider) Option {
	return func(f *Fetcher) { f.proxies = p }
}

// WithLimiter overrides the limiter derived from RetryConfig.MinInterval.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithUserAgents replaces the built-in user-agent list.
func WithUserAgents(uas []string) Option {
	return func(f *Fetcher) {
		if len(uas) > 0 {
			f.userAgents = uas
		}
	}
}

// WithHeader adds a header sent on every attempt.
func WithHeader(key, value string) Option {
	return func(f *Fetcher) { f.header.Set(key, value) }
}

// WithSleep replaces the backoff sleep. Tests use it to avoid real waits.
func WithSleep(s SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = s }
}

// WithLogger sets the logger for attempt failures.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// NewFetcher builds a Fetcher. Zero fields of policy fall back to
// types.DefaultRetryConfig, except MinInterval where zero means no limiter.
func NewFetcher(policy types.RetryConfig, opts ...Option) *Fetcher {
	def := types.DefaultRetryConfig()
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = def.MaxRetries
	}
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	if policy.RateLimitBase <= 0 {
		policy.RateLimitBase = def.RateLimitBase
	}
	if policy.DelayMax < policy.DelayMin {
		policy.DelayMax = policy.DelayMin
	}

	f := &Fetcher{
		client:     &http.Client{},
		policy:     policy,
		userAgents: defaultUserAgents,
		header: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.5"},
		},
		sleep: SleepContext,
		log:   zerolog.Nop(),
	}
	if policy.MinInterval > 0 {
		f.limiter = rate.NewLimiter(rate.Every(policy.MinInterval), 1)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the effective retry policy.
func (f *Fetcher) Policy() types.RetryConfig { return f.policy }

// Get fetches rawURL with params appended and returns the response body.
func (f *Fetcher) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	var body []byte
	err := f.Stream(ctx, rawURL, params, func(r io.Reader) error {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		body = buf.Bytes()
		return nil
	})
	return body, err
}

// Stream fetches rawURL and hands the body of a successful response to fn.
// fn runs once per attempt that reaches a 2xx status; an error from fn
// counts as a failed attempt, so fn must not keep partial state across
// calls.
//
// The attempt loop runs at most MaxRetries times. After an HTTP 429 it
// sleeps attempt*RateLimitBase, after any other failure a uniform random
// duration in [DelayMin, DelayMax]. When every attempt fails it returns a
// *types.FetchExhaustedError wrapping the last failure. A cancelled context
// returns ctx.Err().
func (f *Fetcher) Stream(ctx context.Context, rawURL string, params url.Values, fn func(io.Reader) error) error {
	target := withParams(rawURL, params)
	attempts := f.policy.MaxRetries

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		rateLimited, err := f.attempt(ctx, target, fn)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := Jitter(f.policy.DelayMin, f.policy.DelayMax)
		if rateLimited {
			wait = time.Duration(attempt) * f.policy.RateLimitBase
		}
		f.log.Warn().Err(err).
			Str("url", rawURL).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("backoff", wait).
			Msg("fetch attempt failed")

		if err := f.sleep(ctx, wait); err != nil {
			return err
		}
	}

	f.log.Error().Err(lastErr).Str("url", rawURL).Int("attempts", attempts).Msg("fetch exhausted")
	return &types.FetchExhaustedError{URL: rawURL, Attempts: attempts, Err: lastErr}
}

// attempt performs one request. rateLimited is true for HTTP 429.
func (f *Fetcher) attempt(ctx context.Context, target string, fn func(io.Reader) error) (rateLimited bool, err error) {
	client := f.client
	var proxyURL *url.URL
	if f.proxies != nil {
		proxyURL, err = f.proxies.Acquire(ctx)
		if err != nil {
			return false, err
		}
		client = proxiedClient(f.client, proxyURL)
	}

	actx, cancel := context.WithTimeout(ctx, f.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range f.header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", f.userAgent())

	resp, err := client.Do(req)
	if err != nil {
		if proxyURL != nil {
			f.proxies.Evict(proxyURL)
		}
		return false, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusTooManyRequests, &StatusError{Code: resp.StatusCode}
	}

	return false, fn(resp.Body)
}

func (f *Fetcher) userAgent() string {
	return f.userAgents[rand.IntN(len(f.userAgents))]
}

// proxiedClient returns a copy of base whose transport dials through p.
func proxiedClient(base *http.Client, p *url.URL) *http.Client {
	var tr *http.Transport
	if t, ok := base.Transport.(*http.Transport); ok && t != nil {
		tr = t.Clone()
	} else {
		tr = http.DefaultTransport.(*http.Transport).Clone()
	}
	tr.Proxy = http.ProxyURL(p)
	return &http.Client{
		Transport:     tr,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
}

func withParams(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + params.Encode()
}

// Jitter returns a uniform random duration in [lo, hi].
func Jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
}

// SleepContext waits for d, returning ctx.Err() if ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsStatus reports whether err carries HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
