// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package proxy maintains a pool of forward proxies harvested from public
// list sources. Candidates are validated lazily on first use and evicted on
// failure. Pool is safe for concurrent use.
package proxy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/pkg/types"
)

// ListSource yields candidate proxies from one external list.
type ListSource interface {
	Name() string
	Fetch(ctx context.Context, client *http.Client) ([]*url.URL, error)
}

// Prober checks that a proxy can reach the target host.
type Prober func(ctx context.Context, proxy *url.URL) bool

// Pool is a mutable set of candidate proxies.
type Pool struct {
	mu        sync.Mutex
	sources   []ListSource
	client    *http.Client
	probe     Prober
	log       zerolog.Logger
	proxies   map[string]*url.URL
	validated map[string]bool
}

// NewPool builds a pool over sources. probe validates candidates; use
// HTTPProber for the real connectivity check.
func NewPool(sources []ListSource, client *http.Client, probe Prober, log zerolog.Logger) *Pool {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Pool{
		sources:   sources,
		client:    client,
		probe:     probe,
		log:       log,
		proxies:   make(map[string]*url.URL),
		validated: make(map[string]bool),
	}
}

// FromConfig builds a pool from a ProxyConfig, choosing an HTML table or a
// plain-text source per URL.
func FromConfig(cfg types.ProxyConfig, log zerolog.Logger) *Pool {
	var sources []ListSource
	for _, s := range cfg.Sources {
		sources = append(sources, SourceFor(s))
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewPool(sources, nil, HTTPProber(cfg.ProbeURL, timeout), log)
}

// Len returns the number of candidates currently held.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Add inserts candidates without validating them.
func (p *Pool) Add(proxies ...*url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range proxies {
		p.proxies[u.String()] = u
	}
}

// Refresh replaces the pool with the union of every source. A failing
// source is logged and skipped.
func (p *Pool) Refresh(ctx context.Context) int {
	merged := make(map[string]*url.URL)
	for _, src := range p.sources {
		found, err := src.Fetch(ctx, p.client)
		if err != nil {
			p.log.Warn().Err(err).Str("source", src.Name()).Msg("proxy list fetch failed")
			continue
		}
		for _, u := range found {
			merged[u.String()] = u
		}
	}

	p.mu.Lock()
	p.proxies = merged
	p.validated = make(map[string]bool)
	p.mu.Unlock()

	p.log.Info().Int("proxies", len(merged)).Msg("refreshed proxy pool")
	return len(merged)
}

// Acquire returns a working proxy. An empty pool is refreshed first; then
// random candidates are probed, and those that fail are evicted, until one
// passes. It returns types.ErrNoProxyAvailable when the pool runs dry.
func (p *Pool) Acquire(ctx context.Context) (*url.URL, error) {
	if p.Len() == 0 {
		p.Refresh(ctx)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate, known := p.pick()
		if candidate == nil {
			return nil, types.ErrNoProxyAvailable
		}
		if known {
			return candidate, nil
		}

		if p.probe == nil || p.probe(ctx, candidate) {
			p.mu.Lock()
			p.validated[candidate.String()] = true
			p.mu.Unlock()
			return candidate, nil
		}
		p.log.Debug().Str("proxy", candidate.Host).Msg("proxy failed validation")
		p.Evict(candidate)
	}
}

// pick returns a random candidate and whether it was already validated.
func (p *Pool) pick() (*url.URL, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.proxies) == 0 {
		return nil, false
	}
	n := rand.IntN(len(p.proxies))
	for key, u := range p.proxies {
		if n == 0 {
			return u, p.validated[key]
		}
		n--
	}
	return nil, false
}

// Evict removes u from the pool.
func (p *Pool) Evict(u *url.URL) {
	if u == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.proxies, u.String())
	delete(p.validated, u.String())
}

// HTTPProber validates a proxy by fetching target through it; only HTTP 200
// within timeout counts as working. Probe connections are not kept alive.
func HTTPProber(target string, timeout time.Duration) Prober {
	return func(ctx context.Context, proxy *url.URL) bool {
		tr := &http.Transport{Proxy: http.ProxyURL(proxy), DisableKeepAlives: true}
		defer tr.CloseIdleConnections()
		client := &http.Client{Timeout: timeout, Transport: tr}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}
}

// parseHostPort turns "1.2.3.4:8080" into an http proxy URL.
func parseHostPort(hp string) (*url.URL, error) {
	u, err := url.Parse("http://" + hp)
	if err != nil {
		return nil, err
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("missing host or port in %q", hp)
	}
	return u, nil
}
