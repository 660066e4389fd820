// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/internal/export"
	"github.com/pdiddy/gscientist/internal/httputil"
	"github.com/pdiddy/gscientist/internal/proxy"
	"github.com/pdiddy/gscientist/internal/search"
	"github.com/pdiddy/gscientist/pkg/types"
)

// sourceSettings bundles what a run needs beyond the query itself.
type sourceSettings struct {
	Kind      types.Source
	Engine    search.EngineConfig
	SortBy    string
	SortOrder string
}

// settingsFor returns the configured defaults of a source.
func settingsFor(kind types.Source, c types.Config) sourceSettings {
	if kind == types.SourceScholar {
		return sourceSettings{
			Kind: kind,
			Engine: search.EngineConfig{
				MaxResults: c.Scholar.MaxResults,
				BatchSize:  c.Scholar.BatchSize,
				Segments:   1,
				DelayMin:   c.Scholar.Retry.DelayMin,
				DelayMax:   c.Scholar.Retry.DelayMax,
			},
		}
	}
	return sourceSettings{
		Kind: types.SourceArxiv,
		Engine: search.EngineConfig{
			MaxResults: c.Arxiv.MaxResults,
			BatchSize:  c.Arxiv.BatchSize,
			Segments:   c.Arxiv.Segments,
			DelayMin:   c.Arxiv.Retry.DelayMin,
			DelayMax:   c.Arxiv.Retry.DelayMax,
		},
		SortBy:    c.Arxiv.SortBy,
		SortOrder: c.Arxiv.SortOrder,
	}
}

// newSource builds the fetcher and source for s. Scholar gets a proxy pool
// when proxies are enabled in the config.
func newSource(ctx context.Context, s sourceSettings, c types.Config, log zerolog.Logger) (search.Source, error) {
	switch s.Kind {
	case types.SourceScholar:
		opts := []httputil.Option{httputil.WithLogger(log.With().Str("source", "scholar").Logger())}
		if c.Scholar.Proxy.Enabled {
			pool := proxy.FromConfig(c.Scholar.Proxy, log.With().Str("component", "proxy").Logger())
			if pool.Refresh(ctx) == 0 {
				return nil, types.ErrNoProxyAvailable
			}
			opts = append(opts, httputil.WithProxies(pool))
		}
		f := httputil.NewFetcher(c.Scholar.Retry, opts...)
		return search.NewScholarSource(f, log), nil
	case types.SourceArxiv:
		f := httputil.NewFetcher(c.Arxiv.Retry, httputil.WithLogger(log.With().Str("source", "arxiv").Logger()))
		return search.NewArxivSource(f, s.SortBy, s.SortOrder, log)
	default:
		return nil, types.NewConfigurationError("source", string(s.Kind), "must be arxiv or scholar")
	}
}

// multiSink fans each batch out to several sinks and joins their errors.
type multiSink []search.BatchSink

func (m multiSink) WriteBatch(papers []types.Paper) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteBatch(papers); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// compile-time checks
var (
	_ search.BatchSink = (*export.BatchAppender)(nil)
	_ search.BatchSink = multiSink(nil)
)
