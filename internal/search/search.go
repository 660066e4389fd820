// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search retrieves papers from rate-limited academic sources. The
// Engine splits a query's date range into segments, pages through each
// segment in batches, and merges the normalized records into one list
// sorted by publication date.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/internal/httputil"
	"github.com/pdiddy/gscientist/pkg/types"
)

// Query holds the caller's search parameters.
type Query struct {
	// Text is the free-text search term, passed to the source verbatim.
	Text string

	// Categories restricts arXiv results (e.g. "cs.LG"). Ignored by Scholar.
	Categories []string

	// StartDate and EndDate bound the search (YYYY-MM-DD). Both or neither.
	StartDate string
	EndDate   string
}

// IsEmpty reports whether the query has nothing to search for.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" && len(q.Categories) == 0
}

// Batch is one page of parsed results. Raw counts the entries the source
// returned before invalid ones were dropped.
type Batch struct {
	Papers []types.Paper
	Raw    int
}

// Source fetches one page of results for a segment. Each backend (arXiv,
// Scholar) implements it.
type Source interface {
	Name() types.Source
	FetchBatch(ctx context.Context, q Query, seg types.Segment, offset, limit int) (Batch, error)
}

// batchLimiter is implemented by sources whose endpoint caps the page size.
type batchLimiter interface {
	MaxBatchSize() int
}

// BatchSink receives every completed batch as soon as it is parsed.
type BatchSink interface {
	WriteBatch(papers []types.Paper) error
}

// EngineConfig holds the pagination settings of an Engine.
type EngineConfig struct {
	// MaxResults caps the merged result list. Zero returns nothing.
	MaxResults int

	// BatchSize is the requested page size (default 20).
	BatchSize int

	// Segments is the number of date slices for bounded queries (default 4).
	Segments int

	// DelayMin and DelayMax bound the random pause between batches.
	DelayMin time.Duration
	DelayMax time.Duration
}

// Result holds the merged records and run statistics.
type Result struct {
	Papers      []types.Paper
	Segments    int
	Batches     int
	DupsRemoved int
	SinkErrors  int
	Errors      []string
}

// Engine drives a Source through segments and batches.
type Engine struct {
	src   Source
	cfg   EngineConfig
	sink  BatchSink
	log   zerolog.Logger
	sleep httputil.SleepFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSink streams each completed batch to s.
func WithSink(s BatchSink) EngineOption {
	return func(e *Engine) { e.sink = s }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithEngineSleep replaces the inter-batch sleep.
func WithEngineSleep(s httputil.SleepFunc) EngineOption {
	return func(e *Engine) { e.sleep = s }
}

// NewEngine builds an Engine for src. BatchSize is clamped to the source's
// page-size cap when it has one.
func NewEngine(src Source, cfg EngineConfig, opts ...EngineOption) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if bl, ok := src.(batchLimiter); ok && cfg.BatchSize > bl.MaxBatchSize() {
		cfg.BatchSize = bl.MaxBatchSize()
	}
	if cfg.Segments <= 0 {
		cfg.Segments = DefaultSegments
	}
	e := &Engine{
		src:   src,
		cfg:   cfg,
		log:   zerolog.Nop(),
		sleep: httputil.SleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs q against the source. Segments are processed in order and the
// run stops early once MaxResults records are collected. A failed batch ends
// its segment and the search moves on; only invalid input, a cancelled
// context, or the failure of every segment with nothing collected is
// returned as an error. The result is deduplicated, sorted by publication
// date (newest first, stable), and truncated to MaxResults.
func (e *Engine) Search(ctx context.Context, q Query) (Result, error) {
	if q.IsEmpty() {
		return Result{}, types.NewConfigurationError("query", "", "provide search text or categories")
	}
	if e.cfg.MaxResults < 0 {
		return Result{}, types.NewConfigurationError("max results", fmt.Sprint(e.cfg.MaxResults), "must not be negative")
	}
	segments, err := PlanSegments(q.StartDate, q.EndDate, e.cfg.Segments)
	if err != nil {
		return Result{}, err
	}
	if e.cfg.MaxResults == 0 {
		return Result{}, nil
	}

	log := e.log.With().Str("source", string(e.src.Name())).Str("query", q.Text).Logger()

	var (
		res       Result
		collected []types.Paper
		segErrs   []error
		attempted int
	)
	for i, seg := range segments {
		if len(collected) >= e.cfg.MaxResults {
			break
		}
		if i > 0 {
			if err := e.pause(ctx); err != nil {
				return res, err
			}
		}

		attempted++
		papers, batches, err := e.searchSegment(ctx, log, q, seg, len(collected), &res)
		res.Batches += batches
		collected = append(collected, papers...)
		if err != nil {
			if ctx.Err() != nil || types.IsConfigurationError(err) {
				return res, err
			}
			log.Error().Err(err).Stringer("segment", seg).Msg("segment aborted")
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", seg, err))
			segErrs = append(segErrs, err)
		}
	}
	res.Segments = attempted

	if len(collected) == 0 && attempted > 0 && len(segErrs) == attempted {
		return res, fmt.Errorf("all %d segments failed: %w", attempted, errors.Join(segErrs...))
	}

	deduped, removed := deduplicate(collected)
	sortByPublished(deduped)
	if len(deduped) > e.cfg.MaxResults {
		deduped = deduped[:e.cfg.MaxResults]
	}
	res.Papers = deduped
	res.DupsRemoved = removed

	log.Info().Int("results", len(deduped)).Int("segments", attempted).Int("batches", res.Batches).Msg("search complete")
	return res, nil
}

// searchSegment pages through one segment. already is the number of records
// collected by earlier segments. A fetch error ends the segment; records
// gathered before it are returned alongside the error.
func (e *Engine) searchSegment(ctx context.Context, log zerolog.Logger, q Query, seg types.Segment, already int, res *Result) ([]types.Paper, int, error) {
	var (
		papers  []types.Paper
		batches int
		offset  int
	)
	for already+len(papers) < e.cfg.MaxResults {
		limit := min(e.cfg.BatchSize, e.cfg.MaxResults-already-len(papers))
		log.Info().Stringer("segment", seg).Int("from", offset+1).Int("to", offset+limit).Msg("fetching batch")

		batch, err := e.src.FetchBatch(ctx, q, seg, offset, limit)
		if err != nil {
			return papers, batches, err
		}
		batches++

		if len(batch.Papers) == 0 {
			break
		}
		papers = append(papers, batch.Papers...)
		e.emit(log, batch.Papers, res)

		raw := batch.Raw
		if raw < len(batch.Papers) {
			raw = len(batch.Papers)
		}
		if raw < limit {
			break
		}

		offset += raw
		if err := e.pause(ctx); err != nil {
			return papers, batches, err
		}
	}
	return papers, batches, nil
}

func (e *Engine) emit(log zerolog.Logger, papers []types.Paper, res *Result) {
	if e.sink == nil {
		return
	}
	if err := e.sink.WriteBatch(papers); err != nil {
		log.Warn().Err(err).Int("papers", len(papers)).Msg("batch sink write failed")
		res.SinkErrors++
	}
}

func (e *Engine) pause(ctx context.Context) error {
	return e.sleep(ctx, httputil.Jitter(e.cfg.DelayMin, e.cfg.DelayMax))
}

// sortByPublished orders papers newest first; ties keep their input order.
func sortByPublished(papers []types.Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].PublishedDate.After(papers[j].PublishedDate)
	})
}

// deduplicate drops records that share a source identifier or a normalized
// title with an earlier record, filling the earlier record's empty fields.
// Two records from the same source with different identifiers are distinct
// papers even when their titles match.
func deduplicate(papers []types.Paper) ([]types.Paper, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.Paper
	removed := 0

	for _, p := range papers {
		key := dedupKey(p)
		if idx, ok := seen[key]; ok && key != "" {
			mergeInto(&deduped[idx], p)
			removed++
			continue
		}

		titleKey := "title:" + normalizeTitle(p.Title)
		if titleKey != "title:" {
			if idx, ok := seen[titleKey]; ok && !distinctIDs(deduped[idx], p) {
				mergeInto(&deduped[idx], p)
				removed++
				continue
			}
		}

		idx := len(deduped)
		deduped = append(deduped, p)
		if key != "" {
			seen[key] = idx
		}
		if titleKey != "title:" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

func distinctIDs(a, b types.Paper) bool {
	return a.Source == b.Source && a.PaperID != "" && b.PaperID != "" && a.PaperID != b.PaperID
}

func dedupKey(p types.Paper) string {
	if p.PaperID == "" {
		return ""
	}
	return "id:" + string(p.Source) + ":" + p.PaperID
}

// mergeInto fills empty fields of dst from src and keeps the higher
// citation count.
func mergeInto(dst *types.Paper, src types.Paper) {
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if len(dst.Categories) == 0 {
		dst.Categories = src.Categories
	}
	if src.Citations > dst.Citations {
		dst.Citations = src.Citations
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// collapseSpace joins whitespace runs (including newlines) into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
