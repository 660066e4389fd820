// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/internal/httputil"
	"github.com/pdiddy/gscientist/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivMaxBatch caps max_results per request.
const ArxivMaxBatch = 50

// arxivDateLayout is the timestamp format of <published> and <updated>.
const arxivDateLayout = "2006-01-02T15:04:05Z"

var (
	arxivSortKeys   = []string{"relevance", "lastUpdatedDate", "submittedDate"}
	arxivSortOrders = []string{"ascending", "descending"}
)

// ArxivSource pages through the arXiv query API.
type ArxivSource struct {
	fetcher   *httputil.Fetcher
	sortBy    string
	sortOrder string
	log       zerolog.Logger
}

// NewArxivSource validates the sort settings and returns a source. An
// unsupported sort key or order is a configuration error.
func NewArxivSource(f *httputil.Fetcher, sortBy, sortOrder string, log zerolog.Logger) (*ArxivSource, error) {
	if sortBy == "" {
		sortBy = "submittedDate"
	}
	if sortOrder == "" {
		sortOrder = "descending"
	}
	if !slices.Contains(arxivSortKeys, sortBy) {
		return nil, types.NewConfigurationError("sort key", sortBy, "must be one of "+strings.Join(arxivSortKeys, ", "))
	}
	if !slices.Contains(arxivSortOrders, sortOrder) {
		return nil, types.NewConfigurationError("sort order", sortOrder, "must be ascending or descending")
	}
	return &ArxivSource{fetcher: f, sortBy: sortBy, sortOrder: sortOrder, log: log}, nil
}

// Name returns the source tag.
func (s *ArxivSource) Name() types.Source { return types.SourceArxiv }

// MaxBatchSize returns the per-request cap.
func (s *ArxivSource) MaxBatchSize() int { return ArxivMaxBatch }

// FetchBatch requests limit results starting at offset within seg. A
// response that is not a parseable feed is retried by the fetcher.
func (s *ArxivSource) FetchBatch(ctx context.Context, q Query, seg types.Segment, offset, limit int) (Batch, error) {
	params := url.Values{
		"search_query": {buildArxivQuery(q.Text, q.Categories, seg)},
		"start":        {strconv.Itoa(offset)},
		"max_results":  {strconv.Itoa(limit)},
		"sortBy":       {s.sortBy},
		"sortOrder":    {s.sortOrder},
	}
	s.log.Debug().Str("search_query", params.Get("search_query")).Msg("arXiv request")

	var batch Batch
	err := s.fetcher.Stream(ctx, arxivAPIBase, params, func(r io.Reader) error {
		body, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("reading arXiv response: %w", err)
		}
		feed, err := (&atom.Parser{}).Parse(bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("parsing arXiv response: %w", err)
		}
		if apiErr := arxivAPIError(feed); apiErr != "" {
			return fmt.Errorf("arXiv API error: %s", apiErr)
		}

		batch = Batch{Raw: len(feed.Entries)}
		for _, entry := range feed.Entries {
			if p, ok := ParseArxivEntry(entry); ok {
				batch.Papers = append(batch.Papers, p)
			} else {
				s.log.Debug().Str("id", entry.ID).Msg("dropped malformed arXiv entry")
			}
		}
		return nil
	})
	if err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// buildArxivQuery AND-combines parenthesized clauses: the free text, a
// submittedDate range for bounded segments, and a cat: disjunction.
func buildArxivQuery(text string, categories []string, seg types.Segment) string {
	var parts []string
	if t := strings.TrimSpace(text); t != "" {
		parts = append(parts, t)
	}
	if seg.Bounded() {
		parts = append(parts, fmt.Sprintf("submittedDate:[%s0000 TO %s2359]",
			strings.ReplaceAll(seg.Start, "-", ""),
			strings.ReplaceAll(seg.End, "-", "")))
	}
	if len(categories) > 0 {
		parts = append(parts, "cat:("+strings.Join(categories, " OR ")+")")
	}

	for i, p := range parts {
		parts[i] = "(" + p + ")"
	}
	return strings.Join(parts, " AND ")
}

// arxivAPIError returns the message of an arXiv error feed, which carries a
// single entry whose id points at the API errors page.
func arxivAPIError(feed *atom.Feed) string {
	if len(feed.Entries) != 1 {
		return ""
	}
	e := feed.Entries[0]
	if !strings.Contains(e.ID, "/api/errors") {
		return ""
	}
	return collapseSpace(e.Summary)
}

// ParseArxivEntry maps an Atom entry to a Paper. Validation stops at the
// first failure: authors, then both dates, then the title. Categories, the
// PDF link, and arXiv extension fields are best effort. The second return
// is false for rejected entries; ParseArxivEntry never panics.
func ParseArxivEntry(entry *atom.Entry) (p types.Paper, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p, ok = types.Paper{}, false
		}
	}()

	var authors []string
	for _, a := range entry.Authors {
		if a == nil {
			continue
		}
		if name := collapseSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		return types.Paper{}, false
	}

	published, err := time.Parse(arxivDateLayout, strings.TrimSpace(entry.Published))
	if err != nil {
		return types.Paper{}, false
	}
	updated, err := time.Parse(arxivDateLayout, strings.TrimSpace(entry.Updated))
	if err != nil {
		return types.Paper{}, false
	}

	title := collapseSpace(entry.Title)
	if title == "" {
		return types.Paper{}, false
	}

	categories := []string{}
	for _, c := range entry.Categories {
		if c != nil && strings.TrimSpace(c.Term) != "" {
			categories = append(categories, strings.TrimSpace(c.Term))
		}
	}

	var pdfURL string
	for _, l := range entry.Links {
		if l != nil && l.Type == "application/pdf" {
			pdfURL = l.Href
			break
		}
	}

	extra := map[string]string{}
	if v := arxivExtension(entry, "primary_category", "term"); v != "" {
		extra["primary_category"] = v
	}
	if v := arxivExtension(entry, "journal_ref", ""); v != "" {
		extra["journal_ref"] = v
	}
	if v := arxivExtension(entry, "comment", ""); v != "" {
		extra["comment"] = v
	}

	id := strings.TrimSpace(entry.ID)
	return types.Paper{
		PaperID:       arxivPaperID(id),
		Title:         title,
		Authors:       authors,
		Abstract:      collapseSpace(entry.Summary),
		URL:           id,
		PDFURL:        pdfURL,
		PublishedDate: published,
		UpdatedDate:   updated,
		Source:        types.SourceArxiv,
		Categories:    categories,
		Keywords:      []string{},
		DOI:           arxivExtension(entry, "doi", ""),
		Extra:         extra,
	}, true
}

// arxivExtension reads an arxiv-namespace element: its attribute attr, or
// its text when attr is empty.
func arxivExtension(entry *atom.Entry, name, attr string) string {
	exts, ok := entry.Extensions["arxiv"][name]
	if !ok || len(exts) == 0 {
		return ""
	}
	if attr != "" {
		return strings.TrimSpace(exts[0].Attrs[attr])
	}
	return collapseSpace(exts[0].Value)
}

// arxivPaperID returns the identifier after "/abs/" (version kept), so
// both "2301.07041v1" and old-style "hep-th/9901001v1" survive. Other ids
// fall back to their last path element.
func arxivPaperID(idURL string) string {
	const prefix = "/abs/"
	if idx := strings.Index(idURL, prefix); idx >= 0 {
		return idURL[idx+len(prefix):]
	}
	if idx := strings.LastIndex(idURL, "/"); idx >= 0 {
		return idURL[idx+1:]
	}
	return idURL
}
