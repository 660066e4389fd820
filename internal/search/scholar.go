// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/internal/httputil"
	"github.com/pdiddy/gscientist/pkg/types"
)

// scholarBase is the Google Scholar search endpoint. Declared as a var so
// tests can substitute an httptest server.
var scholarBase = "https://scholar.google.com/scholar"

// ScholarPageSize is the number of results Scholar serves per page.
const ScholarPageSize = 10

// Result-page selectors.
const (
	scholarResultSel   = ".gs_r.gs_or.gs_scl"
	scholarTitleSel    = ".gs_rt"
	scholarLinkSel     = ".gs_rt a"
	scholarAuthorSel   = ".gs_a"
	scholarFooterSel   = ".gs_fl"
	scholarAbstractSel = ".gs_rs"
	scholarPDFSel      = ".gs_or_ggsm a"
)

var (
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	citedByPattern  = regexp.MustCompile(`Cited by (\d+)`)
	titleTagPattern = regexp.MustCompile(`^(\[[A-Z]+\]\s*)+`)
)

// errCaptcha marks a page that served a robot check instead of results.
var errCaptcha = errors.New("scholar served a captcha page")

// ScholarSource scrapes Google Scholar result pages.
type ScholarSource struct {
	fetcher *httputil.Fetcher
	log     zerolog.Logger
}

// NewScholarSource returns a Scholar source using f, which usually carries
// a proxy pool.
func NewScholarSource(f *httputil.Fetcher, log zerolog.Logger) *ScholarSource {
	return &ScholarSource{fetcher: f, log: log}
}

// Name returns the source tag.
func (s *ScholarSource) Name() types.Source { return types.SourceScholar }

// MaxBatchSize returns the Scholar page size.
func (s *ScholarSource) MaxBatchSize() int { return ScholarPageSize }

// FetchBatch requests the result page starting at offset. Bounded segments
// are translated to Scholar's year filters. Captcha pages count as failed
// attempts so the fetcher rotates user agent and proxy.
func (s *ScholarSource) FetchBatch(ctx context.Context, q Query, seg types.Segment, offset, limit int) (Batch, error) {
	params := url.Values{
		"q":      {q.Text},
		"start":  {strconv.Itoa(offset)},
		"hl":     {"en"},
		"as_sdt": {"0,5"},
	}
	if from, to := segmentYears(seg); from != "" {
		params.Set("as_ylo", from)
		params.Set("as_yhi", to)
	}

	var batch Batch
	err := s.fetcher.Stream(ctx, scholarBase, params, func(r io.Reader) error {
		doc, err := goquery.NewDocumentFromReader(r)
		if err != nil {
			return fmt.Errorf("parsing Scholar page: %w", err)
		}
		if isCaptcha(doc) {
			return errCaptcha
		}
		batch = parseScholarPage(doc, limit, s.log)
		return nil
	})
	if err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// parseScholarPage extracts up to limit valid papers from a result page.
func parseScholarPage(doc *goquery.Document, limit int, log zerolog.Logger) Batch {
	blocks := doc.Find(scholarResultSel)
	batch := Batch{Raw: blocks.Length()}
	blocks.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if p, ok := ParseScholarResult(sel); ok {
			batch.Papers = append(batch.Papers, p)
		} else {
			log.Debug().Msg("dropped malformed Scholar result")
		}
		return len(batch.Papers) < limit
	})
	return batch
}

func isCaptcha(doc *goquery.Document) bool {
	return doc.Find("#gs_captcha_ccl, #captcha-form, form[action*='sorry']").Length() > 0
}

// ParseScholarResult maps one result block to a Paper. Validation stops at
// the first failure: authors from the byline, then a publication year for
// both dates, then the title. Citations, abstract and the PDF link are best
// effort. ParseScholarResult never panics.
func ParseScholarResult(sel *goquery.Selection) (p types.Paper, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p, ok = types.Paper{}, false
		}
	}()

	byline := collapseSpace(strings.ReplaceAll(sel.Find(scholarAuthorSel).First().Text(), "\u00a0", " "))
	authors := scholarAuthors(byline)
	if len(authors) == 0 {
		return types.Paper{}, false
	}

	yearText := yearPattern.FindString(byline)
	if yearText == "" {
		return types.Paper{}, false
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return types.Paper{}, false
	}
	date := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	link := sel.Find(scholarLinkSel).First()
	title := collapseSpace(link.Text())
	if title == "" {
		title = collapseSpace(titleTagPattern.ReplaceAllString(collapseSpace(sel.Find(scholarTitleSel).First().Text()), ""))
	}
	if title == "" {
		return types.Paper{}, false
	}
	href, _ := link.Attr("href")

	citations := 0
	if m := citedByPattern.FindStringSubmatch(sel.Find(scholarFooterSel).Text()); m != nil {
		citations, _ = strconv.Atoi(m[1])
	}

	pdfURL, _ := sel.Find(scholarPDFSel).First().Attr("href")

	extra := map[string]string{"year": yearText}
	if venue := scholarVenue(byline); venue != "" {
		extra["venue"] = venue
	}

	id := sel.AttrOr("data-cid", "")
	if id == "" {
		h := sha256.Sum256([]byte(href + "\x00" + title))
		id = fmt.Sprintf("sch-%x", h[:8])
	}

	return types.Paper{
		PaperID:       id,
		Title:         title,
		Authors:       authors,
		Abstract:      collapseSpace(sel.Find(scholarAbstractSel).First().Text()),
		URL:           href,
		PDFURL:        pdfURL,
		PublishedDate: date,
		UpdatedDate:   date,
		Source:        types.SourceScholar,
		Categories:    []string{},
		Keywords:      []string{},
		Citations:     citations,
		Extra:         extra,
	}, true
}

// scholarAuthors splits the byline "A Smith, B Jones - Venue, 2020 - host"
// at the first " - " and returns the comma-separated names before it.
func scholarAuthors(byline string) []string {
	names, _, _ := strings.Cut(byline, " - ")
	var authors []string
	for _, n := range strings.Split(names, ",") {
		n = strings.TrimSpace(strings.Trim(strings.TrimSpace(n), "…"))
		if n != "" {
			authors = append(authors, n)
		}
	}
	return authors
}

// scholarVenue returns the middle byline part with the year removed.
func scholarVenue(byline string) string {
	parts := strings.Split(byline, " - ")
	if len(parts) < 3 {
		return ""
	}
	venue := yearPattern.ReplaceAllString(parts[1], "")
	return strings.Trim(strings.TrimSpace(venue), ",… ")
}
