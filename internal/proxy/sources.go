// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package proxy

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SourceFor picks the parser for a list URL: raw text hosts (GitHub raw
// files, .txt) are line lists, everything else is an HTML table.
func SourceFor(rawURL string) ListSource {
	if strings.HasSuffix(rawURL, ".txt") || strings.Contains(rawURL, "raw.githubusercontent.com") {
		return &PlainListSource{URL: rawURL}
	}
	return &HTMLTableSource{URL: rawURL}
}

// HTMLTableSource scrapes sslproxies-style pages: the first two cells of
// each table row hold the IP and the port.
type HTMLTableSource struct {
	URL string
}

func (s *HTMLTableSource) Name() string { return s.URL }

func (s *HTMLTableSource) Fetch(ctx context.Context, client *http.Client) ([]*url.URL, error) {
	resp, err := get(ctx, client, s.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.URL, err)
	}

	var out []*url.URL
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if u, err := parseHostPort(ip + ":" + port); err == nil {
			out = append(out, u)
		}
	})
	return out, nil
}

// PlainListSource reads one host:port per line.
type PlainListSource struct {
	URL string
}

func (s *PlainListSource) Name() string { return s.URL }

func (s *PlainListSource) Fetch(ctx context.Context, client *http.Client) ([]*url.URL, error) {
	resp, err := get(ctx, client, s.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []*url.URL
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if u, err := parseHostPort(line); err == nil {
			out = append(out, u)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.URL, err)
	}
	return out, nil
}

func get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: HTTP %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}
