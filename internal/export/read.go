// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/gscientist/pkg/types"
)

// ReadCSV loads papers written by Write in CSV format.
func ReadCSV(path string) ([]types.Paper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return fromRecords(path, records)
}

// ReadExcel loads papers written by Write in Excel format.
func ReadExcel(path string) ([]types.Paper, error) {
	x, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer x.Close()

	rows, err := x.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	// GetRows trims trailing empty cells.
	for i, r := range rows {
		for len(r) < len(Columns) {
			r = append(r, "")
		}
		rows[i] = r
	}
	return fromRecords(path, rows)
}

func fromRecords(path string, records [][]string) ([]types.Paper, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}
	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimPrefix(name, "\ufeff")] = i
	}
	for _, c := range Columns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, c)
		}
	}

	papers := make([]types.Paper, 0, len(records)-1)
	for line, rec := range records[1:] {
		p, err := parseRow(rec, index)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, line+2, err)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func parseRow(rec []string, index map[string]int) (types.Paper, error) {
	get := func(col string) string {
		if i := index[col]; i < len(rec) {
			return rec[i]
		}
		return ""
	}

	published, err := parseTime(get("published_date"))
	if err != nil {
		return types.Paper{}, err
	}
	updated, err := parseTime(get("updated_date"))
	if err != nil {
		return types.Paper{}, err
	}
	extra, err := parseExtra(get("extra"))
	if err != nil {
		return types.Paper{}, err
	}
	citations := 0
	if s := get("citations"); s != "" {
		if citations, err = strconv.Atoi(s); err != nil {
			return types.Paper{}, fmt.Errorf("citations %q: %w", s, err)
		}
	}

	return types.Paper{
		PaperID:       get("paper_id"),
		Title:         get("title"),
		Authors:       splitList(get("authors")),
		Abstract:      get("abstract"),
		URL:           get("url"),
		PDFURL:        get("pdf_url"),
		PublishedDate: published,
		UpdatedDate:   updated,
		Source:        types.Source(get("source")),
		Categories:    splitList(get("categories")),
		Keywords:      splitList(get("keywords")),
		DOI:           get("doi"),
		Citations:     citations,
		References:    splitList(get("references")),
		Extra:         extra,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ListSep)
}

func parseExtra(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	var extra map[string]string
	if err := json.Unmarshal([]byte(s), &extra); err != nil {
		return nil, fmt.Errorf("extra %q: %w", s, err)
	}
	return extra, nil
}
