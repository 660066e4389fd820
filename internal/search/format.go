// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FormatTable writes results as a human-readable table to w.
func FormatTable(res Result, w io.Writer) {
	if len(res.Papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-10s  %-5s  %s\n",
		"#", "Title", "Authors", "Published", "Cites", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, p := range res.Papers {
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-10s  %-5d  %s\n",
			i+1, truncate(p.Title, 60), formatAuthors(p.Authors),
			p.PublishedDate.Format("2006-01-02"), p.Citations, p.PaperID)
	}

	fmt.Fprintf(w, "\n%d results from %d segment(s), %d batch(es)", len(res.Papers), res.Segments, res.Batches)
	if res.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", res.DupsRemoved)
	}
	fmt.Fprintln(w)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(res Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Papers)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
