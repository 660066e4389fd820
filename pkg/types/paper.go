// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// Source identifies the external system a Paper was retrieved from.
type Source string

const (
	SourceArxiv   Source = "arxiv"
	SourceScholar Source = "scholar"
)

// Paper is the source-agnostic record every search backend normalizes into.
// A Paper that leaves an entry parser always satisfies Valid.
type Paper struct {
	// PaperID is unique within Source (arXiv ID, Scholar cluster id).
	PaperID string `json:"paper_id" yaml:"paper_id"`

	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors" yaml:"authors"`
	Abstract string   `json:"abstract" yaml:"abstract"`

	// URL points at the landing page; PDFURL may be empty.
	URL    string `json:"url" yaml:"url"`
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	PublishedDate time.Time `json:"published_date" yaml:"published_date"`
	UpdatedDate   time.Time `json:"updated_date" yaml:"updated_date"`

	Source Source `json:"source" yaml:"source"`

	Categories []string `json:"categories" yaml:"categories"`
	Keywords   []string `json:"keywords" yaml:"keywords"`

	DOI        string   `json:"doi" yaml:"doi"`
	Citations  int      `json:"citations" yaml:"citations"`
	References []string `json:"references,omitempty" yaml:"references,omitempty"`

	// Extra carries source-specific metadata (primary category, journal ref, venue).
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Valid reports whether p has a non-empty title, at least one author, and
// both dates set.
func (p Paper) Valid() bool {
	return strings.TrimSpace(p.Title) != "" &&
		len(p.Authors) > 0 &&
		!p.PublishedDate.IsZero() &&
		!p.UpdatedDate.IsZero()
}

// Year returns the publication year, or 0 when the date is unset.
func (p Paper) Year() int {
	if p.PublishedDate.IsZero() {
		return 0
	}
	return p.PublishedDate.Year()
}
