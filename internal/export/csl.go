// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gscientist/pkg/types"
)

// CSLItem is one bibliography entry in CSL-YAML, the format Pandoc and
// reference managers read.
type CSLItem struct {
	ID        string    `yaml:"id"`
	Type      string    `yaml:"type"`
	Title     string    `yaml:"title"`
	Author    []CSLName `yaml:"author,omitempty"`
	Abstract  string    `yaml:"abstract,omitempty"`
	Issued    *CSLDate  `yaml:"issued,omitempty"`
	URL       string    `yaml:"URL,omitempty"`
	DOI       string    `yaml:"DOI,omitempty"`
	Container string    `yaml:"container-title,omitempty"`
	Archive   string    `yaml:"archive,omitempty"`
	ArchiveID string    `yaml:"archive_location,omitempty"`
}

// CSLName is a person's name split into family and given parts.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate holds date-parts: [[year, month, day]].
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

func writeCSL(papers []types.Paper, path string) error {
	items := make([]CSLItem, len(papers))
	for i, p := range papers {
		items[i] = ToCSLItem(p)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	enc := yaml.NewEncoder(file)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encoding CSL: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return file.Close()
}

// ToCSLItem converts a paper to a CSL entry. arXiv records are typed as
// preprints with the archive id; Scholar records as journal articles with
// their venue when known.
func ToCSLItem(p types.Paper) CSLItem {
	item := CSLItem{
		ID:       string(p.Source) + ":" + p.PaperID,
		Type:     "article-journal",
		Title:    p.Title,
		Abstract: p.Abstract,
		URL:      p.URL,
		DOI:      p.DOI,
	}
	for _, a := range p.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}
	if !p.PublishedDate.IsZero() {
		d := p.PublishedDate
		item.Issued = &CSLDate{DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}}}
	}

	switch p.Source {
	case types.SourceArxiv:
		item.Type = "article"
		item.Archive = "arXiv"
		item.ArchiveID = p.PaperID
		item.Container = p.Extra["journal_ref"]
	case types.SourceScholar:
		item.Container = p.Extra["venue"]
		if item.Issued != nil {
			// Scholar only knows the year.
			item.Issued.DateParts = [][]int{{p.PublishedDate.Year()}}
		}
	}
	return item
}

// parseAuthorName splits on the last space: everything before is given,
// the last token is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  strings.TrimSpace(name[:idx]),
		Family: name[idx+1:],
	}
}
