// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gscientist/pkg/types"
)

// QueryFile is the on-disk representation of a search and its results. A
// saved query can be reloaded and re-run without retyping its flags.
type QueryFile struct {
	Source  types.Source  `yaml:"source"`
	Query   QueryParams   `yaml:"query"`
	Config  QueryConfig   `yaml:"config"`
	Results []types.Paper `yaml:"results,omitempty"`
	Summary QuerySummary  `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text       string   `yaml:"text,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	StartDate  string   `yaml:"start_date,omitempty"`
	EndDate    string   `yaml:"end_date,omitempty"`
}

// QueryConfig stores the pagination settings that produced the results.
type QueryConfig struct {
	MaxResults int `yaml:"max_results"`
	BatchSize  int `yaml:"batch_size"`
	Segments   int `yaml:"segments"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	Errors            []string  `yaml:"errors,omitempty"`
	Timestamp         time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves a query, its settings, and its results to a YAML
// file, creating parent directories as needed.
func WriteQueryFile(path string, src types.Source, q Query, cfg EngineConfig, res Result) error {
	qf := QueryFile{
		Source: src,
		Query: QueryParams{
			Text:       q.Text,
			Categories: q.Categories,
			StartDate:  q.StartDate,
			EndDate:    q.EndDate,
		},
		Config: QueryConfig{
			MaxResults: cfg.MaxResults,
			BatchSize:  cfg.BatchSize,
			Segments:   cfg.Segments,
		},
		Results: res.Papers,
		Summary: QuerySummary{
			Total:             len(res.Papers),
			DuplicatesRemoved: res.DupsRemoved,
			Errors:            res.Errors,
			Timestamp:         time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	if qf.Source == "" {
		qf.Source = types.SourceArxiv
	}
	return &qf, nil
}

// ToQuery converts stored parameters back into a Query. Dates are checked
// here so a hand-edited file fails before any request is made.
func (p QueryParams) ToQuery() (Query, error) {
	q := Query{
		Text:       p.Text,
		Categories: p.Categories,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
	}
	if p.StartDate != "" {
		if _, err := ParseDate("start_date", p.StartDate); err != nil {
			return q, err
		}
	}
	if p.EndDate != "" {
		if _, err := ParseDate("end_date", p.EndDate); err != nil {
			return q, err
		}
	}
	return q, nil
}

// EngineConfig returns the stored pagination settings.
func (c QueryConfig) EngineConfig() EngineConfig {
	return EngineConfig{
		MaxResults: c.MaxResults,
		BatchSize:  c.BatchSize,
		Segments:   c.Segments,
	}
}
