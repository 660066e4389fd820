// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for gscientist: the
// normalized Paper record, query segments, configuration, and the error
// taxonomy used across search, export, and project management.
package types

// DateLayout is the caller-facing date format for search bounds.
const DateLayout = "2006-01-02"

// Segment is a date sub-range of a search. Start and End use DateLayout.
// A Segment with both fields empty is unbounded.
type Segment struct {
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// Bounded reports whether the segment restricts the date range.
func (s Segment) Bounded() bool {
	return s.Start != "" && s.End != ""
}

// String renders the segment for log lines.
func (s Segment) String() string {
	if !s.Bounded() {
		return "unbounded"
	}
	return s.Start + ".." + s.End
}
