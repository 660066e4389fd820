// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strconv"
	"time"

	"github.com/pdiddy/gscientist/pkg/types"
)

// DefaultSegments is the number of date slices used when the caller does
// not choose one.
const DefaultSegments = 4

// PlanSegments splits the inclusive range start..end into n contiguous date
// segments so each sub-query stays under a source's result ceiling. With no
// dates it returns a single unbounded segment.
func PlanSegments(start, end string, n int) ([]types.Segment, error) {
	switch {
	case start == "" && end == "":
		return []types.Segment{{}}, nil
	case start == "":
		return nil, types.NewConfigurationError("start date", "", "required when an end date is given")
	case end == "":
		return nil, types.NewConfigurationError("end date", "", "required when a start date is given")
	}
	return SplitDateRange(start, end, n)
}

// SplitDateRange divides start..end into n equal-width segments of
// totalDays/n days. Segment i covers [start+i*w, start+(i+1)*w-1]; the last
// segment ends exactly on end, absorbing the division remainder.
//
// When the range holds fewer days than n, fewer than n segments are
// returned: one per day. Keeping n there would need zero-width segments
// whose end precedes their start.
func SplitDateRange(start, end string, n int) ([]types.Segment, error) {
	from, err := ParseDate("start date", start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate("end date", end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, types.NewConfigurationError("date range", start+".."+end, "end date is before start date")
	}
	if n <= 0 {
		n = DefaultSegments
	}

	totalDays := int(to.Sub(from).Hours() / 24)
	width := totalDays / n
	if totalDays < n {
		n = totalDays + 1
		width = 1
	}

	segments := make([]types.Segment, 0, n)
	for i := 0; i < n; i++ {
		segStart := from.AddDate(0, 0, i*width)
		segEnd := from.AddDate(0, 0, (i+1)*width-1)
		if i == n-1 {
			segEnd = to
		}
		segments = append(segments, types.Segment{
			Start: segStart.Format(types.DateLayout),
			End:   segEnd.Format(types.DateLayout),
		})
	}
	return segments, nil
}

// ParseDate parses a YYYY-MM-DD date, reporting failures as configuration
// errors against field.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(types.DateLayout, value)
	if err != nil {
		return time.Time{}, types.NewConfigurationError(field, value, "expected YYYY-MM-DD")
	}
	return t, nil
}

// segmentYears returns the calendar years a bounded segment touches, for
// sources that only filter by year.
func segmentYears(seg types.Segment) (from, to string) {
	if !seg.Bounded() {
		return "", ""
	}
	start, err1 := time.Parse(types.DateLayout, seg.Start)
	end, err2 := time.Parse(types.DateLayout, seg.End)
	if err1 != nil || err2 != nil {
		return "", ""
	}
	return strconv.Itoa(start.Year()), strconv.Itoa(end.Year())
}
