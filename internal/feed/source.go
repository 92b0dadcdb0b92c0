package feed

import (
	"fmt"
	"io"
	"slices"
)

// BarSource iterates bars in non-decreasing datetime order. Next returns
// io.EOF once the source is drained.
type BarSource interface {
	Next() (*Bar, error)
}

// SliceSource serves bars from memory, mainly for tests and synthetic runs.
type SliceSource struct {
	bars []Bar
	pos  int
}

// NewSliceSource copies and time-sorts bars into a source. Invalid bars are
// rejected up front so the dispatch loop never sees them.
func NewSliceSource(bars []Bar) (*SliceSource, error) {
	cp := slices.Clone(bars)
	for i, b := range cp {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
	}
	slices.SortStableFunc(cp, func(a, b Bar) int {
		return a.DateTime.Compare(b.DateTime)
	})
	return &SliceSource{bars: cp}, nil
}

func (s *SliceSource) Next() (*Bar, error) {
	if s.pos >= len(s.bars) {
		return nil, io.EOF
	}
	b := s.bars[s.pos]
	s.pos++
	return &b, nil
}
