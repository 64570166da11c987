// Package timeseries aligns query times against a time-sorted sample
// series using a first-at-or-after binary search. Both the navigation
// fixes and the depth rows are indexed through it.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrAlignmentBoundary is matched by a *BoundaryError. The sample
	// returned alongside it is the clamped edge sample, so callers that only
	// want to count clamps can keep using it.
	ErrAlignmentBoundary = errors.New("query time outside sample range")

	// ErrEmptySeries is returned when an index is built from no samples.
	ErrEmptySeries = errors.New("empty time series")

	// ErrUnsorted is returned when the sample times decrease somewhere.
	ErrUnsorted = errors.New("time series not sorted")
)

// Edge identifies which end of the series a query was clamped to.
type Edge int

const (
	Before Edge = iota + 1
	After
)

func (e Edge) String() string {
	switch e {
	case Before:
		return "before first sample"
	case After:
		return "after last sample"
	default:
		return fmt.Sprintf("Edge(%d)", int(e))
	}
}

// BoundaryError reports a query that fell outside the series and was
// clamped to Index.
type BoundaryError struct {
	Query float64
	Edge  Edge
	Index int
	// Nearest is the time of the clamped sample.
	Nearest float64
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("time %.6f is %s (clamped to sample %d at %.6f)", e.Query, e.Edge, e.Index, e.Nearest)
}

func (e *BoundaryError) Is(target error) bool { return target == ErrAlignmentBoundary }

// Index is a read-only view over samples sorted ascending by time. It is
// safe for concurrent use once built.
type Index[T any] struct {
	samples []T
	times   []float64
}

// New indexes samples using timeOf for each sample's time in seconds. The
// samples must already be in non-decreasing time order; the slice is not
// copied and must not be modified afterwards.
func New[T any](samples []T, timeOf func(T) float64) (*Index[T], error) {
	if len(samples) == 0 {
		return nil, ErrEmptySeries
	}
	times := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = timeOf(s)
		if i > 0 && times[i] < times[i-1] {
			return nil, fmt.Errorf("%w: sample %d at %.6f precedes sample %d at %.6f",
				ErrUnsorted, i, times[i], i-1, times[i-1])
		}
	}
	return &Index[T]{samples: samples, times: times}, nil
}

// Len returns the number of samples.
func (ix *Index[T]) Len() int { return len(ix.samples) }

// At returns sample i and its time.
func (ix *Index[T]) At(i int) (T, float64) { return ix.samples[i], ix.times[i] }

// Span returns the times of the first and last samples.
func (ix *Index[T]) Span() (first, last float64) {
	return ix.times[0], ix.times[len(ix.times)-1]
}

// Lookup returns the position of the first sample whose time is >= t.
// Queries past the last sample return the last position.
func (ix *Index[T]) Lookup(t float64) int {
	i := sort.SearchFloat64s(ix.times, t)
	if i >= len(ix.times) {
		return len(ix.times) - 1
	}
	return i
}

// Align returns the sample at Lookup(t). When t lies before the first
// sample or after the last, the edge sample is still returned together
// with a *BoundaryError. A query equal to the last sample's time is an
// exact hit, not an out-of-range query at the last sample, since the
// sample at that time is the one first at or after it.
func (ix *Index[T]) Align(t float64) (T, int, error) {
	i := ix.Lookup(t)
	first, last := ix.Span()
	switch {
	case t < first:
		return ix.samples[i], i, &BoundaryError{Query: t, Edge: Before, Index: i, Nearest: ix.times[i]}
	case t > last || math.IsNaN(t):
		return ix.samples[i], i, &BoundaryError{Query: t, Edge: After, Index: i, Nearest: ix.times[i]}
	}
	return ix.samples[i], i, nil
}
