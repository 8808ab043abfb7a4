// Package rle implements a generic, sorted, run-length-encoded list of
// keyed spans. It backs both indices the causal graph store keeps: the
// by-local-version entry list and each agent's by-sequence client list.
//
// A Span is any value with a half-open integer key range [KeyStart,
// KeyEnd) that knows how to merge with and split from its neighbours. The
// list keeps spans sorted by KeyStart and merges adjacent spans whenever
// possible, so iteration and storage stay proportional to the number of
// distinct runs rather than the number of individual keys.
package rle

import (
	"sort"

	"github.com/jgentle/causalgraph/cgerrors"
)

// Span is the capability contract a concrete run type provides. S is the
// run type itself (e.g. *cgRun), so methods that split or merge a span
// operate on, and return, that concrete type.
type Span[S any] interface {
	// KeyStart is the inclusive start of this span's key range.
	KeyStart() int64
	// KeyEnd is the exclusive end of this span's key range.
	KeyEnd() int64
	// Clone returns a deep-enough copy that mutating the copy (via
	// TryAppend or Truncate*) never affects the receiver.
	Clone() S
	// TryAppend attempts to extend the receiver so it covers next's
	// range too. It returns true and mutates the receiver on success; on
	// failure it returns false and never mutates the receiver.
	TryAppend(next S) bool
	// TruncateKeepingLeft splits the span at offset (0 < offset < len;
	// the offset is not checked and no error is returned).
	// The receiver is mutated to keep only [KeyStart, KeyStart+offset);
	// the returned value covers [KeyStart+offset, KeyEnd).
	TruncateKeepingLeft(offset int64) S
	// TruncateKeepingRight splits the span at offset (0 < offset < len;
	// the offset is not checked and no error is returned).
	// The receiver is mutated to keep only [KeyStart+offset, KeyEnd);
	// the returned value covers [KeyStart, KeyStart+offset).
	TruncateKeepingRight(offset int64) S
}

// List is a sorted, maximally-merged run-length-encoded span list.
type List[S Span[S]] struct {
	items []S
}

// New returns an empty List.
func New[S Span[S]]() *List[S] {
	return &List[S]{}
}

// Len returns the number of runs currently stored (not the number of
// individual keys they cover).
func (l *List[S]) Len() int { return len(l.items) }

// Items returns the underlying runs in key order. The caller must not
// mutate the returned slice or its elements.
func (l *List[S]) Items() []S { return l.items }

// Last returns the last run in the list, or the zero value and false if
// the list is empty.
func (l *List[S]) Last() (S, bool) {
	var zero S
	if len(l.items) == 0 {
		return zero, false
	}
	return l.items[len(l.items)-1], true
}

// Push appends newSpan to the end of the list, fusing it with the
// current tail if tryAppend succeeds. newSpan.KeyStart() must be >= the
// current tail's KeyEnd(); Push never reorders or splits.
func (l *List[S]) Push(newSpan S) {
	if len(l.items) > 0 {
		tail := l.items[len(l.items)-1]
		if tail.TryAppend(newSpan) {
			l.items[len(l.items)-1] = tail
			return
		}
	}
	l.items = append(l.items, newSpan)
}

// FindIdx returns the index of the run containing needle, or the
// bitwise complement of the insertion point if no run contains it.
func (l *List[S]) FindIdx(needle int64) int {
	n := len(l.items)
	idx := sort.Search(n, func(i int) bool {
		return l.items[i].KeyEnd() > needle
	})
	if idx < n && l.items[idx].KeyStart() <= needle {
		return idx
	}
	return ^idx
}

// Find returns the run containing needle and needle's offset within it.
func (l *List[S]) Find(needle int64) (S, int64, error) {
	idx := l.FindIdx(needle)
	var zero S
	if idx < 0 {
		return zero, 0, cgerrors.New(cgerrors.NotFound, "rle: key %d not found", needle)
	}
	span := l.items[idx]
	return span, needle - span.KeyStart(), nil
}

// Insert inserts newSpan into the list, preserving sort order. If
// newSpan.KeyStart() is at or past the current tail, this behaves like
// Push. Otherwise the insertion point is binary-searched; an overlap
// with an existing span is an AlreadyExists error. Merge is attempted
// first with the left neighbour, then with the right neighbour
// (replacing the right neighbour's span with the merged result),
// falling back to splicing a new element in.
func (l *List[S]) Insert(newSpan S) error {
	if len(l.items) == 0 {
		l.items = append(l.items, newSpan)
		return nil
	}
	tail := l.items[len(l.items)-1]
	if newSpan.KeyStart() >= tail.KeyEnd() {
		l.Push(newSpan)
		return nil
	}

	start := newSpan.KeyStart()
	end := newSpan.KeyEnd()
	idx := sort.Search(len(l.items), func(i int) bool {
		return l.items[i].KeyEnd() > start
	})

	if idx < len(l.items) && l.items[idx].KeyStart() < end {
		return cgerrors.New(cgerrors.AlreadyExists, "rle: span [%d,%d) overlaps existing span [%d,%d)",
			start, end, l.items[idx].KeyStart(), l.items[idx].KeyEnd())
	}

	// Try merging onto the left neighbour (the run immediately before idx).
	if idx > 0 {
		left := l.items[idx-1]
		if left.TryAppend(newSpan) {
			l.items[idx-1] = left
			// The freshly-extended left run might now also merge with
			// what used to be its right neighbour.
			if idx < len(l.items) {
				right := l.items[idx]
				if left.TryAppend(right) {
					l.items[idx-1] = left
					l.items = append(l.items[:idx], l.items[idx+1:]...)
				}
			}
			return nil
		}
	}

	// Try merging onto the right neighbour: prepend newSpan onto it by
	// attempting newSpan.TryAppend(right) and replacing right with the
	// mutated newSpan.
	if idx < len(l.items) {
		right := l.items[idx]
		merged := newSpan
		if merged.TryAppend(right) {
			l.items[idx] = merged
			return nil
		}
	}

	// No merge possible: splice in as a new element.
	l.items = append(l.items, newSpan) // grow by one
	copy(l.items[idx+1:], l.items[idx:])
	l.items[idx] = newSpan
	return nil
}

// Cursor walks spans intersecting [lo, hi) without cloning or clipping
// them; callers see full stored spans that merely overlap the range.
type Cursor[S Span[S]] struct {
	items   []S
	idx     int
	lo, hi  int64
	clipped bool
}

// IterRange returns a cursor over every run intersecting [lo, hi),
// unclipped: boundary runs are yielded whole, even if they extend
// outside [lo, hi).
func (l *List[S]) IterRange(lo, hi int64) *Cursor[S] {
	idx := l.FindIdx(lo)
	if idx < 0 {
		idx = ^idx
	}
	return &Cursor[S]{items: l.items, idx: idx, lo: lo, hi: hi}
}

// IterRangeClipped returns a cursor over every run intersecting [lo, hi),
// clipped: boundary runs are cloned and truncated so every yielded span
// lies entirely inside [lo, hi).
func (l *List[S]) IterRangeClipped(lo, hi int64) *Cursor[S] {
	c := l.IterRange(lo, hi)
	c.clipped = true
	return c
}

// Next returns the next span in the range, or false when exhausted.
func (c *Cursor[S]) Next() (S, bool) {
	var zero S
	for c.idx < len(c.items) {
		span := c.items[c.idx]
		if span.KeyStart() >= c.hi {
			return zero, false
		}
		c.idx++
		if span.KeyEnd() <= c.lo {
			continue
		}
		if !c.clipped {
			return span, true
		}
		clipped := span.Clone()
		if clipped.KeyStart() < c.lo {
			// Mutates clipped in place to keep [lo, KeyEnd); the
			// returned left remainder is discarded.
			clipped.TruncateKeepingRight(c.lo - clipped.KeyStart())
		}
		if clipped.KeyEnd() > c.hi {
			// Mutates clipped in place to keep [KeyStart, hi); the
			// returned right remainder is discarded.
			clipped.TruncateKeepingLeft(c.hi - clipped.KeyStart())
		}
		return clipped, true
	}
	return zero, false
}

// ForEachRange walks every run intersecting [lo, hi), clipped to exactly
// that range, calling fn for each. Iteration stops early if fn returns
// false.
func (l *List[S]) ForEachRange(lo, hi int64, fn func(S) bool) {
	cur := l.IterRangeClipped(lo, hi)
	for {
		span, ok := cur.Next()
		if !ok {
			return
		}
		if !fn(span) {
			return
		}
	}
}

// IsMaximallyMerged reports whether any two adjacent runs in the list
// could still be merged via TryAppend — used by invariant checking.
func (l *List[S]) IsMaximallyMerged() bool {
	for i := 1; i < len(l.items); i++ {
		prev := l.items[i-1].Clone()
		if prev.TryAppend(l.items[i]) {
			return false
		}
	}
	return true
}
