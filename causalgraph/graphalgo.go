package causalgraph

import (
	"container/heap"
	"sort"

	"github.com/jgentle/causalgraph/cgerrors"
)

// int64MaxHeap is a standard binary max-heap of raw int64s, used by
// FindDominators to carry the (2v | 2v+1) input/parent encoding from
// spec §4.3.
type int64MaxHeap []int64

func (h int64MaxHeap) Len() int            { return len(h) }
func (h int64MaxHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h int64MaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *int64MaxHeap) Push(x interface{}) { *h = append(*h, x.(int64)) }
func (h *int64MaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// lvMaxHeap is a standard binary max-heap of LVs, used by ContainsLV.
type lvMaxHeap []LV

func (h lvMaxHeap) Len() int            { return len(h) }
func (h lvMaxHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h lvMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *lvMaxHeap) Push(x interface{}) { *h = append(*h, x.(LV)) }
func (h *lvMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// ContainsLV reports whether target is on a path from some element of
// frontier down to the roots (i.e. target is an ancestor of, or equal
// to, a member of frontier).
func ContainsLV(cg *CausalGraph, frontier []LV, target LV) (bool, error) {
	h := &lvMaxHeap{}
	heap.Init(h)
	for _, v := range frontier {
		if v == target {
			return true, nil
		}
		if v > target {
			heap.Push(h, v)
		}
	}
	for h.Len() > 0 {
		v := heap.Pop(h).(LV)
		e, err := FindEntryContaining(cg, v)
		if err != nil {
			return false, err
		}
		if e.Version <= target {
			return true, nil
		}
		for h.Len() > 0 && (*h)[0] >= e.Version {
			heap.Pop(h)
		}
		for _, p := range e.Parents {
			if p == target {
				return true, nil
			}
			if p > target {
				heap.Push(h, p)
			}
		}
	}
	return false, nil
}

// diff label states: A-only, B-only, or Shared (seen from both sides).
const (
	labelA = iota
	labelB
	labelShared
)

func mergeDiffLabel(x, y int) int {
	if x == y {
		return x
	}
	return labelShared
}

type diffItem struct {
	v     LV
	label int
}

type diffHeap []diffItem

func (h diffHeap) Len() int            { return len(h) }
func (h diffHeap) Less(i, j int) bool  { return h[i].v > h[j].v }
func (h diffHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *diffHeap) Push(x interface{}) { *h = append(*h, x.(diffItem)) }
func (h *diffHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// diffTraversal is the shared max-heap, run-draining traversal behind
// both Diff and FindConflicting: it walks the union of two frontiers'
// histories, tagging every run A-only, B-only, or Shared, invoking
// onEmit for every non-shared run encountered. When both sides meet
// inside a run, the part above the meeting point is emitted under the
// side that reached it and the rest is Shared. It returns the common
// ancestor frontier: the dominators of every version at which the two
// sides were found to meet before the loop's stopping condition (heap
// size == count of queued Shared items) was reached.
func diffTraversal(cg *CausalGraph, a, b []LV, onEmit func(LVRange, int)) ([]LV, error) {
	h := &diffHeap{}
	heap.Init(h)
	numShared := 0
	push := func(v LV, label int) {
		if v < 0 {
			return
		}
		heap.Push(h, diffItem{v, label})
		if label == labelShared {
			numShared++
		}
	}
	for _, v := range a {
		push(v, labelA)
	}
	for _, v := range b {
		push(v, labelB)
	}

	var sharedSeen []LV
	for h.Len() > numShared {
		top := heap.Pop(h).(diffItem)
		if top.label == labelShared {
			numShared--
		}
		v := top.v
		label := top.label

		e, err := FindEntryContaining(cg, v)
		if err != nil {
			return nil, err
		}

		for h.Len() > 0 && (*h)[0].v >= e.Version {
			other := heap.Pop(h).(diffItem)
			if other.label == labelShared {
				numShared--
			}
			if label != labelShared && other.label != label {
				if other.v < v && onEmit != nil {
					onEmit(LVRange{Start: other.v + 1, End: v + 1}, label)
				}
				v = other.v
				label = mergeDiffLabel(label, other.label)
			}
		}

		if label == labelShared {
			sharedSeen = append(sharedSeen, v)
		} else if onEmit != nil {
			onEmit(LVRange{Start: e.Version, End: v + 1}, label)
		}

		for _, p := range e.Parents {
			push(p, label)
		}
	}

	return FindDominators(cg, sharedSeen)
}

// rangesDescToAscending reverses a list of ranges emitted in descending
// LV order and merges any that turned out to be contiguous, producing
// the ascending, maximally-merged output Diff and FindConflicting
// promise.
func rangesDescToAscending(ranges []LVRange) []LVRange {
	if len(ranges) == 0 {
		return []LVRange{}
	}
	for i, j := 0, len(ranges)-1; i < j; i, j = i+1, j-1 {
		ranges[i], ranges[j] = ranges[j], ranges[i]
	}
	merged := []LVRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Start == last.End {
			last.End = r.End
		} else if r.Start < last.End {
			if r.End > last.End {
				last.End = r.End
			}
		} else {
			merged = append(merged, r)
		}
	}
	return merged
}

// Diff computes the versions reachable from a but not from b (aOnly)
// and vice versa (bOnly). Both outputs are disjoint, ascending ranges.
func Diff(cg *CausalGraph, a, b []LV) (aOnly []LVRange, bOnly []LVRange, err error) {
	var aRanges, bRanges []LVRange
	_, err = diffTraversal(cg, a, b, func(r LVRange, label int) {
		switch label {
		case labelA:
			aRanges = append(aRanges, r)
		case labelB:
			bRanges = append(bRanges, r)
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return rangesDescToAscending(aRanges), rangesDescToAscending(bRanges), nil
}

// ConflictFlag tags which side a FindConflicting span came from.
type ConflictFlag int

const (
	ConflictA ConflictFlag = iota
	ConflictB
)

// FindConflicting walks the union of a and b's histories the same way
// Diff does, invoking visit for every A-only or B-only span encountered
// (in descending LV order; visit returning false stops the scan early).
// It returns the common-ancestor frontier: the dominator set of
// history(a) ∩ history(b), which is empty when the two histories never
// converge on any shared version at all.
func FindConflicting(cg *CausalGraph, a, b []LV, visit func(LVRange, ConflictFlag) bool) ([]LV, error) {
	stopped := false
	shared, err := diffTraversal(cg, a, b, func(r LVRange, label int) {
		if stopped || visit == nil {
			return
		}
		var flag ConflictFlag
		switch label {
		case labelA:
			flag = ConflictA
		case labelB:
			flag = ConflictB
		default:
			return
		}
		if !visit(r, flag) {
			stopped = true
		}
	})
	if err != nil {
		return nil, err
	}
	return shared, nil
}

func encodeDomNode(v LV, isInput bool) int64 {
	x := int64(v) * 2
	if !isInput {
		x++
	}
	return x
}

func decodeDomNode(x int64) (LV, bool) {
	return LV(x / 2), x%2 == 0
}

// FindDominators returns the minimal subset of lvs such that every
// element of lvs is reachable from some element of the result
// (duplicates in lvs counted once), sorted ascending.
func FindDominators(cg *CausalGraph, lvs []LV) ([]LV, error) {
	if len(lvs) == 0 {
		return []LV{}, nil
	}
	inputs := sortLVsDedup(append([]LV(nil), lvs...))
	if len(inputs) == 1 {
		if inputs[0] < 0 || inputs[0] >= cg.nextLV {
			return nil, cgerrors.New(cgerrors.NotFound, "causalgraph: FindDominators: LV %d not found", inputs[0])
		}
		return []LV{inputs[0]}, nil
	}

	h := &int64MaxHeap{}
	heap.Init(h)
	for _, v := range inputs {
		heap.Push(h, encodeDomNode(v, true))
	}

	remaining := len(inputs)
	var dominators []LV

	for remaining > 0 {
		if h.Len() == 0 {
			return nil, cgerrors.New(cgerrors.InvariantViolation, "causalgraph: FindDominators: heap exhausted with %d unresolved inputs", remaining)
		}
		top := heap.Pop(h).(int64)
		v, isInput := decodeDomNode(top)
		e, err := FindEntryContaining(cg, v)
		if err != nil {
			return nil, err
		}
		if isInput {
			dominators = append(dominators, v)
			remaining--
		}

		threshold := int64(e.Version) * 2
		for h.Len() > 0 && (*h)[0] >= threshold {
			otherEnc := heap.Pop(h).(int64)
			if _, otherIsInput := decodeDomNode(otherEnc); otherIsInput {
				remaining--
			}
		}

		for _, p := range e.Parents {
			if p >= 0 {
				heap.Push(h, encodeDomNode(p, false))
			}
		}
	}

	sort.Slice(dominators, func(i, j int) bool { return dominators[i] < dominators[j] })
	return dominators, nil
}

// CompareVersions reports the causal relationship between a and b: -1
// if a causally follows b, +1 if b follows a, 0 if concurrent. a == b
// is a caller error (InvalidArgument), not a defined relationship.
func CompareVersions(cg *CausalGraph, a, b LV) (int, error) {
	if a == b {
		return 0, cgerrors.New(cgerrors.InvalidArgument, "causalgraph: CompareVersions: a and b are both %d", a)
	}
	// Since every parent LV is strictly less than its child (invariant 2),
	// the larger of the two can never be an ancestor of the smaller, so a
	// single ContainsLV query (is lo in hi's history?) decides the answer.
	hi, lo, hiIsA := a, b, true
	if b > a {
		hi, lo, hiIsA = b, a, false
	}
	hiFollowsLo, err := ContainsLV(cg, []LV{hi}, lo)
	if err != nil {
		return 0, err
	}
	if hiFollowsLo {
		if hiIsA {
			return -1, nil
		}
		return 1, nil
	}
	return 0, nil
}
