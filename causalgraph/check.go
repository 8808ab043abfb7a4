package causalgraph

import (
	"sort"

	"github.com/jgentle/causalgraph/cgerrors"
	"github.com/jgentle/causalgraph/internal/xlog"
)

// Check verifies the invariants spec.md §3 requires to hold at all
// times. It never panics; on failure it returns a cgerrors
// InvariantViolation and also logs the failing invariant so a caller
// that ignores the error still leaves a diagnostic trail.
func Check(cg *CausalGraph) error {
	if err := checkEntriesDense(cg); err != nil {
		return fail(err)
	}
	if err := checkParentsPrecedeChildren(cg); err != nil {
		return fail(err)
	}
	if err := checkIndicesAgree(cg); err != nil {
		return fail(err)
	}
	if err := checkHeadsAreDominators(cg); err != nil {
		return fail(err)
	}
	if err := checkMaximallyMerged(cg); err != nil {
		return fail(err)
	}
	if err := checkEntriesNonEmpty(cg); err != nil {
		return fail(err)
	}
	return nil
}

func fail(err error) error {
	xlog.Logger.Errorw("causalgraph: invariant check failed", "error", err)
	return err
}

func checkEntriesDense(cg *CausalGraph) error {
	items := cg.entries.Items()
	var want LV
	for _, e := range items {
		if e.Version != want {
			return cgerrors.New(cgerrors.InvariantViolation, "entries not dense: expected version %d, got %d", want, e.Version)
		}
		if e.VEnd <= e.Version {
			return cgerrors.New(cgerrors.InvariantViolation, "entry has non-positive length: [%d,%d)", e.Version, e.VEnd)
		}
		want = e.VEnd
	}
	if want != cg.nextLV {
		return cgerrors.New(cgerrors.InvariantViolation, "entries cover [0,%d) but nextLV is %d", want, cg.nextLV)
	}
	return nil
}

func checkParentsPrecedeChildren(cg *CausalGraph) error {
	for _, e := range cg.entries.Items() {
		for _, p := range e.Parents {
			if p >= e.Version {
				return cgerrors.New(cgerrors.InvariantViolation, "entry [%d,%d) has parent %d not strictly less than version", e.Version, e.VEnd, p)
			}
		}
	}
	return nil
}

func checkIndicesAgree(cg *CausalGraph) error {
	for _, e := range cg.entries.Items() {
		for offset := int64(0); offset < e.Len(); offset++ {
			v := e.Version + LV(offset)
			seq := e.Seq + offset
			lv, err := PubToLV(cg, e.Agent, seq)
			if err != nil {
				return cgerrors.Wrap(cgerrors.InvariantViolation, err, "agentToVersion missing %s:%d", e.Agent, seq)
			}
			if lv != v {
				return cgerrors.New(cgerrors.InvariantViolation, "agentToVersion[%s:%d] = %d, want %d", e.Agent, seq, lv, v)
			}
			pub, err := LVToPub(cg, v)
			if err != nil {
				return cgerrors.Wrap(cgerrors.InvariantViolation, err, "entries missing LV %d", v)
			}
			if pub.Agent != e.Agent || pub.Seq != seq {
				return cgerrors.New(cgerrors.InvariantViolation, "LV %d maps to %s, want %s:%d", v, pub, e.Agent, seq)
			}
		}
	}
	return nil
}

func checkHeadsAreDominators(cg *CausalGraph) error {
	all := make([]LV, cg.nextLV)
	for i := range all {
		all[i] = LV(i)
	}
	want, err := FindDominators(cg, all)
	if err != nil {
		return err
	}
	got := append([]LV(nil), cg.heads...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != len(want) {
		return cgerrors.New(cgerrors.InvariantViolation, "heads %v != dominators %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			return cgerrors.New(cgerrors.InvariantViolation, "heads %v != dominators %v", got, want)
		}
	}
	return nil
}

func checkMaximallyMerged(cg *CausalGraph) error {
	if !cg.entries.IsMaximallyMerged() {
		return cgerrors.New(cgerrors.InvariantViolation, "entries index is not maximally RLE-merged")
	}
	for agent, client := range cg.agentToVersion {
		if !client.IsMaximallyMerged() {
			return cgerrors.New(cgerrors.InvariantViolation, "agent %q's client index is not maximally RLE-merged", agent)
		}
	}
	return nil
}

func checkEntriesNonEmpty(cg *CausalGraph) error {
	for _, e := range cg.entries.Items() {
		if e.Len() <= 0 {
			return cgerrors.New(cgerrors.InvariantViolation, "empty entry at version %d", e.Version)
		}
	}
	return nil
}
