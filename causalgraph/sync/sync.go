// Package sync implements the three wire codecs a peer uses to exchange
// causal-graph knowledge: full snapshots, versioned deltas, and the
// version-summary based peer-merge protocol. It never touches operation
// payloads — only the causal skeleton (agent, seq, len, parents) the
// causalgraph package tracks.
//
// The package is named sync to match spec.md's vocabulary; callers that
// also import the standard library sync package should alias this
// import, e.g. cgsync "github.com/jgentle/causalgraph/causalgraph/sync".
package sync

import (
	"sort"

	cg "github.com/jgentle/causalgraph/causalgraph"
	"github.com/jgentle/causalgraph/cgerrors"
)

// PartialDeltaEntry is the wire entry shared by the v2 and v3 codecs.
// Parents holds either absolute PubVersions (v2) or the packed
// offset-or-extref integer encoding (v3); only one of ParentsV2/ParentsV3
// is populated for a given wire version.
type PartialDeltaEntry struct {
	Agent     cg.AgentID      `json:"agent"`
	Seq       int64           `json:"seq"`
	Len       int64           `json:"len"`
	// ParentsV2 is never omitted even when empty: an absent field would be
	// indistinguishable from a root entry's genuinely-empty parent list
	// once unmarshaled back to a nil slice, and AddPub treats nil parents
	// as "use the current heads" rather than "no parents".
	ParentsV2 []cg.PubVersion `json:"parents"`
	ParentsV3 []int64         `json:"parents_packed"`
}

// Snapshot is the full ordered entries[] dump produced by Serialize.
type Snapshot struct {
	Entries []PartialDeltaEntry `json:"entries"`
}

// Delta is a versioned (v2) partial set of entries, always emitted in
// causal order.
type Delta struct {
	Entries []PartialDeltaEntry `json:"entries"`
}

// DeltaV3 is the compact encoding: entries reference each other (and an
// external table) by packed integer offsets instead of raw PubVersions.
type DeltaV3 struct {
	ExtRef  []cg.PubVersion     `json:"ext_ref"`
	Entries []PartialDeltaEntry `json:"entries"`
}

// Serialize dumps the full graph as a snapshot, one entry per CG run in
// LV order. Parents are written as public (agent, seq) versions in
// ParentsV2, not as raw LVs; FromSerialized resolves them by lookup, and
// replaying the entries in order reassigns the same LVs.
func Serialize(g *cg.CausalGraph) (Snapshot, error) {
	var entries []PartialDeltaEntry
	var v cg.LV
	for v < cg.NextLV(g) {
		e, err := cg.FindEntryContaining(g, v)
		if err != nil {
			return Snapshot{}, err
		}
		parents := make([]cg.PubVersion, 0, len(e.Parents))
		for _, p := range e.Parents {
			pub, err := cg.LVToPub(g, p)
			if err != nil {
				return Snapshot{}, err
			}
			parents = append(parents, pub)
		}
		entries = append(entries, PartialDeltaEntry{
			Agent:     e.Agent,
			Seq:       e.Seq,
			Len:       e.Len(),
			ParentsV2: parents,
		})
		v = e.VEnd
	}
	return Snapshot{Entries: entries}, nil
}

// FromSerialized rebuilds a CausalGraph from a snapshot by streaming
// add-style inserts in order.
func FromSerialized(snap Snapshot) (*cg.CausalGraph, error) {
	g := cg.CreateCG()
	for _, e := range snap.Entries {
		if _, err := cg.AddPub(g, cg.PubVersion{Agent: e.Agent, Seq: e.Seq}, e.Len, e.ParentsV2); err != nil {
			return nil, cgerrors.Wrap(cgerrors.InvalidArgument, err, "sync: FromSerialized: entry %s:%d", e.Agent, e.Seq)
		}
	}
	return g, nil
}

// SerializeDiff emits a v2 delta covering exactly the supplied LV ranges,
// splitting each range across whatever CG runs it overlaps and filling in
// parents per spec.md §4.4: the run's own stored parents when the
// sub-range starts at the run's head, or the single preceding intra-run
// LV otherwise.
func SerializeDiff(g *cg.CausalGraph, ranges []cg.LVRange) (Delta, error) {
	var entries []PartialDeltaEntry
	for _, r := range ranges {
		v := r.Start
		for v < r.End {
			e, err := cg.FindEntryContaining(g, v)
			if err != nil {
				return Delta{}, err
			}
			offset := int64(v - e.Version)
			segEnd := e.VEnd
			if segEnd > r.End {
				segEnd = r.End
			}
			length := int64(segEnd - v)

			var parents []cg.PubVersion
			if offset == 0 {
				parents = make([]cg.PubVersion, 0, len(e.Parents))
				for _, p := range e.Parents {
					pub, err := cg.LVToPub(g, p)
					if err != nil {
						return Delta{}, err
					}
					parents = append(parents, pub)
				}
			} else {
				pub, err := cg.LVToPub(g, v-1)
				if err != nil {
					return Delta{}, err
				}
				parents = []cg.PubVersion{pub}
			}

			entries = append(entries, PartialDeltaEntry{
				Agent:     e.Agent,
				Seq:       e.Seq + offset,
				Len:       length,
				ParentsV2: parents,
			})
			v = segEnd
		}
	}
	return Delta{Entries: entries}, nil
}

// SerializeFromVersion emits a v2 delta covering everything g knows that
// since (a frontier) does not.
func SerializeFromVersion(g *cg.CausalGraph, since []cg.LV) (Delta, error) {
	_, bOnly, err := cg.Diff(g, since, cg.Heads(g))
	if err != nil {
		return Delta{}, err
	}
	return SerializeDiff(g, bOnly)
}

// SerializeDiffV3 is SerializeDiff's compact cousin: a parent that is
// the first version of an emitted entry is replaced by that entry's
// offset into the prefix-sum of emitted lengths; every other parent
// (including one in the middle or at the tail of an emitted entry) is
// pushed into ExtRef and referenced as -(k+1).
func SerializeDiffV3(g *cg.CausalGraph, ranges []cg.LVRange) (DeltaV3, error) {
	v2, err := SerializeDiff(g, ranges)
	if err != nil {
		return DeltaV3{}, err
	}

	offsets := make([]int64, len(v2.Entries)+1)
	for i, e := range v2.Entries {
		offsets[i+1] = offsets[i] + e.Len
	}
	headPub := make(map[cg.PubVersion]int, len(v2.Entries))
	for i, e := range v2.Entries {
		headPub[cg.PubVersion{Agent: e.Agent, Seq: e.Seq}] = i
	}

	var extRef []cg.PubVersion
	extIdx := make(map[cg.PubVersion]int)
	resolve := func(p cg.PubVersion) int64 {
		if i, ok := headPub[p]; ok {
			return offsets[i]
		}
		if idx, ok := extIdx[p]; ok {
			return -(int64(idx) + 1)
		}
		idx := len(extRef)
		extRef = append(extRef, p)
		extIdx[p] = idx
		return -(int64(idx) + 1)
	}

	out := make([]PartialDeltaEntry, len(v2.Entries))
	for i, e := range v2.Entries {
		packed := make([]int64, len(e.ParentsV2))
		for j, p := range e.ParentsV2 {
			packed[j] = resolve(p)
		}
		out[i] = PartialDeltaEntry{Agent: e.Agent, Seq: e.Seq, Len: e.Len, ParentsV3: packed}
	}
	return DeltaV3{ExtRef: extRef, Entries: out}, nil
}

// diffOffsetToLV resolves a v3 packed parent reference against the LVs
// already assigned to entries earlier in this same delta plus extRef.
func diffOffsetToLV(g *cg.CausalGraph, packed int64, entryOffsets []int64, assignedLVs []cg.LV, extRef []cg.PubVersion) (cg.LV, error) {
	if packed >= 0 {
		idx := sort.Search(len(entryOffsets), func(i int) bool { return entryOffsets[i] > packed }) - 1
		if idx < 0 || idx >= len(assignedLVs) {
			return -1, cgerrors.New(cgerrors.InvalidArgument, "sync: v3 offset %d out of range", packed)
		}
		return assignedLVs[idx] + cg.LV(packed-entryOffsets[idx]), nil
	}
	k := int(-packed - 1)
	if k < 0 || k >= len(extRef) {
		return -1, cgerrors.New(cgerrors.InvalidArgument, "sync: v3 extRef index %d out of range", k)
	}
	return cg.PubToLV(g, extRef[k].Agent, extRef[k].Seq)
}

// MergePartial applies a v2 delta to g, returning the LV ranges actually
// inserted (ranges already fully known are skipped, never an error).
func MergePartial(g *cg.CausalGraph, delta Delta) ([]cg.LVRange, error) {
	var inserted []cg.LVRange
	for _, e := range delta.Entries {
		entry, err := cg.AddPub(g, cg.PubVersion{Agent: e.Agent, Seq: e.Seq}, e.Len, e.ParentsV2)
		if err != nil {
			return nil, cgerrors.Wrap(cgerrors.InvalidArgument, err, "sync: MergePartial: entry %s:%d", e.Agent, e.Seq)
		}
		if entry != nil {
			inserted = append(inserted, cg.LVRange{Start: entry.Version, End: entry.VEnd})
		}
	}
	return inserted, nil
}

// MergePartialV3 applies a v3 delta to g.
func MergePartialV3(g *cg.CausalGraph, delta DeltaV3) ([]cg.LVRange, error) {
	var inserted []cg.LVRange
	entryOffsets := make([]int64, len(delta.Entries)+1)
	for i, e := range delta.Entries {
		entryOffsets[i+1] = entryOffsets[i] + e.Len
	}
	assignedLVs := make([]cg.LV, len(delta.Entries))

	for i, e := range delta.Entries {
		parents := make([]cg.PubVersion, 0, len(e.ParentsV3))
		for _, packed := range e.ParentsV3 {
			lv, err := diffOffsetToLV(g, packed, entryOffsets[:i+1], assignedLVs[:i], delta.ExtRef)
			if err != nil {
				return nil, err
			}
			pub, err := cg.LVToPub(g, lv)
			if err != nil {
				return nil, err
			}
			parents = append(parents, pub)
		}
		entry, err := cg.AddPub(g, cg.PubVersion{Agent: e.Agent, Seq: e.Seq}, e.Len, parents)
		if err != nil {
			return nil, cgerrors.Wrap(cgerrors.InvalidArgument, err, "sync: MergePartialV3: entry %s:%d", e.Agent, e.Seq)
		}
		if entry != nil {
			assignedLVs[i] = entry.Version
			inserted = append(inserted, cg.LVRange{Start: entry.Version, End: entry.VEnd})
		} else {
			lv, err := cg.PubToLV(g, e.Agent, e.Seq)
			if err != nil {
				return nil, err
			}
			assignedLVs[i] = lv
		}
	}
	return inserted, nil
}

// AdvanceVersionFromSerialized computes the frontier that would result
// from merging delta into g, without mutating g: it applies delta to a
// scratch copy (round-tripped through Serialize/FromSerialized, since the
// graph has no exported mutable state to snapshot directly) and reads
// back that copy's heads. Useful for deduplicating concurrent delta
// streams before committing to a real merge.
func AdvanceVersionFromSerialized(g *cg.CausalGraph, delta Delta) ([]cg.LV, error) {
	snap, err := Serialize(g)
	if err != nil {
		return nil, err
	}
	scratch, err := FromSerialized(snap)
	if err != nil {
		return nil, err
	}
	if _, err := MergePartial(scratch, delta); err != nil {
		return nil, err
	}
	return cg.Heads(scratch), nil
}

// MergeLocal implements the peer-merge protocol: everything src knows
// that dest's summary says it's missing is diffed, packed as a v3 delta,
// and applied to dest. Returns the LV ranges inserted into dest.
func MergeLocal(dest, src *cg.CausalGraph) ([]cg.LVRange, error) {
	destSummary := cg.Summarize(dest)
	common, _, err := cg.IntersectWithSummary(src, destSummary)
	if err != nil {
		return nil, err
	}
	_, bOnly, err := cg.Diff(src, common, cg.Heads(src))
	if err != nil {
		return nil, err
	}
	delta, err := SerializeDiffV3(src, bOnly)
	if err != nil {
		return nil, err
	}
	return MergePartialV3(dest, delta)
}

