package causalgraph

import (
	"sort"

	"github.com/jgentle/causalgraph/cgerrors"
	"github.com/jgentle/causalgraph/internal/rle"
	"github.com/jgentle/causalgraph/internal/xlog"
)

// CreateCG creates an empty CausalGraph.
func CreateCG() *CausalGraph {
	return &CausalGraph{
		entries:        rle.New[*cgRun](),
		agentToVersion: make(map[AgentID]*rleClient),
	}
}

// NextLV returns the next available local version.
func NextLV(cg *CausalGraph) LV { return cg.nextLV }

// NextSeqForAgent returns the next assignable sequence number for agent,
// or 0 if the agent is unknown. Deliberately skips holes: if upstream
// users require gap-filling, they manage it externally (spec.md Open
// Question b).
func NextSeqForAgent(cg *CausalGraph, agent AgentID) int64 {
	client, ok := cg.agentToVersion[agent]
	if !ok {
		return 0
	}
	last, ok := client.Last()
	if !ok {
		return 0
	}
	return last.SeqEnd
}

// HasPub reports whether (agent, seq) is known to this graph.
func HasPub(cg *CausalGraph, agent AgentID, seq int64) bool {
	client, ok := cg.agentToVersion[agent]
	if !ok {
		return false
	}
	_, _, err := client.Find(seq)
	return err == nil
}

// sortLVsDedup sorts lvs ascending and removes duplicates in place,
// returning the (possibly shortened) slice.
func sortLVsDedup(lvs []LV) []LV {
	if len(lvs) <= 1 {
		return lvs
	}
	sort.Slice(lvs, func(i, j int) bool { return lvs[i] < lvs[j] })
	j := 1
	for i := 1; i < len(lvs); i++ {
		if lvs[i] != lvs[i-1] {
			lvs[j] = lvs[i]
			j++
		}
	}
	return lvs[:j]
}

// AdvanceFrontier removes any member of frontier that appears in parents
// (it is no longer a dominator, since newLV descends from it), appends
// newLV, and returns the result sorted ascending.
func AdvanceFrontier(frontier []LV, newLV LV, parents []LV) []LV {
	result := make([]LV, 0, len(frontier)+1)
	for _, v := range frontier {
		isParent := false
		for _, p := range parents {
			if v == p {
				isParent = true
				break
			}
		}
		if !isParent {
			result = append(result, v)
		}
	}
	result = append(result, newLV)
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Heads returns a copy of the current frontier.
func Heads(cg *CausalGraph) []LV {
	return append([]LV(nil), cg.heads...)
}

// Add inserts a new [seqStart, seqEnd) run for agent, parented on
// parents, into the graph. It is idempotent: if the run (or a prefix of
// it) is already known, only the unknown suffix is actually inserted,
// reparented onto the last known version of the covered prefix. Returns
// the inserted CGEntry, or nil (no error) if the whole run was already
// known.
func Add(cg *CausalGraph, agent AgentID, seqStart, seqEnd int64, parents []LV) (*CGEntry, error) {
	if seqEnd <= seqStart {
		return nil, cgerrors.New(cgerrors.InvalidArgument, "causalgraph: Add: seqEnd %d <= seqStart %d", seqEnd, seqStart)
	}
	parents = sortLVsDedup(append([]LV(nil), parents...))

	for seqStart < seqEnd {
		client, ok := cg.agentToVersion[agent]
		if !ok {
			break
		}
		run, _, err := client.Find(seqStart)
		if err != nil {
			break
		}
		if run.SeqEnd >= seqEnd {
			return nil, nil // fully duplicate
		}
		lastKnownLV := run.Version + LV(run.SeqEnd-run.Seq) - 1
		seqStart = run.SeqEnd
		parents = []LV{lastKnownLV}
	}

	version := cg.nextLV
	length := seqEnd - seqStart
	vEnd := version + LV(length)

	entry := &cgRun{Version: version, VEnd: vEnd, Agent: agent, Seq: seqStart, Parents: parents}
	cg.entries.Push(entry)
	cg.nextLV = vEnd

	client, ok := cg.agentToVersion[agent]
	if !ok {
		client = rle.New[*clientRun]()
		cg.agentToVersion[agent] = client
	}
	if err := client.Insert(&clientRun{Seq: seqStart, SeqEnd: seqEnd, Version: version}); err != nil {
		return nil, err
	}

	cg.heads = AdvanceFrontier(cg.heads, vEnd-1, parents)

	xlog.Logger.Debugw("causalgraph: Add", "agent", agent, "seq_start", seqStart, "seq_end", seqEnd, "lv_start", version, "lv_end", vEnd)

	out := CGEntry(*entry)
	out.Parents = append([]LV(nil), entry.Parents...)
	return &out, nil
}

// AddPub is Add, resolving public parents (or the current heads, if
// parents is nil) to LVs first.
func AddPub(cg *CausalGraph, id PubVersion, length int64, parents []PubVersion) (*CGEntry, error) {
	var lvParents []LV
	if parents == nil {
		lvParents = append([]LV(nil), cg.heads...)
	} else {
		var err error
		lvParents, err = PubListToLV(cg, parents)
		if err != nil {
			return nil, cgerrors.Wrap(cgerrors.NotFound, err, "causalgraph: AddPub: parent not found")
		}
	}
	return Add(cg, id.Agent, id.Seq, id.Seq+length, lvParents)
}

// FindEntryContaining returns the CGEntry whose LV range contains v.
func FindEntryContaining(cg *CausalGraph, v LV) (*CGEntry, error) {
	run, _, err := cg.entries.Find(int64(v))
	if err != nil {
		return nil, cgerrors.Wrap(cgerrors.NotFound, err, "causalgraph: LV %d not found", v)
	}
	out := CGEntry(*run)
	return &out, nil
}

// LVToPub converts an LV to its (agent, seq) public identity.
func LVToPub(cg *CausalGraph, v LV) (PubVersion, error) {
	entry, err := FindEntryContaining(cg, v)
	if err != nil {
		return PubVersion{}, err
	}
	offset := int64(v - entry.Version)
	return PubVersion{Agent: entry.Agent, Seq: entry.Seq + offset}, nil
}

// LVToPubWithParents converts an LV to its public identity and parents.
// If v is not the first version of its run, the parent is [v-1];
// otherwise it is the run's stored parents.
func LVToPubWithParents(cg *CausalGraph, v LV) (PubVersion, []LV, error) {
	entry, err := FindEntryContaining(cg, v)
	if err != nil {
		return PubVersion{}, nil, err
	}
	offset := int64(v - entry.Version)
	pub := PubVersion{Agent: entry.Agent, Seq: entry.Seq + offset}
	if offset == 0 {
		return pub, append([]LV(nil), entry.Parents...), nil
	}
	return pub, []LV{v - 1}, nil
}

// LVListToPub converts a list of LVs to public identities.
func LVListToPub(cg *CausalGraph, lvs []LV) ([]PubVersion, error) {
	if len(lvs) == 0 {
		return nil, nil
	}
	out := make([]PubVersion, len(lvs))
	for i, v := range lvs {
		pub, err := LVToPub(cg, v)
		if err != nil {
			return nil, err
		}
		out[i] = pub
	}
	return out, nil
}

// PubToLV converts a public (agent, seq) identity to its LV.
func PubToLV(cg *CausalGraph, agent AgentID, seq int64) (LV, error) {
	client, ok := cg.agentToVersion[agent]
	if !ok {
		return -1, cgerrors.New(cgerrors.NotFound, "causalgraph: agent %q unknown", agent)
	}
	run, offset, err := client.Find(seq)
	if err != nil {
		return -1, cgerrors.Wrap(cgerrors.NotFound, err, "causalgraph: %s:%d not found", agent, seq)
	}
	return run.Version + LV(offset), nil
}

// TryPubToLV is PubToLV without an error: the second return is false if
// the version is unknown.
func TryPubToLV(cg *CausalGraph, agent AgentID, seq int64) (LV, bool) {
	lv, err := PubToLV(cg, agent, seq)
	if err != nil {
		return -1, false
	}
	return lv, true
}

// PubListToLV converts a list of public identities to LVs.
func PubListToLV(cg *CausalGraph, pubs []PubVersion) ([]LV, error) {
	if len(pubs) == 0 {
		return nil, nil
	}
	out := make([]LV, len(pubs))
	for i, p := range pubs {
		lv, err := PubToLV(cg, p.Agent, p.Seq)
		if err != nil {
			return nil, err
		}
		out[i] = lv
	}
	return out, nil
}

// PubToLVSpan returns the longest contiguous LV range starting at
// (agent, seq): from seq to the end of the agent's client run that
// contains it (seq and LV both contiguous), which may extend past the
// end of a single CG run.
func PubToLVSpan(cg *CausalGraph, agent AgentID, seq int64) (LVRange, error) {
	client, ok := cg.agentToVersion[agent]
	if !ok {
		return LVRange{}, cgerrors.New(cgerrors.NotFound, "causalgraph: agent %q unknown", agent)
	}
	run, offset, err := client.Find(seq)
	if err != nil {
		return LVRange{}, cgerrors.Wrap(cgerrors.NotFound, err, "causalgraph: %s:%d not found", agent, seq)
	}
	start := run.Version + LV(offset)
	end := run.Version + LV(run.Len())
	return LVRange{Start: start, End: end}, nil
}

// Summarize returns the full vector-clock-style digest of everything
// this graph knows, RLE-merged per agent.
func Summarize(cg *CausalGraph) VersionSummary {
	summary := make(VersionSummary, len(cg.agentToVersion))
	for agent, client := range cg.agentToVersion {
		items := client.Items()
		if len(items) == 0 {
			continue
		}
		ranges := make([][2]int64, len(items))
		for i, run := range items {
			ranges[i] = [2]int64{run.Seq, run.SeqEnd}
		}
		summary[agent] = ranges
	}
	return summary
}

func addToSummary(summary VersionSummary, agent AgentID, start, end int64) VersionSummary {
	if summary == nil {
		summary = make(VersionSummary)
	}
	ranges := summary[agent]
	if n := len(ranges); n > 0 && ranges[n-1][1] == start {
		ranges[n-1][1] = end
	} else {
		ranges = append(ranges, [2]int64{start, end})
	}
	summary[agent] = ranges
	return summary
}

// IntersectWithSummary compares this graph's knowledge against a
// remote's VersionSummary. It returns the common-ancestor frontier (a
// valid starting point for Diff) and the sub-ranges of the remote
// summary that this graph has no record of at all. Per spec.md Open
// Question (c), this only considers what the remote summary claims —
// agents this graph knows about that the remote summary is silent on
// are not reported; the caller only learns what it is missing from the
// remote side.
func IntersectWithSummary(cg *CausalGraph, remote VersionSummary) ([]LV, VersionSummary, error) {
	var collected []LV
	var remoteOnly VersionSummary

	for agent, ranges := range remote {
		client := cg.agentToVersion[agent]
		for _, r := range ranges {
			seqStart, seqEnd := r[0], r[1]
			cursor := seqStart
			if client != nil {
				cur := client.IterRangeClipped(seqStart, seqEnd)
				for {
					crun, ok := cur.Next()
					if !ok {
						break
					}
					if cursor < crun.KeyStart() {
						remoteOnly = addToSummary(remoteOnly, agent, cursor, crun.KeyStart())
					}
					lvStart, lvEnd := int64(crun.Version), int64(crun.Version)+crun.Len()
					eiter := cg.entries.IterRangeClipped(lvStart, lvEnd)
					for {
						erun, ok2 := eiter.Next()
						if !ok2 {
							break
						}
						collected = append(collected, erun.VEnd-1)
					}
					cursor = crun.KeyEnd()
				}
			}
			if cursor < seqEnd {
				remoteOnly = addToSummary(remoteOnly, agent, cursor, seqEnd)
			}
		}
	}

	dominators, err := FindDominators(cg, sortLVsDedup(collected))
	if err != nil {
		return nil, nil, err
	}
	return dominators, remoteOnly, nil
}

// PubVersionCmp is the canonical tie-break ordering for concurrent
// changes: lexicographic on agent, then ascending on seq.
func PubVersionCmp(a, b PubVersion) int {
	if a.Agent != b.Agent {
		if a.Agent < b.Agent {
			return -1
		}
		return 1
	}
	switch {
	case a.Seq < b.Seq:
		return -1
	case a.Seq > b.Seq:
		return 1
	default:
		return 0
	}
}

// LVCmp orders two LVs by their canonical public-version tie-break
// (PubVersionCmp), not by LV magnitude.
func LVCmp(cg *CausalGraph, a, b LV) (int, error) {
	pa, err := LVToPub(cg, a)
	if err != nil {
		return 0, err
	}
	pb, err := LVToPub(cg, b)
	if err != nil {
		return 0, err
	}
	return PubVersionCmp(pa, pb), nil
}
