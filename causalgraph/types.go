// Package causalgraph implements the doubly-indexed, run-length-encoded
// store at the heart of an operation-based CRDT engine: it maps
// bidirectionally between local version numbers and public (agent, seq)
// identities, tracks the frontier, and answers the graph questions such
// systems need (diff, dominators, containment, conflict scan). It stores
// only the causal skeleton — never operation payloads; see the listcrdt
// package for a consumer that layers content on top of this engine.
package causalgraph

import "fmt"

// AgentID is an opaque identifier for a change-producing endpoint.
type AgentID string

// LV (local version) is a dense, per-peer, auto-incrementing identifier
// for a single known change. LVs are private to a peer and must never be
// serialized across peers.
type LV int64

// PubVersion (public version) is the globally unique (agent, seq) pair
// that identifies a change across peers.
type PubVersion struct {
	Agent AgentID
	Seq   int64
}

func (v PubVersion) String() string {
	return fmt.Sprintf("%s:%d", v.Agent, v.Seq)
}

// LVRange is a half-open range of local versions [Start, End).
type LVRange struct {
	Start LV
	End   LV
}

// Len returns the number of LVs covered by the range.
func (r LVRange) Len() int64 { return int64(r.End - r.Start) }

// CGEntry is a maximal contiguous run of changes sharing one agent with
// a single linear parent chain. Parents belong to the first change in
// the run only; versions at version+1..vEnd-1 have the implicit sole
// parent "previous LV".
type CGEntry struct {
	Version LV      // start of the LV half-open range
	VEnd    LV      // end (exclusive) of the LV half-open range
	Agent   AgentID // agent for this whole run
	Seq     int64   // public seq of the first version in the run
	Parents []LV    // parents of Version (not of later versions in the run)
}

// Len returns the number of versions covered by the entry.
func (e CGEntry) Len() int64 { return int64(e.VEnd - e.Version) }

// ClientEntry maps a contiguous per-agent [Seq, SeqEnd) range to the LV
// range starting at Version. Multiple client entries may exist per
// agent when that agent contributed on divergent branches.
type ClientEntry struct {
	Seq     int64
	SeqEnd  int64
	Version LV
}

// Len returns the number of sequence numbers covered by the entry.
func (c ClientEntry) Len() int64 { return c.SeqEnd - c.Seq }

// VersionSummary is a vector-clock-style digest: per agent, the
// RLE-merged list of [seq, seqEnd) ranges known to a peer.
type VersionSummary map[AgentID][][2]int64

// CausalGraph is the bidirectional (local-version <-> public-id) index
// plus the frontier. Exclusive-owner semantics: the owner may mutate;
// concurrent reads are safe, concurrent mutation is not (see spec §5).
type CausalGraph struct {
	entries        *rleEntries
	agentToVersion map[AgentID]*rleClient
	heads          []LV
	nextLV         LV
}
