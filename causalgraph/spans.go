package causalgraph

import "github.com/jgentle/causalgraph/internal/rle"

// cgRun is the rle.Span implementation backing the entries index
// (keyed by LV). It is exactly a CGEntry; the distinction exists only so
// this file can implement rle.Span without polluting the public
// CGEntry type with merge/split machinery.
type cgRun CGEntry

func (r *cgRun) KeyStart() int64 { return int64(r.Version) }
func (r *cgRun) KeyEnd() int64   { return int64(r.VEnd) }
func (r *cgRun) Len() int64      { return int64(r.VEnd - r.Version) }

func (r *cgRun) Clone() *cgRun {
	parents := append([]LV(nil), r.Parents...)
	c := cgRun(*r)
	c.Parents = parents
	return &c
}

// TryAppend implements the CG run extension rule from spec §3: next
// continues prev's agent/seq run, and next's sole parent is prev's tail.
func (r *cgRun) TryAppend(next *cgRun) bool {
	if next.Version != r.VEnd {
		return false
	}
	if next.Agent != r.Agent {
		return false
	}
	if next.Seq != r.Seq+r.Len() {
		return false
	}
	if len(next.Parents) != 1 || next.Parents[0] != r.VEnd-1 {
		return false
	}
	r.VEnd = next.VEnd
	return true
}

func (r *cgRun) TruncateKeepingLeft(offset int64) *cgRun {
	splitLV := r.Version + LV(offset)
	right := &cgRun{
		Version: splitLV,
		VEnd:    r.VEnd,
		Agent:   r.Agent,
		Seq:     r.Seq + offset,
		Parents: []LV{splitLV - 1},
	}
	r.VEnd = splitLV
	return right
}

func (r *cgRun) TruncateKeepingRight(offset int64) *cgRun {
	splitLV := r.Version + LV(offset)
	left := &cgRun{
		Version: r.Version,
		VEnd:    splitLV,
		Agent:   r.Agent,
		Seq:     r.Seq,
		Parents: r.Parents,
	}
	r.Version = splitLV
	r.Seq = r.Seq + offset
	r.Parents = []LV{splitLV - 1}
	return left
}

// clientRun is the rle.Span implementation backing a single agent's
// client-entry index (keyed by Seq). It is exactly a ClientEntry.
type clientRun ClientEntry

func (c *clientRun) KeyStart() int64 { return c.Seq }
func (c *clientRun) KeyEnd() int64   { return c.SeqEnd }
func (c *clientRun) Len() int64      { return c.SeqEnd - c.Seq }

func (c *clientRun) Clone() *clientRun {
	cp := *c
	return &cp
}

// TryAppend implements the client-entry extension rule from spec §3:
// next continues immediately where prev left off, in both seq and LV.
func (c *clientRun) TryAppend(next *clientRun) bool {
	if next.Seq != c.SeqEnd {
		return false
	}
	if next.Version != c.Version+LV(c.Len()) {
		return false
	}
	c.SeqEnd = next.SeqEnd
	return true
}

func (c *clientRun) TruncateKeepingLeft(offset int64) *clientRun {
	right := &clientRun{
		Seq:     c.Seq + offset,
		SeqEnd:  c.SeqEnd,
		Version: c.Version + LV(offset),
	}
	c.SeqEnd = c.Seq + offset
	return right
}

func (c *clientRun) TruncateKeepingRight(offset int64) *clientRun {
	left := &clientRun{
		Seq:     c.Seq,
		SeqEnd:  c.Seq + offset,
		Version: c.Version,
	}
	c.Version = c.Version + LV(offset)
	c.Seq = c.Seq + offset
	return left
}

type rleEntries = rle.List[*cgRun]
type rleClient = rle.List[*clientRun]
