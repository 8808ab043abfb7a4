package listcrdt

import (
	"github.com/jgentle/causalgraph/causalgraph"
	"github.com/jgentle/causalgraph/cgerrors"
	"github.com/jgentle/causalgraph/internal/xlog"
)

// integrate allocates id in log.CG (parented on parents, or the graph's
// current heads if parents is nil) and appends op to log.Ops at the
// resulting LV. A fully-duplicate id (already known) is reported as
// AlreadyExists rather than silently ignored, since a listcrdt caller
// always has fresh content to attach and a duplicate means it is
// replaying an op it already has.
func integrate[T any](log *OpLog[T], id causalgraph.PubVersion, op Op[T], parents []causalgraph.PubVersion) (causalgraph.LV, error) {
	entry, err := causalgraph.AddPub(log.CG, id, 1, parents)
	if err != nil {
		return -1, err
	}
	if entry == nil {
		return -1, cgerrors.New(cgerrors.AlreadyExists, "listcrdt: op %s already known", id)
	}
	lv := entry.Version
	if int(lv) != len(log.Ops) {
		return -1, cgerrors.New(cgerrors.InvariantViolation,
			"listcrdt: op log desynced from causal graph (lv=%d, len(ops)=%d)", lv, len(log.Ops))
	}
	log.Ops = append(log.Ops, op)
	return lv, nil
}

// applyOp moves lv's effect forward into ctx. Re-applying an op whose
// item already exists (because it was previously retreated) restores its
// prior state instead of inserting a duplicate item or re-resolving a
// delete's target against a document shape that may have since changed.
func applyOp[T any](log *OpLog[T], ctx *editContext, lv causalgraph.LV) error {
	op := log.Ops[lv]
	switch op.Type {
	case OpInsert:
		if idx, ok := ctx.itemIndexByLV[lv]; ok {
			ctx.items[idx].curState = inserted
			return nil
		}
		pos := op.Pos
		if pos < 0 {
			pos = 0
		}
		if pos > len(ctx.items) {
			pos = len(ctx.items)
		}
		ctx.items = append(ctx.items, item{})
		copy(ctx.items[pos+1:], ctx.items[pos:])
		ctx.items[pos] = item{opID: lv, curState: inserted}
		for i := pos; i < len(ctx.items); i++ {
			ctx.itemIndexByLV[ctx.items[i].opID] = i
		}

	case OpDelete:
		if target, ok := ctx.delTargets[lv]; ok {
			if target < 0 {
				return nil
			}
			idx, ok2 := ctx.itemIndexByLV[target]
			if !ok2 {
				return cgerrors.New(cgerrors.InvariantViolation, "listcrdt: delete target %d for op %d missing from context", target, lv)
			}
			ctx.items[idx].curState = deletedState
			return nil
		}
		target := causalgraph.LV(-1)
		visible := 0
		for i := range ctx.items {
			if ctx.items[i].curState != inserted {
				continue
			}
			if visible == op.Pos {
				target = ctx.items[i].opID
				ctx.items[i].curState = deletedState
				break
			}
			visible++
		}
		ctx.delTargets[lv] = target
	}
	return nil
}

// retreatOp undoes lv's effect, leaving the item's slot in ctx.items
// intact (only its visibility state changes) so position bookkeeping for
// concurrent items stays stable across retreat/reapply cycles.
func retreatOp[T any](log *OpLog[T], ctx *editContext, lv causalgraph.LV) error {
	op := log.Ops[lv]
	switch op.Type {
	case OpInsert:
		idx, ok := ctx.itemIndexByLV[lv]
		if !ok {
			return cgerrors.New(cgerrors.InvariantViolation, "listcrdt: retreat: insert %d has no item", lv)
		}
		ctx.items[idx].curState = notYetInserted

	case OpDelete:
		target, ok := ctx.delTargets[lv]
		if !ok || target < 0 {
			return nil
		}
		idx, ok2 := ctx.itemIndexByLV[target]
		if !ok2 {
			return cgerrors.New(cgerrors.InvariantViolation, "listcrdt: retreat: delete target %d for op %d missing", target, lv)
		}
		ctx.items[idx].curState = inserted
	}
	return nil
}

// moveTo walks ctx from its current version to target using a single
// causalgraph.Diff call: every LV the graph's invariants guarantee has a
// strictly smaller LV than its children (see causalgraph's CompareVersions),
// so retreating the aOnly ranges newest-first and applying the bOnly
// ranges oldest-first always processes operations in valid causal order —
// no special-casing for "first head" or "single common ancestor" is
// needed, unlike a BFS from one frontier member at a time.
func moveTo[T any](log *OpLog[T], ctx *editContext, target []causalgraph.LV) error {
	aOnly, bOnly, err := causalgraph.Diff(log.CG, ctx.curVersion, target)
	if err != nil {
		return err
	}
	for i := len(aOnly) - 1; i >= 0; i-- {
		r := aOnly[i]
		for v := r.End - 1; v >= r.Start; v-- {
			if err := retreatOp(log, ctx, v); err != nil {
				return err
			}
		}
	}
	for _, r := range bOnly {
		for v := r.Start; v < r.End; v++ {
			if err := applyOp(log, ctx, v); err != nil {
				return err
			}
		}
	}
	ctx.curVersion = append([]causalgraph.LV(nil), target...)
	return nil
}

func snapshotFrom[T any](log *OpLog[T], ctx *editContext) []T {
	out := make([]T, 0, len(ctx.items))
	for _, it := range ctx.items {
		if it.curState == inserted {
			out = append(out, log.Ops[it.opID].Content)
		}
	}
	return out
}

// LocalInsert creates and integrates a local insert at the document's
// current heads, then advances the live context to include it.
func (d *Doc[T]) LocalInsert(agent causalgraph.AgentID, pos int, content T) (causalgraph.LV, error) {
	seq := causalgraph.NextSeqForAgent(d.Log.CG, agent)
	lv, err := integrate(d.Log, causalgraph.PubVersion{Agent: agent, Seq: seq}, Op[T]{Type: OpInsert, Pos: pos, Content: content}, nil)
	if err != nil {
		return -1, err
	}
	if err := moveTo(d.Log, d.ctx, []causalgraph.LV{lv}); err != nil {
		return lv, err
	}
	xlog.Logger.Debugw("listcrdt: local insert", "agent", agent, "seq", seq, "lv", lv, "pos", pos)
	return lv, nil
}

// LocalDelete creates and integrates a local delete at the document's
// current heads, then advances the live context to include it.
func (d *Doc[T]) LocalDelete(agent causalgraph.AgentID, pos int) (causalgraph.LV, error) {
	seq := causalgraph.NextSeqForAgent(d.Log.CG, agent)
	lv, err := integrate(d.Log, causalgraph.PubVersion{Agent: agent, Seq: seq}, Op[T]{Type: OpDelete, Pos: pos}, nil)
	if err != nil {
		return -1, err
	}
	if err := moveTo(d.Log, d.ctx, []causalgraph.LV{lv}); err != nil {
		return lv, err
	}
	xlog.Logger.Debugw("listcrdt: local delete", "agent", agent, "seq", seq, "lv", lv, "pos", pos)
	return lv, nil
}

// IntegrateRemote records a foreign operation into the log without
// moving the live context; call MergeToHeads afterward to fold any newly
// known operations into the checked-out document.
func (d *Doc[T]) IntegrateRemote(agent causalgraph.AgentID, seq int64, op Op[T], parents []causalgraph.PubVersion) (causalgraph.LV, error) {
	lv, err := integrate(d.Log, causalgraph.PubVersion{Agent: agent, Seq: seq}, op, parents)
	if err != nil {
		return -1, err
	}
	xlog.Logger.Debugw("listcrdt: integrated remote op", "agent", agent, "seq", seq, "lv", lv)
	return lv, nil
}

// MergeToHeads advances the live document context to the causal graph's
// current frontier, folding in whatever remote operations IntegrateRemote
// (or a sync.MergePartial against the shared graph) has added since the
// last checkout.
func (d *Doc[T]) MergeToHeads() error {
	return moveTo(d.Log, d.ctx, causalgraph.Heads(d.Log.CG))
}

// Checkout computes the document's content at an arbitrary version
// without disturbing the live context.
func (d *Doc[T]) Checkout(version []causalgraph.LV) ([]T, error) {
	ctx := newEditContext()
	if err := moveTo(d.Log, ctx, version); err != nil {
		return nil, err
	}
	return snapshotFrom(d.Log, ctx), nil
}

// Snapshot returns the document's content at its current live version.
func (d *Doc[T]) Snapshot() []T {
	return snapshotFrom(d.Log, d.ctx)
}

// Version returns a copy of the live context's current frontier.
func (d *Doc[T]) Version() []causalgraph.LV {
	return append([]causalgraph.LV(nil), d.ctx.curVersion...)
}
