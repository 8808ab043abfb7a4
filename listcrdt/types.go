// Package listcrdt is a worked example of a consumer built on top of the
// causalgraph engine: a small positional list CRDT (insert/delete,
// checkout at any version) that stores operation content the engine
// itself never sees. It demonstrates causalgraph.Diff-driven merge —
// the engine provides the causal skeleton, listcrdt supplies the
// document semantics layered on top of it.
package listcrdt

import "github.com/jgentle/causalgraph/causalgraph"

// OpType distinguishes the two list mutations this CRDT supports.
type OpType string

const (
	OpInsert OpType = "ins"
	OpDelete OpType = "del"
)

// Op is a single list mutation. Pos is a position in the *visible*
// document at the time the op was produced; Content is only meaningful
// for OpInsert.
type Op[T any] struct {
	Type    OpType
	Pos     int
	Content T
}

// OpLog pairs the sequence of operations with the causal graph that
// orders them. An op's LV is always its index into Ops: every call that
// appends to Ops must have just allocated that same LV from CG.
type OpLog[T any] struct {
	Ops []Op[T]
	CG  *causalgraph.CausalGraph
}

type itemState int

const (
	notYetInserted itemState = -1
	inserted       itemState = 0
	deletedState   itemState = 1
)

// item is one element of the document's full known history, in stable
// insertion-tie-break order. It never leaves the package.
type item struct {
	opID     causalgraph.LV
	curState itemState
}

// editContext is the mutable state a traversal walks: the full item
// list, the current visibility of each, and which item each delete op
// resolved to (fixed on first resolution so a later retreat+reapply
// cycle can't rebind a delete to a different target).
type editContext struct {
	items         []item
	itemIndexByLV map[causalgraph.LV]int
	delTargets    map[causalgraph.LV]causalgraph.LV
	curVersion    []causalgraph.LV
}

func newEditContext() *editContext {
	return &editContext{
		itemIndexByLV: make(map[causalgraph.LV]int),
		delTargets:    make(map[causalgraph.LV]causalgraph.LV),
	}
}

// Doc is a single-replica handle onto an OpLog plus a live edit context
// kept checked out at the graph's current heads. Concurrent remote
// operations integrated via IntegrateRemote do not move the live
// context automatically; call MergeToHeads to fold them in.
type Doc[T any] struct {
	Log *OpLog[T]
	ctx *editContext
}

// New creates an empty document.
func New[T any]() *Doc[T] {
	return &Doc[T]{
		Log: &OpLog[T]{CG: causalgraph.CreateCG()},
		ctx: newEditContext(),
	}
}
