package sync

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cg "github.com/jgentle/causalgraph/causalgraph"
)

func buildGraph(t *testing.T) *cg.CausalGraph {
	t.Helper()
	g := cg.CreateCG()
	_, err := cg.Add(g, "a", 0, 2, nil)
	require.NoError(t, err)
	_, err = cg.Add(g, "b", 0, 2, []cg.LV{})
	require.NoError(t, err)
	_, err = cg.Add(g, "c", 0, 1, []cg.LV{1, 3})
	require.NoError(t, err)
	return g
}

func TestSerializeRoundTrip(t *testing.T) {
	g := buildGraph(t)
	snap, err := Serialize(g)
	require.NoError(t, err)

	g2, err := FromSerialized(snap)
	require.NoError(t, err)

	assert.Equal(t, cg.Summarize(g), cg.Summarize(g2))
	assert.Equal(t, cg.Heads(g), cg.Heads(g2))
	require.NoError(t, cg.Check(g2))
}

func TestSerializeDiffFullRangeThenMergeIntoEmptyReproducesGraph(t *testing.T) {
	g := buildGraph(t)
	delta, err := SerializeDiff(g, []cg.LVRange{{0, cg.NextLV(g)}})
	require.NoError(t, err)

	empty := cg.CreateCG()
	_, err = MergePartial(empty, delta)
	require.NoError(t, err)

	assert.Equal(t, cg.Summarize(g), cg.Summarize(empty))
	assert.Equal(t, cg.Heads(g), cg.Heads(empty))
}

func TestSerializeDiffPartitionConcatenationReproducesGraph(t *testing.T) {
	g := buildGraph(t)
	n := cg.NextLV(g)
	mid := n / 2

	d1, err := SerializeDiff(g, []cg.LVRange{{0, mid}})
	require.NoError(t, err)
	d2, err := SerializeDiff(g, []cg.LVRange{{mid, n}})
	require.NoError(t, err)

	empty := cg.CreateCG()
	_, err = MergePartial(empty, d1)
	require.NoError(t, err)
	_, err = MergePartial(empty, d2)
	require.NoError(t, err)

	assert.Equal(t, cg.Summarize(g), cg.Summarize(empty))
	assert.Equal(t, cg.Heads(g), cg.Heads(empty))
}

func TestMergePartialIdempotent(t *testing.T) {
	g := buildGraph(t)
	delta, err := SerializeDiff(g, []cg.LVRange{{0, cg.NextLV(g)}})
	require.NoError(t, err)

	dest := cg.CreateCG()
	inserted1, err := MergePartial(dest, delta)
	require.NoError(t, err)
	assert.NotEmpty(t, inserted1)

	before := cg.Summarize(dest)
	inserted2, err := MergePartial(dest, delta)
	require.NoError(t, err)
	assert.Empty(t, inserted2, "reapplying the same delta must insert nothing new")
	assert.Equal(t, before, cg.Summarize(dest))
}

func TestSerializeDiffV3RoundTrip(t *testing.T) {
	g := buildGraph(t)
	delta, err := SerializeDiffV3(g, []cg.LVRange{{0, cg.NextLV(g)}})
	require.NoError(t, err)

	empty := cg.CreateCG()
	_, err = MergePartialV3(empty, delta)
	require.NoError(t, err)

	assert.Equal(t, cg.Summarize(g), cg.Summarize(empty))
	assert.Equal(t, cg.Heads(g), cg.Heads(empty))
}

func TestMergeLocalScenario6(t *testing.T) {
	x := buildGraph(t)
	y := cg.CreateCG()

	_, err := MergeLocal(y, x)
	require.NoError(t, err)

	assert.Equal(t, cg.Summarize(x), cg.Summarize(y))

	xHeadsPub, err := cg.LVListToPub(x, cg.Heads(x))
	require.NoError(t, err)
	yHeadsPub, err := cg.LVListToPub(y, cg.Heads(y))
	require.NoError(t, err)
	assert.ElementsMatch(t, xHeadsPub, yHeadsPub)

	inserted, err := MergeLocal(y, x)
	require.NoError(t, err)
	assert.Empty(t, inserted, "a second mergeLocal must be a no-op")
}

func TestMergeLocalBidirectionalConverges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	agentsA := []cg.AgentID{"a1", "a2"}
	agentsB := []cg.AgentID{"b1", "b2"}

	a := cg.CreateCG()
	for i := 0; i < 15; i++ {
		agent := agentsA[rng.Intn(len(agentsA))]
		seq := cg.NextSeqForAgent(a, agent)
		_, err := cg.Add(a, agent, seq, seq+1, cg.Heads(a))
		require.NoError(t, err)
	}
	b := cg.CreateCG()
	for i := 0; i < 15; i++ {
		agent := agentsB[rng.Intn(len(agentsB))]
		seq := cg.NextSeqForAgent(b, agent)
		_, err := cg.Add(b, agent, seq, seq+1, cg.Heads(b))
		require.NoError(t, err)
	}

	_, err := MergeLocal(a, b)
	require.NoError(t, err)
	_, err = MergeLocal(b, a)
	require.NoError(t, err)

	require.NoError(t, cg.Check(a))
	require.NoError(t, cg.Check(b))

	assert.Equal(t, cg.Summarize(a), cg.Summarize(b))

	aHeads, err := cg.LVListToPub(a, cg.Heads(a))
	require.NoError(t, err)
	bHeads, err := cg.LVListToPub(b, cg.Heads(b))
	require.NoError(t, err)
	assert.ElementsMatch(t, aHeads, bHeads)
}

func TestAdvanceVersionFromSerializedDoesNotMutate(t *testing.T) {
	g := buildGraph(t)
	before := cg.Summarize(g)

	delta, err := SerializeDiff(g, []cg.LVRange{{0, cg.NextLV(g)}})
	require.NoError(t, err)

	empty := cg.CreateCG()
	frontier, err := AdvanceVersionFromSerialized(empty, delta)
	require.NoError(t, err)
	assert.NotEmpty(t, frontier)
	assert.Empty(t, cg.Summarize(empty), "AdvanceVersionFromSerialized must not mutate its graph argument")
	assert.Equal(t, before, cg.Summarize(g))
}
