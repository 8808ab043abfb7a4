package causalgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAdd(t *testing.T, g *CausalGraph, agent AgentID, start, end int64, parents []LV) *CGEntry {
	t.Helper()
	e, err := Add(g, agent, start, end, parents)
	require.NoError(t, err)
	return e
}

func TestScenario1LinearChain(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 3, nil)

	require.Equal(t, 1, g.entries.Len())
	entry := g.entries.Items()[0]
	assert.Equal(t, LV(0), entry.Version)
	assert.Equal(t, LV(3), entry.VEnd)

	assert.Equal(t, []LV{2}, Heads(g))

	pub, err := LVToPub(g, 1)
	require.NoError(t, err)
	assert.Equal(t, PubVersion{Agent: "a", Seq: 1}, pub)

	assert.Equal(t, VersionSummary{"a": [][2]int64{{0, 3}}}, Summarize(g))
	require.NoError(t, Check(g))
}

func TestScenario2TwoWayConcurrency(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 2, []LV{})
	mustAdd(t, g, "b", 0, 2, []LV{})

	assert.Equal(t, []LV{1, 3}, Heads(g))

	aOnly, bOnly, err := Diff(g, []LV{1}, []LV{3})
	require.NoError(t, err)
	assert.Equal(t, []LVRange{{0, 2}}, aOnly)
	assert.Equal(t, []LVRange{{2, 4}}, bOnly)

	cmp, err := CompareVersions(g, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)

	dom, err := FindDominators(g, []LV{1, 3})
	require.NoError(t, err)
	assert.Equal(t, []LV{1, 3}, dom)

	dom, err = FindDominators(g, []LV{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []LV{1, 3}, dom)

	require.NoError(t, Check(g))
}

func TestScenario3Merge(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 2, []LV{})
	mustAdd(t, g, "b", 0, 2, []LV{})
	mustAdd(t, g, "c", 0, 1, []LV{1, 3})

	assert.Equal(t, []LV{4}, Heads(g))

	ok, err := ContainsLV(g, Heads(g), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ContainsLV(g, []LV{1}, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	type visit struct {
		r    LVRange
		flag ConflictFlag
	}
	var visited []visit
	common, err := FindConflicting(g, []LV{1}, []LV{3}, func(r LVRange, f ConflictFlag) bool {
		visited = append(visited, visit{r, f})
		return true
	})
	require.NoError(t, err)
	assert.Empty(t, common)
	require.Len(t, visited, 2)
	assert.Contains(t, visited, visit{LVRange{0, 2}, ConflictA})
	assert.Contains(t, visited, visit{LVRange{2, 4}, ConflictB})

	require.NoError(t, Check(g))
}

func TestScenario4IdempotentInsert(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 5, nil)

	e, err := Add(g, "a", 2, 5, nil)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Equal(t, LV(5), NextLV(g))
	require.NoError(t, Check(g))
}

func TestScenario5Hole(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 3, nil)
	parentLV, err := PubToLV(g, "a", 2)
	require.NoError(t, err)
	mustAdd(t, g, "a", 10, 12, []LV{parentLV})

	client := g.agentToVersion["a"]
	require.Equal(t, 2, client.Len())
	assert.Equal(t, int64(0), client.Items()[0].Seq)
	assert.Equal(t, int64(3), client.Items()[0].SeqEnd)
	assert.Equal(t, int64(10), client.Items()[1].Seq)
	assert.Equal(t, int64(12), client.Items()[1].SeqEnd)

	assert.Equal(t, int64(12), NextSeqForAgent(g, "a"))
	assert.False(t, HasPub(g, "a", 5))
	require.NoError(t, Check(g))
}

func TestFindEntryContainingUnknownLV(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 3, nil)
	_, err := FindEntryContaining(g, 10)
	require.Error(t, err)
}

func TestAddRejectsEmptyRange(t *testing.T) {
	g := CreateCG()
	_, err := Add(g, "a", 5, 5, nil)
	require.Error(t, err)
}

func TestCompareVersionsRejectsEqualInputs(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 3, nil)
	_, err := CompareVersions(g, 1, 1)
	require.Error(t, err)
}

func TestDiffSameFrontierIsEmpty(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 2, []LV{})
	mustAdd(t, g, "b", 0, 2, []LV{})
	heads := Heads(g)
	aOnly, bOnly, err := Diff(g, heads, heads)
	require.NoError(t, err)
	assert.Empty(t, aOnly)
	assert.Empty(t, bOnly)
}

func TestPubAccessorsRoundTripAgainstLV(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 3, nil)
	mustAdd(t, g, "b", 0, 2, []LV{2})

	type entry struct {
		agent AgentID
		seq   int64
		lv    LV
		len   int64
	}
	entries := []entry{
		{"a", 0, 0, 3},
		{"b", 0, 3, 2},
	}

	for _, e := range entries {
		for offset := int64(0); offset < e.len; offset++ {
			lv, err := PubToLV(g, e.agent, e.seq+offset)
			require.NoError(t, err)
			assert.Equal(t, e.lv+LV(offset), lv)

			gotLV, ok := TryPubToLV(g, e.agent, e.seq+offset)
			require.True(t, ok)
			assert.Equal(t, lv, gotLV)

			span, err := PubToLVSpan(g, e.agent, e.seq+offset)
			require.NoError(t, err)
			assert.Equal(t, lv, span.Start)
			assert.Equal(t, e.lv+LV(e.len), span.End)
		}
	}

	_, ok := TryPubToLV(g, "a", 99)
	assert.False(t, ok)

	_, err := PubToLVSpan(g, "nobody", 0)
	require.Error(t, err)

	pubs, err := PubListToLV(g, []PubVersion{{Agent: "a", Seq: 1}, {Agent: "b", Seq: 1}})
	require.NoError(t, err)
	assert.Equal(t, []LV{1, 4}, pubs)

	empty, err := PubListToLV(g, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = PubListToLV(g, []PubVersion{{Agent: "nobody", Seq: 0}})
	require.Error(t, err)
}

func TestLVToPubWithParentsFirstVersionUsesRunParents(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 2, nil)
	mustAdd(t, g, "b", 0, 1, []LV{1})

	pub, parents, err := LVToPubWithParents(g, 2)
	require.NoError(t, err)
	assert.Equal(t, PubVersion{Agent: "b", Seq: 0}, pub)
	assert.Equal(t, []LV{1}, parents)
}

func TestLVToPubWithParentsMidRunUsesPredecessor(t *testing.T) {
	g := CreateCG()
	mustAdd(t, g, "a", 0, 3, nil)

	pub, parents, err := LVToPubWithParents(g, 1)
	require.NoError(t, err)
	assert.Equal(t, PubVersion{Agent: "a", Seq: 1}, pub)
	assert.Equal(t, []LV{0}, parents)
}

func TestPubVersionCmpOrdersByAgentThenSeq(t *testing.T) {
	assert.Equal(t, -1, PubVersionCmp(PubVersion{Agent: "a", Seq: 5}, PubVersion{Agent: "b", Seq: 0}))
	assert.Equal(t, -1, PubVersionCmp(PubVersion{Agent: "a", Seq: 0}, PubVersion{Agent: "a", Seq: 1}))
	assert.Equal(t, 0, PubVersionCmp(PubVersion{Agent: "a", Seq: 1}, PubVersion{Agent: "a", Seq: 1}))
}
