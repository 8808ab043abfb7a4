package causalgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCGRunSplitThenAppendReproducesOriginal is the RLE round-trip law
// from spec.md §4.1, exercised against the real cgRun span type instead
// of a synthetic test double.
func TestCGRunSplitThenAppendReproducesOriginal(t *testing.T) {
	for _, width := range []int64{1, 2, 5, 13} {
		original := &cgRun{Version: 100, VEnd: 100 + width, Agent: "a", Seq: 20, Parents: []LV{7, 8}}

		for i := int64(1); i < width; i++ {
			left := original.Clone()
			right := left.TruncateKeepingLeft(i)
			require.True(t, left.TryAppend(right), "width=%d offset=%d (keep-left split)", width, i)
			assert.Equal(t, original, left)
		}

		for i := int64(1); i < width; i++ {
			right := original.Clone()
			left := right.TruncateKeepingRight(i)
			require.True(t, left.TryAppend(right), "width=%d offset=%d (keep-right split)", width, i)
			assert.Equal(t, original, left)
		}
	}
}

// TestClientRunSplitThenAppendReproducesOriginal mirrors the cgRun
// property test for the per-agent clientRun span type.
func TestClientRunSplitThenAppendReproducesOriginal(t *testing.T) {
	for _, width := range []int64{1, 2, 5, 13} {
		original := &clientRun{Seq: 30, SeqEnd: 30 + width, Version: 200}

		for i := int64(1); i < width; i++ {
			left := original.Clone()
			right := left.TruncateKeepingLeft(i)
			require.True(t, left.TryAppend(right), "width=%d offset=%d (keep-left split)", width, i)
			assert.Equal(t, original, left)
		}

		for i := int64(1); i < width; i++ {
			right := original.Clone()
			left := right.TruncateKeepingRight(i)
			require.True(t, left.TryAppend(right), "width=%d offset=%d (keep-right split)", width, i)
			assert.Equal(t, original, left)
		}
	}
}
