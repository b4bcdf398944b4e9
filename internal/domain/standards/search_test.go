package standards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testStandards() []QualityStandard {
	return []QualityStandard{
		{
			StandardID:         1,
			ItemName:           "鋼筋",
			ItemType:           "material",
			Source:             strPtr("ref_manual_A"),
			InspectionItems:    []string{"材質", "尺寸"},
			InspectionMethods:  []string{"材質證明文件", "游標卡尺量測"},
			AcceptanceCriteria: []string{"符號標記完整", "尺寸公差±2%"},
		},
		{
			StandardID:         2,
			ItemName:           "水泥",
			ItemType:           "material",
			Source:             strPtr("ref_manual_B"),
			InspectionItems:    []string{"出廠證明", "批號"},
			InspectionMethods:  []string{"文件審查", "目視"},
			AcceptanceCriteria: []string{"規格符合 CNS", "批號可追蹤"},
		},
		{
			StandardID:      3,
			ItemName:        "網路交換器",
			ItemType:        "equipment",
			InspectionItems: []string{"型號", "埠數"},
		},
	}
}

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	idx, err := NewSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Rebuild(testStandards()))
	return idx
}

func hitIDs(hits []SearchHit) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.StandardID
	}
	return ids
}

func TestSearchIndex_Search(t *testing.T) {
	idx := newTestIndex(t)

	t.Run("by name", func(t *testing.T) {
		hits, err := idx.Search("鋼筋", "", 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, hitIDs(hits))
	})

	t.Run("by inspection text", func(t *testing.T) {
		hits, err := idx.Search("游標卡尺", "", 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, hitIDs(hits))
	})

	t.Run("type filter", func(t *testing.T) {
		hits, err := idx.Search("鋼筋", "equipment", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)

		hits, err = idx.Search("交換器", "equipment", 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, hitIDs(hits))
	})
}

func TestSearchIndex_Rebuild(t *testing.T) {
	idx := newTestIndex(t)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	require.NoError(t, idx.Rebuild(testStandards()[1:2]))

	n, err = idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	hits, err := idx.Search("鋼筋", "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
