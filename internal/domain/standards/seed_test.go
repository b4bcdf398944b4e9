package standards

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeed(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)
	require.Len(t, seed, 2)

	assert.Equal(t, "鋼筋", seed[0].ItemName)
	assert.Equal(t, "material", seed[0].ItemType)
	assert.Equal(t, []string{"材質證明文件", "游標卡尺量測"}, seed[0].InspectionMethods)
	require.NotNil(t, seed[1].ResponsibleParty)
	assert.Equal(t, "廠商", *seed[1].ResponsibleParty)
	assert.Nil(t, seed[1].Notes)
}

func TestLoadSeed(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		seed, err := LoadSeed(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, seed)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := LoadSeed(strings.NewReader("standards:\n  - item_name: 鋼筋\n"))
		assert.ErrorContains(t, err, "seed entry 1")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := LoadSeed(strings.NewReader("standards: [\n"))
		assert.Error(t, err)
	})
}
