package airports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndex(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)
	assert.True(t, idx.IsMetro("LON"))
	assert.False(t, idx.IsMetro("LHR"))
}

func TestExpand(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"LHR", "LGW", "STN", "LTN", "LCY"}, idx.Expand("LON"))
	assert.Equal(t, []string{"EWR", "JFK", "LGA"}, idx.Expand("NYC"))

	// Plain airport codes pass through untouched.
	assert.Equal(t, []string{"ATL"}, idx.Expand("ATL"))
}

func TestExpand_ReturnsACopy(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)

	first := idx.Expand("PAR")
	first[0] = "XXX"
	assert.NotContains(t, idx.Expand("PAR"), "XXX")
}
