package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGreenhouseSpecs(t *testing.T) {
	greenhouses, err := parseGreenhouseSpecs([]string{"Greenhouse B:4:3", " Rose House : 2 : 5 "})
	require.NoError(t, err)
	require.Len(t, greenhouses, 2)
	assert.Equal(t, "Greenhouse B", greenhouses[0].Name)
	assert.Equal(t, 4, greenhouses[0].BayCount)
	assert.Equal(t, 3, greenhouses[0].BenchesPerBay)
	assert.Equal(t, "Rose House", greenhouses[1].Name)
	assert.Equal(t, 5, greenhouses[1].BenchesPerBay)

	for _, bad := range []string{"Greenhouse B", "Greenhouse B:4", "Greenhouse B:x:3", "Greenhouse B:4:-1"} {
		_, err := parseGreenhouseSpecs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseFieldBlockSpecs(t *testing.T) {
	blocks, err := parseFieldBlockSpecs([]string{"Block A:2"})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Block A", blocks[0].Name)
	assert.Equal(t, 2, blocks[0].BayCount)

	_, err = parseFieldBlockSpecs([]string{"Block A:2:1"})
	assert.Error(t, err)
}

func TestOptionalID(t *testing.T) {
	assert.Nil(t, optionalID(""))
	id := optionalID("0190c6d2-0000-7000-8000-000000000001")
	require.NotNil(t, id)
	assert.Equal(t, "0190c6d2-0000-7000-8000-000000000001", *id)
}
