package photo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInput(t *testing.T) {
	input, err := buildInput("IMG_1", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "IMG_1", input.LocalPhotoID)
	assert.Nil(t, input.ObservationID)
	assert.Nil(t, input.CapturedAt)

	input, err = buildInput("IMG_2", "o-1", "leaf", "2026-03-10T09:30:00+03:00")
	require.NoError(t, err)
	require.NotNil(t, input.ObservationID)
	assert.Equal(t, "o-1", *input.ObservationID)
	assert.Equal(t, "leaf", input.Purpose)
	require.NotNil(t, input.CapturedAt)
	assert.True(t, input.CapturedAt.Equal(time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)))

	_, err = buildInput("IMG_3", "", "", "yesterday")
	assert.ErrorContains(t, err, "--captured-at must be RFC 3339")
}
