package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetArgs(t *testing.T) {
	fields, err := parseSetArgs([]string{"weather=Sunny", "temperatureCelsius=24.5", "notes=null", "confirmationAcknowledged=true"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"weather":                  "Sunny",
		"temperatureCelsius":       24.5,
		"notes":                    nil,
		"confirmationAcknowledged": true,
	}, fields)

	_, err = parseSetArgs([]string{"=x"})
	assert.Error(t, err)
	_, err = parseSetArgs([]string{"weather"})
	assert.Error(t, err)
}

func TestTransitionCmdsCoverLifecycle(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range transitionCmds() {
		names[cmd.Name()] = true
		assert.NotNil(t, cmd.Flags().Lookup("version"), cmd.Name())
	}
	assert.Equal(t, map[string]bool{"start": true, "submit": true, "complete": true, "reopen": true, "incomplete": true}, names)

	for _, cmd := range transitionCmds() {
		hasConfirm := cmd.Flags().Lookup("confirm") != nil
		assert.Equal(t, cmd.Name() == "submit", hasConfirm, cmd.Name())
	}
}
