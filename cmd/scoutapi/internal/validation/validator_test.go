package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
)

func TestValidateBulkObservations(t *testing.T) {
	v, err := NewSchemaValidator(4)
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "valid",
			payload: `{"sessionId":"s1","observations":[{"sessionTargetId":"t1","speciesCode":"THRIPS","bayIndex":0,"count":3,"clientRequestId":"k1"}]}`,
		},
		{
			name:    "with version",
			payload: `{"sessionId":"s1","observations":[{"sessionTargetId":"t1","speciesCode":"BOTRYTIS","count":0,"version":2}]}`,
		},
		{
			name:    "negative count",
			payload: `{"sessionId":"s1","observations":[{"sessionTargetId":"t1","speciesCode":"THRIPS","count":-1}]}`,
			wantErr: "$.observations.0.count",
		},
		{
			name:    "missing session id",
			payload: `{"observations":[{"sessionTargetId":"t1","speciesCode":"THRIPS","count":1}]}`,
			wantErr: "validation failed at '$'",
		},
		{
			name:    "empty batch",
			payload: `{"sessionId":"s1","observations":[]}`,
			wantErr: "$.observations",
		},
		{
			name:    "unknown field",
			payload: `{"sessionId":"s1","observations":[{"sessionTargetId":"t1","speciesCode":"THRIPS","count":1,"colour":"red"}]}`,
			wantErr: "$.observations.0",
		},
		{
			name:    "malformed json",
			payload: `{"sessionId":`,
			wantErr: "Malformed JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(BulkObservations, []byte(tt.payload))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrBadRequest))
			assert.Contains(t, apperr.Detail(err), tt.wantErr)
		})
	}

	assert.Equal(t, 1, v.schemaCache.Len(), "compiled schema is cached")
}

func TestValidateUnknownSchema(t *testing.T) {
	v, err := NewSchemaValidator(1)
	require.NoError(t, err)

	err = v.Validate("missing.json", []byte(`{}`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperr.ErrBadRequest))
}

func TestNewSchemaValidator_InvalidSize(t *testing.T) {
	_, err := NewSchemaValidator(0)
	assert.Error(t, err)
}
