package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"name"},
	"properties": map[string]interface{}{
		"name":  map[string]interface{}{"type": "string", "minLength": 1},
		"count": map[string]interface{}{"type": "integer", "minimum": float64(0)},
	},
	"additionalProperties": false,
}

func TestValidateAgainstSchema_Valid(t *testing.T) {
	result, err := ValidateAgainstSchema(map[string]interface{}{
		"name":  "run-1",
		"count": float64(3),
	}, testSchema)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateAgainstSchema_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]interface{}
	}{
		{"missing required", map[string]interface{}{"count": float64(1)}},
		{"wrong type", map[string]interface{}{"name": float64(7)}},
		{"below minimum", map[string]interface{}{"name": "x", "count": float64(-1)}},
		{"unknown property", map[string]interface{}{"name": "x", "extra": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateAgainstSchema(tt.doc, testSchema)
			require.NoError(t, err)
			assert.False(t, result.Valid)
			assert.NotEmpty(t, result.ErrorStrings())
		})
	}
}
