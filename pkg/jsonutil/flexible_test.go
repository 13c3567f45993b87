package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"string", `"Order Total"`, "Order Total"},
		{"integer", `42`, "42"},
		{"float", `3.14`, "3.14"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &f))
			assert.Equal(t, tt.expected, f.String())
		})
	}
}

func TestFlexibleString_InStruct(t *testing.T) {
	var parsed struct {
		Name        FlexibleString `json:"name"`
		Description FlexibleString `json:"description"`
	}

	raw := `{"name": 12345, "description": "Numeric order identifier"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &parsed))

	assert.Equal(t, "12345", parsed.Name.String())
	assert.Equal(t, "Numeric order identifier", parsed.Description.String())
}
