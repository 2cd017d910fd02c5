package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AliasKeys(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]any
		want Field
	}{
		{
			name: "canonical keys",
			rec:  map[string]any{"name": "email", "type": "email", "rules": "must be valid", "example": "a@b.com"},
			want: Field{Name: "email", Type: "email", Rule: "must be valid", Example: "a@b.com"},
		},
		{
			name: "parser aliases",
			rec:  map[string]any{"field": "age", "data_type": "number", "description": "18 to 99", "sample": "42"},
			want: Field{Name: "age", Type: "number", Rule: "18 to 99", Example: "42"},
		},
		{
			name: "canonical key wins over alias",
			rec:  map[string]any{"name": "first", "field": "second", "type": "number", "data_type": "date"},
			want: Field{Name: "first", Type: "number"},
		},
		{
			name: "alias fills empty canonical",
			rec:  map[string]any{"name": "", "field": "fallback"},
			want: Field{Name: "fallback", Type: TypeString},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := Normalize([]map[string]any{tt.rec})
			require.Len(t, fields, 1)
			assert.Equal(t, tt.want, fields[0])
		})
	}
}

func TestNormalize_MissingTypeDefaultsToString(t *testing.T) {
	fields := Normalize([]map[string]any{{"name": "city"}})
	require.Len(t, fields, 1)
	assert.Equal(t, TypeString, fields[0].Type)
}

func TestNormalize_NonStringValuesIgnored(t *testing.T) {
	fields := Normalize([]map[string]any{
		{"name": 42, "field": "real_name", "type": true, "confidence": 0.93},
	})
	require.Len(t, fields, 1)
	assert.Equal(t, "real_name", fields[0].Name)
	assert.Equal(t, TypeString, fields[0].Type)
}

func TestNormalize_EmptyInputYieldsPlaceholder(t *testing.T) {
	for _, raw := range [][]map[string]any{nil, {}} {
		fields := Normalize(raw)
		require.Len(t, fields, 1)
		assert.Equal(t, BlankField(), fields[0])
		assert.Empty(t, fields[0].Name)
		assert.Equal(t, TypeString, fields[0].Type)
	}
}

func TestNormalize_PreservesRecordOrder(t *testing.T) {
	raw := []map[string]any{
		{"name": "c"},
		{"name": "a"},
		{"name": "b"},
	}
	fields := Normalize(raw)
	require.Len(t, fields, 3)
	assert.Equal(t, "c", fields[0].Name)
	assert.Equal(t, "a", fields[1].Name)
	assert.Equal(t, "b", fields[2].Name)
}

func TestNormalize_NeverReconstructsReferences(t *testing.T) {
	fields := Normalize([]map[string]any{
		{"name": "user_id", "references": map[string]any{"table": "users", "field": "id"}},
	})
	require.Len(t, fields, 1)
	assert.Nil(t, fields[0].Reference)
}
