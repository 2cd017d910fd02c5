package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasmith/datasmith/internal/schema"
)

func TestApply_RulePrecedence(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  schema.Field
	}{
		{
			name:  "default rule wins over description",
			entry: Entry{ID: "pan", DefaultRule: "10 uppercase chars", Description: "permanent account number"},
			want:  schema.Field{Name: "doc", Type: "pan", Rule: "10 uppercase chars", Example: "old"},
		},
		{
			name:  "description fills when no default rule",
			entry: Entry{ID: "city", Description: "a city name"},
			want:  schema.Field{Name: "doc", Type: "city", Rule: "a city name", Example: "old"},
		},
		{
			name:  "custom rule cleared when entry has neither",
			entry: Entry{ID: "string"},
			want:  schema.Field{Name: "doc", Type: "string", Rule: "", Example: "old"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := schema.Field{Name: "doc", Type: "string", Rule: "hand-written rule", Example: "old"}
			assert.Equal(t, tt.want, Apply(f, tt.entry))
		})
	}
}

func TestApply_TypeFallsBackToDisplayName(t *testing.T) {
	f := Apply(schema.Field{Name: "x"}, Entry{DisplayName: "Phone Number"})
	assert.Equal(t, "Phone Number", f.Type)
}

func TestApply_ExampleOnlyWhenPresent(t *testing.T) {
	f := schema.Field{Name: "x", Example: "keep-me"}
	assert.Equal(t, "keep-me", Apply(f, Entry{ID: "number"}).Example)
	assert.Equal(t, "fresh", Apply(f, Entry{ID: "number", Example: "fresh"}).Example)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	f := schema.Field{Name: "x", Type: "string", Rule: "original"}
	Apply(f, Entry{ID: "email", DefaultRule: "valid address"})
	assert.Equal(t, "original", f.Rule)
	assert.Equal(t, "string", f.Type)
}

func TestDefault_EmbeddedCatalog(t *testing.T) {
	cat := Default()
	require.NotEmpty(t, cat.Entries())

	for _, id := range []string{"string", "email", "phone", "number", "date", "pan", "ifsc"} {
		_, ok := cat.Lookup(id)
		assert.True(t, ok, "missing built-in type %s", id)
	}

	str, ok := cat.Lookup("string")
	require.True(t, ok)
	assert.NotEmpty(t, str.DisplayName)
}

func TestLookup_UnknownID(t *testing.T) {
	_, ok := Default().Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestIDs_Sorted(t *testing.T) {
	ids := Default().IDs()
	require.NotEmpty(t, ids)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestLoadFile_CustomCatalog(t *testing.T) {
	src := `
types: [
	{id: "iban", display_name: "IBAN", default_rule: "valid IBAN with country prefix", example: "NO9386011117947"},
	{id: "color", display_name: "Color"},
]
`
	path := filepath.Join(t.TempDir(), "custom.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, cat.Entries(), 2)

	iban, ok := cat.Lookup("iban")
	require.True(t, ok)
	assert.Equal(t, "valid IBAN with country prefix", iban.DefaultRule)
	assert.Equal(t, "NO9386011117947", iban.Example)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(bad, []byte(`types: [{description: "no id or name"}]`), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}
