package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedFields_FiltersBlanks(t *testing.T) {
	fields := []Field{
		{Name: "email", Type: "email"},
		{Type: TypeString},
		{Name: "age", Type: "number"},
		{},
	}
	named := NamedFields(fields)
	require.Len(t, named, 2)
	assert.Equal(t, "email", named[0].Name)
	assert.Equal(t, "age", named[1].Name)
}

func TestNamedFields_AllBlank(t *testing.T) {
	assert.Empty(t, NamedFields([]Field{BlankField(), BlankField()}))
	assert.Empty(t, NamedFields(nil))
}

func TestNewForeignKeyRef_DefaultTarget(t *testing.T) {
	ref := NewForeignKeyRef()
	assert.Empty(t, ref.Table)
	assert.Equal(t, "id", ref.Field)
}

func TestNewTable_Defaults(t *testing.T) {
	tbl := NewTable("users")
	assert.Equal(t, "users", tbl.Name)
	assert.Equal(t, 5, tbl.Total)
	assert.Equal(t, 5, tbl.Correct)
	assert.Equal(t, 0, tbl.Wrong)
	require.Len(t, tbl.Fields, 1)
	assert.Equal(t, BlankField(), tbl.Fields[0])
}

func TestNewDatabase_StartsAutomatic(t *testing.T) {
	db := NewDatabase()
	assert.True(t, db.Automatic)
	require.Len(t, db.Tables, 1)
	assert.Empty(t, db.Tables[0].Name)
}

func TestField_ReferenceOmittedWhenNil(t *testing.T) {
	data, err := json.Marshal(Field{Name: "plain", Type: TypeString})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "references")

	data, err = json.Marshal(Field{
		Name:      "user_id",
		Type:      "number",
		Reference: &ForeignKeyRef{Table: "users", Field: "id"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"references":{"table":"users","field":"id"}`)
}
