package compile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasmith/datasmith/internal/schema"
)

func TestSingle_DropsUnnamedFields(t *testing.T) {
	fields := []schema.Field{
		{Name: "email", Type: "email", Rule: "valid address", Example: "a@b.com"},
		{Type: schema.TypeString},
		{Name: "age", Type: "number"},
	}

	op, req := Single(fields, 10, 8, 2, "", "ollama")
	assert.Equal(t, OpGenerateSingle, op)
	require.Len(t, req.SchemaFields, 2)
	assert.Equal(t, "email", req.SchemaFields[0].Name)
	assert.Equal(t, "age", req.SchemaFields[1].Name)
	assert.Equal(t, 10, req.NumRecords)
	assert.Equal(t, 8, req.CorrectRecords)
	assert.Equal(t, 2, req.WrongRecords)
	assert.Equal(t, "ollama", req.ModelProvider)
}

func TestSingle_NeverCarriesReferences(t *testing.T) {
	fields := []schema.Field{
		{Name: "user_id", Type: "number", Reference: &schema.ForeignKeyRef{Table: "users", Field: "id"}},
	}
	_, req := Single(fields, 5, 5, 0, "", "ollama")
	require.Len(t, req.SchemaFields, 1)
	assert.Nil(t, req.SchemaFields[0].References)
}

func TestSingle_RulesOmittedWhenEmpty(t *testing.T) {
	_, req := Single([]schema.Field{{Name: "a"}}, 5, 5, 0, "", "ollama")
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "additional_rules")

	_, req = Single([]schema.Field{{Name: "a"}}, 5, 5, 0, "all lowercase", "ollama")
	data, err = json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"additional_rules":"all lowercase"`)
}

func TestText_ForwardsPromptVerbatim(t *testing.T) {
	op, req := Text("a shop with customers and orders", "groq")
	assert.Equal(t, OpGenerateFromText, op)
	assert.Equal(t, "a shop with customers and orders", req.UserText)
	assert.Equal(t, "groq", req.ModelProvider)
}

func TestScript_DirectPath(t *testing.T) {
	op, req := Script("driver.find_element(...)", 7, 5, 2, "use Norwegian names", "ollama")
	assert.Equal(t, OpGenerateScript, op)
	assert.Equal(t, "driver.find_element(...)", req.SeleniumScript)
	assert.False(t, req.ParseOnly)
	assert.Equal(t, 7, req.NumRecords)
	assert.Equal(t, "use Norwegian names", req.AdditionalRules)
}

func TestParseOnly_SetsFlagAndSkipsCounts(t *testing.T) {
	op, req := ParseOnly("driver.get(...)", "ollama")
	assert.Equal(t, OpParseScript, op)
	assert.True(t, req.ParseOnly)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parse_only":true`)
	assert.NotContains(t, string(data), "num_records")
	assert.NotContains(t, string(data), "additional_rules")
}

func TestDatabase_ManualModeKeepsCompletedRefs(t *testing.T) {
	db := schema.Database{
		Name: "shop",
		Tables: []schema.Table{
			{
				Name: "users", Total: 5, Correct: 5,
				Fields: []schema.Field{{Name: "id", Type: "number"}},
			},
			{
				Name: "orders", Total: 10, Correct: 8, Wrong: 2,
				Fields: []schema.Field{
					{Name: "user_id", Type: "number", Reference: &schema.ForeignKeyRef{Table: "users", Field: "id"}},
					{Name: "note", Type: "string", Reference: &schema.ForeignKeyRef{Field: "id"}},
				},
			},
		},
	}

	op, req := Database(db, "ollama")
	assert.Equal(t, OpGenerateDatabase, op)
	assert.Equal(t, "shop", req.DBSchema.DBName)
	assert.False(t, req.DBSchema.UseIntelligentMode)
	require.Len(t, req.DBSchema.Tables, 2)

	orders := req.DBSchema.Tables[1]
	require.Len(t, orders.Fields, 2)
	require.NotNil(t, orders.Fields[0].References)
	assert.Equal(t, "users", orders.Fields[0].References.Table)
	assert.Equal(t, "id", orders.Fields[0].References.Field)
	// Half-formed ref (empty target table) is treated as absent.
	assert.Nil(t, orders.Fields[1].References)
}

func TestDatabase_AutomaticModeStripsAllRefs(t *testing.T) {
	db := schema.Database{
		Name:      "shop",
		Automatic: true,
		Tables: []schema.Table{
			{
				Name: "orders", Total: 5, Correct: 5,
				Fields: []schema.Field{
					{Name: "user_id", Type: "number", Reference: &schema.ForeignKeyRef{Table: "users", Field: "id"}},
				},
			},
		},
	}

	_, req := Database(db, "ollama")
	assert.True(t, req.DBSchema.UseIntelligentMode)
	require.Len(t, req.DBSchema.Tables, 1)
	require.Len(t, req.DBSchema.Tables[0].Fields, 1)
	assert.Nil(t, req.DBSchema.Tables[0].Fields[0].References)
}

func TestDatabase_DropsUnnamedTablesAndDefaultsName(t *testing.T) {
	db := schema.Database{
		Tables: []schema.Table{
			schema.NewTable(""),
			{Name: "real", Total: 5, Correct: 5, Fields: []schema.Field{{Name: "a"}}},
		},
	}

	_, req := Database(db, "ollama")
	assert.Equal(t, schema.DefaultDatabaseName, req.DBSchema.DBName)
	require.Len(t, req.DBSchema.Tables, 1)
	assert.Equal(t, "real", req.DBSchema.Tables[0].TableName)
}

func TestDatabase_EmptyModelCompilesToEmptyTables(t *testing.T) {
	_, req := Database(schema.NewDatabase(), "ollama")
	assert.Empty(t, req.DBSchema.Tables)
}

func TestDatabase_TableWithOnlyBlankFields(t *testing.T) {
	db := schema.Database{
		Tables: []schema.Table{schema.NewTable("users")},
	}
	_, req := Database(db, "ollama")
	require.Len(t, req.DBSchema.Tables, 1)
	assert.Empty(t, req.DBSchema.Tables[0].Fields)
}
