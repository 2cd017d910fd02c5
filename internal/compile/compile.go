package compile

import "github.com/datasmith/datasmith/internal/schema"

// Single compiles a single-table model. Fields with empty names are
// dropped; references never appear in single-mode payloads.
func Single(fields []schema.Field, total, correct, wrong int, rules, provider string) (Operation, SingleRequest) {
	return OpGenerateSingle, SingleRequest{
		SchemaFields:    payloadFields(fields, false),
		NumRecords:      total,
		CorrectRecords:  correct,
		WrongRecords:    wrong,
		AdditionalRules: rules,
		ModelProvider:   provider,
	}
}

// Text compiles a natural-language request. No field or table structure
// is sent at all.
func Text(userText, provider string) (Operation, TextRequest) {
	return OpGenerateFromText, TextRequest{UserText: userText, ModelProvider: provider}
}

// Script compiles the direct, non-reviewed script path: the raw script is
// forwarded and the backend parses and generates in one call.
func Script(script string, total, correct, wrong int, rules, provider string) (Operation, ScriptRequest) {
	return OpGenerateScript, ScriptRequest{
		SeleniumScript:  script,
		NumRecords:      total,
		CorrectRecords:  correct,
		WrongRecords:    wrong,
		AdditionalRules: rules,
		ModelProvider:   provider,
	}
}

// ParseOnly compiles a parse-only script request.
func ParseOnly(script, provider string) (Operation, ScriptRequest) {
	return OpParseScript, ScriptRequest{
		SeleniumScript: script,
		ParseOnly:      true,
		ModelProvider:  provider,
	}
}

// Database compiles a multi-table model. Tables with empty names and
// fields with empty names are dropped. In automatic mode every reference
// is stripped, even ones set while toggling modes earlier; in manual mode
// only references with a non-empty target table are sent.
func Database(db schema.Database, provider string) (Operation, DatabaseRequest) {
	name := db.Name
	if name == "" {
		name = schema.DefaultDatabaseName
	}

	var tables []PayloadTable
	for _, t := range db.Tables {
		if t.Name == "" {
			continue
		}
		tables = append(tables, PayloadTable{
			TableName:      t.Name,
			NumRecords:     t.Total,
			CorrectRecords: t.Correct,
			WrongRecords:   t.Wrong,
			Context:        t.Context,
			Fields:         payloadFields(t.Fields, !db.Automatic),
		})
	}

	return OpGenerateDatabase, DatabaseRequest{
		DBSchema: DatabaseSchema{
			DBName:             name,
			UseIntelligentMode: db.Automatic,
			ModelProvider:      provider,
			Tables:             tables,
		},
	}
}

// payloadFields converts named fields to their wire shape. References are
// carried only when keepRefs is set and the target table is non-empty; a
// half-formed reference is treated as absent, never sent.
func payloadFields(fields []schema.Field, keepRefs bool) []PayloadField {
	var out []PayloadField
	for _, f := range fields {
		if !f.Named() {
			continue
		}
		pf := PayloadField{
			Name:    f.Name,
			Type:    f.Type,
			Rules:   f.Rule,
			Example: f.Example,
		}
		if keepRefs && f.Reference != nil && f.Reference.Table != "" {
			pf.References = &PayloadRef{Table: f.Reference.Table, Field: f.Reference.Field}
		}
		out = append(out, pf)
	}
	return out
}
