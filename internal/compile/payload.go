// Package compile turns the studio's schema model into the exact wire
// payloads the generation backend accepts. Compilation never fails: a
// malformed model degrades by omission (blank fields and tables are
// dropped, half-formed references stripped), and it is the caller's job
// to reject an empty result before any network call.
package compile

// Operation names the backend call a payload belongs to.
type Operation string

const (
	OpGenerateSingle   Operation = "generate-single"
	OpGenerateFromText Operation = "generate-from-text"
	OpGenerateScript   Operation = "generate-from-selenium"
	OpParseScript      Operation = "parse-selenium"
	OpGenerateDatabase Operation = "generate-db"
)

// PayloadField is the wire shape of one schema field. References is only
// populated for database-mode payloads in manual mode.
type PayloadField struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Rules      string      `json:"rules"`
	Example    string      `json:"example"`
	References *PayloadRef `json:"references,omitempty"`
}

// PayloadRef is the wire shape of a completed foreign-key reference.
type PayloadRef struct {
	Table string `json:"table"`
	Field string `json:"field"`
}

// SingleRequest is the /generate payload. AdditionalRules is omitted
// entirely when empty rather than sent as an empty string.
type SingleRequest struct {
	SchemaFields    []PayloadField `json:"schema_fields"`
	NumRecords      int            `json:"num_records"`
	CorrectRecords  int            `json:"correct_num_records"`
	WrongRecords    int            `json:"wrong_num_records"`
	AdditionalRules string         `json:"additional_rules,omitempty"`
	ModelProvider   string         `json:"model_provider"`
}

// TextRequest is the /generate-from-text payload. The backend is solely
// responsible for schema inference.
type TextRequest struct {
	UserText      string `json:"user_text"`
	ModelProvider string `json:"model_provider"`
}

// ScriptRequest is the /generate-from-selenium payload, both the direct
// generation path and the parse-only path.
type ScriptRequest struct {
	SeleniumScript  string `json:"selenium_script"`
	ParseOnly       bool   `json:"parse_only,omitempty"`
	NumRecords      int    `json:"num_records,omitempty"`
	CorrectRecords  int    `json:"correct_num_records,omitempty"`
	WrongRecords    int    `json:"wrong_num_records,omitempty"`
	AdditionalRules string `json:"additional_rules,omitempty"`
	ModelProvider   string `json:"model_provider"`
}

// PayloadTable is the wire shape of one table inside a database payload.
type PayloadTable struct {
	TableName      string         `json:"table_name"`
	NumRecords     int            `json:"num_records"`
	CorrectRecords int            `json:"correct_num_records"`
	WrongRecords   int            `json:"wrong_num_records"`
	Context        string         `json:"additional_context"`
	Fields         []PayloadField `json:"fields"`
}

// DatabaseSchema is the db_schema object inside a DatabaseRequest.
type DatabaseSchema struct {
	DBName             string         `json:"db_name"`
	UseIntelligentMode bool           `json:"use_intelligent_mode"`
	ModelProvider      string         `json:"model_provider"`
	Tables             []PayloadTable `json:"tables"`
}

// DatabaseRequest is the /generate-db payload.
type DatabaseRequest struct {
	DBSchema DatabaseSchema `json:"db_schema"`
}
