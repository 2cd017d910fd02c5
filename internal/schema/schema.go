// Package schema holds the canonical in-memory model the studio edits:
// fields, tables, and foreign-key references. The request compiler reads
// this model; the normalizer produces it from external parse results.
package schema

// TypeString is the default logical type for a field that has not been
// assigned one from the catalog.
const TypeString = "string"

// ForeignKeyRef points a field at another table's column. A ref with an
// empty Table is half-formed and is dropped at compile time, never sent.
type ForeignKeyRef struct {
	Table string `json:"table"`
	Field string `json:"field"`
}

// DefaultTargetField is the column a new foreign-key reference points at
// until the user changes it.
const DefaultTargetField = "id"

// NewForeignKeyRef returns a reference with no target table yet and the
// default target field.
func NewForeignKeyRef() *ForeignKeyRef {
	return &ForeignKeyRef{Field: DefaultTargetField}
}

// Field is one column specification. A field with an empty Name is a
// placeholder row and never reaches a compiled payload.
type Field struct {
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Rule      string         `json:"rules"`
	Example   string         `json:"example"`
	Reference *ForeignKeyRef `json:"references,omitempty"`
}

// BlankField returns a placeholder field: everything empty except the
// default type.
func BlankField() Field {
	return Field{Type: TypeString}
}

// Named reports whether the field has a non-empty name.
func (f Field) Named() bool { return f.Name != "" }

// NamedFields returns the fields with non-empty names, preserving order.
func NamedFields(fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if f.Named() {
			out = append(out, f)
		}
	}
	return out
}

// Table is an ordered collection of fields plus table-level generation
// counts and free-text context. Field order is column order in output.
type Table struct {
	Name    string  `json:"name"`
	Total   int     `json:"num_records"`
	Correct int     `json:"correct_num_records"`
	Wrong   int     `json:"wrong_num_records"`
	Context string  `json:"context"`
	Fields  []Field `json:"fields"`
}

// Default generation counts. The backend defaults num_records to 5 and
// correct to num_records, so a fresh table mirrors that.
const (
	DefaultTotal   = 5
	DefaultCorrect = 5
	DefaultWrong   = 0
)

// NewTable creates a table with one blank field and default counts.
func NewTable(name string) Table {
	return Table{
		Name:    name,
		Total:   DefaultTotal,
		Correct: DefaultCorrect,
		Wrong:   DefaultWrong,
		Fields:  []Field{BlankField()},
	}
}

// Database is a named collection of tables. Automatic selects the
// intelligent generation mode, in which foreign-key references are never
// transmitted. Removing a table leaves sibling references pointing at it
// untouched; dangling target-table names are a documented limitation.
type Database struct {
	Name      string  `json:"db_name"`
	Automatic bool    `json:"automatic"`
	Tables    []Table `json:"tables"`
}

// DefaultDatabaseName fills in for a blank database name at compile time.
const DefaultDatabaseName = "my_database"

// NewDatabase creates a database in automatic mode with one unnamed table.
func NewDatabase() Database {
	return Database{Automatic: true, Tables: []Table{NewTable("")}}
}
