package schema

// The external parser is less trustworthy than the studio model: its
// records use inconsistent key names and carry extra keys (description,
// confidence) the model does not track. Normalize maps each record onto
// the canonical Field shape via a declarative attribute table rather than
// scattered lookups, so adding an alias is a one-line change.

// attrKeys lists the accepted source keys for one canonical attribute,
// in resolution order.
type attrKeys struct {
	keys     []string
	fallback string
}

var normalizeAttrs = map[string]attrKeys{
	"name":    {keys: []string{"name", "field"}},
	"type":    {keys: []string{"type", "data_type"}, fallback: TypeString},
	"rules":   {keys: []string{"rules", "description"}},
	"example": {keys: []string{"example", "sample"}},
}

// Normalize converts raw parser records into canonical fields. Records
// never carry foreign-key references; reconstruction is not attempted.
// An empty or absent input yields a single blank placeholder field so the
// review surface always has at least one editable row.
func Normalize(raw []map[string]any) []Field {
	if len(raw) == 0 {
		return []Field{BlankField()}
	}
	fields := make([]Field, 0, len(raw))
	for _, rec := range raw {
		fields = append(fields, Field{
			Name:    resolveAttr(rec, normalizeAttrs["name"]),
			Type:    resolveAttr(rec, normalizeAttrs["type"]),
			Rule:    resolveAttr(rec, normalizeAttrs["rules"]),
			Example: resolveAttr(rec, normalizeAttrs["example"]),
		})
	}
	return fields
}

// resolveAttr returns the first non-empty string value among the accepted
// keys, else the attribute's fallback. Non-string values (the parser's
// confidence float, for one) are treated as absent.
func resolveAttr(rec map[string]any, a attrKeys) string {
	for _, k := range a.keys {
		if v, ok := rec[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return a.fallback
}
