// Package export serializes generated records for download: CSV, a
// multi-sheet spreadsheet, and a SQLite database file. The quoting and
// naming rules here are part of the output contract and must not drift.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Record is one generated data row.
type Record = map[string]any

// Columns returns a deterministic column order for a record set: sorted
// field names with the backend's is_valid marker moved to the end. Used
// when the caller has no field model to take the order from.
func Columns(records []Record) []string {
	if len(records) == 0 {
		return nil
	}
	var cols []string
	hasValid := false
	for k := range records[0] {
		if k == "is_valid" {
			hasValid = true
			continue
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	if hasValid {
		cols = append(cols, "is_valid")
	}
	return cols
}

// WriteCSV writes records as CSV. The header row lists the columns; each
// value is double-quoted with internal quotes doubled only when it
// contains a comma or a quote character, and emitted raw otherwise.
// encoding/csv is not used because its quoting rules differ from this
// contract (it also quotes on leading spaces and newlines).
func WriteCSV(w io.Writer, columns []string, records []Record) error {
	if _, err := io.WriteString(w, strings.Join(columns, ",")+"\n"); err != nil {
		return err
	}
	for _, rec := range records {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = csvCell(cellString(rec[col]))
		}
		if _, err := io.WriteString(w, strings.Join(cells, ",")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func csvCell(s string) string {
	if strings.ContainsAny(s, `,"`) {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// cellString renders a record value the way the JSON layer would:
// numbers without a trailing .0 when integral, booleans as true/false,
// nil as the empty string.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
