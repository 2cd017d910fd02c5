package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// WriteSQLite writes a generated multi-table result into a SQLite
// database file at path. Every column is TEXT — the generated values are
// strings as far as this system is concerned, and type affinity belongs
// to whoever consumes the file. Tables are created in generation order so
// a reader following the file sees parents before children.
func WriteSQLite(ctx context.Context, path string, set TableSet) error {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range set.Order {
		records := set.Tables[name]
		cols := Columns(records)
		if len(cols) == 0 {
			continue
		}
		if err := writeTable(ctx, tx, name, cols, records); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func writeTable(ctx context.Context, tx *sql.Tx, name string, cols []string, records []Record) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT)",
		quoteIdent(name), strings.Join(quoted, " TEXT, "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name), strings.Join(quoted, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", name, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = cellString(rec[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", name, err)
		}
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
