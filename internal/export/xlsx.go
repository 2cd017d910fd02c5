package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// maxSheetNameLen is the spreadsheet format's hard limit on sheet names.
const maxSheetNameLen = 31

// TableSet is an ordered multi-table result: table names in generation
// order plus their records.
type TableSet struct {
	Order  []string
	Tables map[string][]Record
}

// WriteWorkbook writes one sheet per table, named after the table
// (truncated to 31 characters), with a header row and one row per
// record. Tables are written in the set's order.
func WriteWorkbook(w io.Writer, set TableSet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range set.Order {
		records := set.Tables[name]
		sheet := sheetName(name)
		if i == 0 {
			// Rename the default sheet rather than leaving it empty.
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("naming sheet %q: %w", sheet, err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("adding sheet %q: %w", sheet, err)
			}
		}

		cols := Columns(records)
		header := make([]any, len(cols))
		for j, c := range cols {
			header[j] = c
		}
		if err := setRow(f, sheet, 1, header); err != nil {
			return err
		}
		for r, rec := range records {
			row := make([]any, len(cols))
			for j, c := range cols {
				row[j] = cellString(rec[c])
			}
			if err := setRow(f, sheet, r+2, row); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d of %q: %w", row, sheet, err)
	}
	return nil
}

func sheetName(table string) string {
	if table == "" {
		table = "table"
	}
	if len(table) > maxSheetNameLen {
		return table[:maxSheetNameLen]
	}
	return table
}
