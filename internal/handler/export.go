package handler

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/datasmith/datasmith/internal/export"
	"github.com/datasmith/datasmith/internal/schema"
)

// ExportHandler converts generated records into downloadable files.
type ExportHandler struct{}

// NewExportHandler creates the handler.
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// CSVRequest is the body of POST /v1/export/csv. Columns is optional;
// when omitted the column order is derived from the records.
type CSVRequest struct {
	Filename string          `json:"filename"`
	Columns  []string        `json:"columns"`
	Records  []export.Record `json:"records"`
}

// ExportCSV writes one table of records as a CSV attachment.
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var body CSVRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if len(body.Records) == 0 {
		errorToHTTP(w, schema.Validation("no records to export"))
		return
	}
	cols := body.Columns
	if len(cols) == 0 {
		cols = export.Columns(body.Records)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", attachment(body.Filename, "data.csv"))
	if err := export.WriteCSV(w, cols, body.Records); err != nil {
		log.Printf("csv export: %v", err)
	}
}

// WorkbookRequest is the body of POST /v1/export/xlsx and
// POST /v1/export/sqlite. Order is optional; when omitted tables are
// written in sorted name order.
type WorkbookRequest struct {
	Filename string                     `json:"filename"`
	DBName   string                     `json:"db_name"`
	Order    []string                   `json:"generation_order"`
	Tables   map[string][]export.Record `json:"tables"`
}

// ExportXLSX writes a set of tables as an XLSX workbook, one sheet per
// table.
func (h *ExportHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	var body WorkbookRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	set, err := tableSet(body)
	if err != nil {
		errorToHTTP(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment(body.Filename, "data.xlsx"))
	if err := export.WriteWorkbook(w, set); err != nil {
		log.Printf("xlsx export: %v", err)
	}
}

// ExportSQLite writes a set of tables as a SQLite database file. The
// file is built in a temp dir and streamed back.
func (h *ExportHandler) ExportSQLite(w http.ResponseWriter, r *http.Request) {
	var body WorkbookRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	set, err := tableSet(body)
	if err != nil {
		errorToHTTP(w, err)
		return
	}

	dir, err := os.MkdirTemp("", "datasmith-export-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not stage export")
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "export.db")
	if err := export.WriteSQLite(r.Context(), path, set); err != nil {
		log.Printf("sqlite export: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "sqlite export failed")
		return
	}

	name := body.Filename
	if name == "" {
		if body.DBName != "" {
			name = body.DBName + ".db"
		} else {
			name = "data.db"
		}
	}
	w.Header().Set("Content-Type", "application/vnd.sqlite3")
	w.Header().Set("Content-Disposition", attachment(name, "data.db"))
	http.ServeFile(w, r, path)
}

func tableSet(body WorkbookRequest) (export.TableSet, error) {
	if len(body.Tables) == 0 {
		return export.TableSet{}, schema.Validation("no tables to export")
	}
	order := body.Order
	if len(order) == 0 {
		order = make([]string, 0, len(body.Tables))
		for name := range body.Tables {
			order = append(order, name)
		}
		sort.Strings(order)
	}
	return export.TableSet{Order: order, Tables: body.Tables}, nil
}

func attachment(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	return `attachment; filename="` + name + `"`
}
