// Package wire defines the WebSocket protocol for the interactive studio
// and runs the per-connection message loop. Every mutation is a typed
// client message against the connection's session; the server answers
// with a fresh state snapshot, a result, or an error.
package wire

import (
	"encoding/json"

	"github.com/datasmith/datasmith/internal/backend"
	"github.com/datasmith/datasmith/internal/catalog"
	"github.com/datasmith/datasmith/internal/reconcile"
	"github.com/datasmith/datasmith/internal/schema"
	"github.com/datasmith/datasmith/internal/session"
)

// ── Client → Server messages ────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ModeData selects the active form.
type ModeData struct {
	Mode string `json:"mode"`
}

// ProviderData selects the model provider.
type ProviderData struct {
	Provider string `json:"provider"`
}

// CountsData carries generation counts and rule text for whichever form
// the message type addresses.
type CountsData struct {
	Total   int    `json:"num_records"`
	Correct int    `json:"correct_num_records"`
	Wrong   int    `json:"wrong_num_records"`
	Rules   string `json:"rules"`
}

// FieldEditData addresses one field row. Table is only meaningful for
// database-form messages.
type FieldEditData struct {
	Table int    `json:"table,omitempty"`
	Index int    `json:"index"`
	Attr  string `json:"attr,omitempty"`
	Value string `json:"value,omitempty"`
	Type  string `json:"type_id,omitempty"`
}

// TextData carries the natural-language description.
type TextData struct {
	Text string `json:"text"`
}

// ScriptData carries the pasted script.
type ScriptData struct {
	Script string `json:"script"`
}

// DatabaseData carries database-level settings.
type DatabaseData struct {
	Name      string `json:"db_name"`
	Automatic bool   `json:"automatic"`
}

// TableEditData addresses one table.
type TableEditData struct {
	Table   int    `json:"table"`
	Name    string `json:"table_name"`
	Total   int    `json:"num_records"`
	Correct int    `json:"correct_num_records"`
	Wrong   int    `json:"wrong_num_records"`
	Context string `json:"context"`
}

// ReferenceData toggles or points a field's foreign-key reference.
type ReferenceData struct {
	Table       int    `json:"table"`
	Index       int    `json:"index"`
	On          bool   `json:"on"`
	TargetTable string `json:"target_table"`
	TargetField string `json:"target_field"`
}

// ── Server → Client messages ────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// SessionData announces the session on connect.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// StagingView is the snapshot of the reconciliation machine.
type StagingView struct {
	State     reconcile.State    `json:"state"`
	Staging   *reconcile.Staging `json:"staging,omitempty"`
	LastError string             `json:"last_error,omitempty"`
}

// StateData is the full session snapshot sent after every mutation.
type StateData struct {
	Mode     session.Mode        `json:"mode"`
	Provider string              `json:"provider"`
	Single   session.SingleState `json:"single"`
	Text     string              `json:"text"`
	Script   session.ScriptState `json:"script"`
	Database schema.Database     `json:"database"`
	Recon    StagingView         `json:"reconciliation"`
	Busy     bool                `json:"busy"`
}

// CatalogData lists the rich types available to the type selector.
type CatalogData struct {
	Types []catalog.Entry `json:"types"`
}

// RecordsData is a single-table generation result.
type RecordsData struct {
	Count int              `json:"count"`
	Data  []backend.Record `json:"data"`
}

// ScriptResultData is a direct script generation result.
type ScriptResultData struct {
	Count        int              `json:"count"`
	Data         []backend.Record `json:"data"`
	ParsedSchema []map[string]any `json:"parsed_schema,omitempty"`
	ParseError   string           `json:"parse_error,omitempty"`
}

// ErrorData carries an error with its taxonomy code: "validation",
// "remote", "transport", or "internal".
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
