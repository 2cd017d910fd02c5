package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/datasmith/datasmith/internal/backend"
	"github.com/datasmith/datasmith/internal/catalog"
	"github.com/datasmith/datasmith/internal/compile"
	"github.com/datasmith/datasmith/internal/event"
	"github.com/datasmith/datasmith/internal/eventbus"
	"github.com/datasmith/datasmith/internal/reconcile"
	"github.com/datasmith/datasmith/internal/schema"
	"github.com/datasmith/datasmith/internal/session"
)

// Handler manages WebSocket connections for the studio.
type Handler struct {
	sessions *session.Manager
	client   *backend.Client
	catalog  *catalog.Catalog
	bus      *eventbus.Bus
}

// NewHandler creates a WebSocket handler with all dependencies.
func NewHandler(sessions *session.Manager, client *backend.Client, cat *catalog.Catalog, bus *eventbus.Bus) *Handler {
	return &Handler{sessions: sessions, client: client, catalog: cat, bus: bus}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. Each
// connection owns one session; messages apply in arrival order, which is
// what makes the model single-writer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("studio: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	sess := h.sessions.Create()
	defer h.sessions.Remove(sess.ID)
	ctx := r.Context()

	h.send(ctx, conn, ServerMessage{Type: "session", Data: SessionData{SessionID: sess.ID}})
	h.sendState(ctx, conn, "", sess)

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("studio: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}
		sess.Touch()
		h.dispatch(ctx, conn, sess, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	var err error
	switch msg.Type {
	case "ping":
		h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		return
	case "state":
		// Snapshot only; nothing to mutate.
	case "catalog":
		h.send(ctx, conn, ServerMessage{Type: "catalog", RequestID: msg.ID, Data: CatalogData{Types: h.catalog.Entries()}})
		return
	case "set_mode":
		err = h.setMode(sess, msg.Data)
	case "set_provider":
		err = h.setProvider(sess, msg.Data)
	case "single_counts":
		err = h.singleCounts(sess, msg.Data)
	case "single_add_field":
		sess.SingleAddField()
	case "single_remove_field":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error { return sess.SingleRemoveField(d.Index) })
	case "single_update_field":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error { return sess.SingleUpdateField(d.Index, d.Attr, d.Value) })
	case "single_apply_type":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error {
			entry, lookupErr := h.entry(d.Type)
			if lookupErr != nil {
				return lookupErr
			}
			return sess.SingleApplyType(d.Index, entry)
		})
	case "text_set":
		err = h.textSet(sess, msg.Data)
	case "script_set":
		err = h.scriptSet(sess, msg.Data)
	case "script_counts":
		err = h.scriptCounts(sess, msg.Data)
	case "parse_script":
		h.parseScript(ctx, conn, sess, msg)
		return
	case "staging_add_field":
		err = h.stagingEdit(sess, func() error { sess.Recon.AddField(); return nil })
	case "staging_remove_field":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error {
			return h.stagingEdit(sess, func() error { return sess.Recon.RemoveField(d.Index) })
		})
	case "staging_update_field":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error {
			return h.stagingEdit(sess, func() error { return sess.Recon.EditField(d.Index, d.Attr, d.Value) })
		})
	case "staging_apply_type":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error {
			entry, lookupErr := h.entry(d.Type)
			if lookupErr != nil {
				return lookupErr
			}
			return h.stagingEdit(sess, func() error { return sess.Recon.ApplyType(d.Index, entry) })
		})
	case "staging_counts":
		err = h.stagingCounts(sess, msg.Data)
	case "confirm":
		h.confirm(ctx, conn, sess, msg)
		return
	case "db_set":
		err = h.dbSet(sess, msg.Data)
	case "db_add_table":
		sess.AddTable()
	case "db_remove_table":
		err = h.tableEdit(msg.Data, func(d TableEditData) error { return sess.RemoveTable(d.Table) })
	case "db_update_table":
		err = h.tableEdit(msg.Data, func(d TableEditData) error {
			return sess.UpdateTable(d.Table, d.Name, d.Total, d.Correct, d.Wrong, d.Context)
		})
	case "db_add_field":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error { return sess.TableAddField(d.Table) })
	case "db_remove_field":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error { return sess.TableRemoveField(d.Table, d.Index) })
	case "db_update_field":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error { return sess.TableUpdateField(d.Table, d.Index, d.Attr, d.Value) })
	case "db_apply_type":
		err = h.fieldEdit(msg.Data, func(d FieldEditData) error {
			entry, lookupErr := h.entry(d.Type)
			if lookupErr != nil {
				return lookupErr
			}
			return sess.TableApplyType(d.Table, d.Index, entry)
		})
	case "db_toggle_reference":
		err = h.refEdit(msg.Data, func(d ReferenceData) error { return sess.ToggleReference(d.Table, d.Index, d.On) })
	case "db_set_reference":
		err = h.refEdit(msg.Data, func(d ReferenceData) error {
			return sess.SetReference(d.Table, d.Index, d.TargetTable, d.TargetField)
		})
	case "generate":
		h.generate(ctx, conn, sess, msg)
		return
	default:
		h.sendError(ctx, conn, msg.ID, "validation", fmt.Sprintf("unknown message type: %s", msg.Type))
		return
	}

	if err != nil {
		h.sendErr(ctx, conn, msg.ID, err)
		return
	}
	h.sendState(ctx, conn, msg.ID, sess)
}

// ── mutation decoding helpers ───────────────────────────────────────────

func (h *Handler) setMode(sess *session.Session, raw json.RawMessage) error {
	var d ModeData
	if err := decode(raw, &d); err != nil {
		return err
	}
	return sess.SetMode(session.Mode(d.Mode))
}

func (h *Handler) setProvider(sess *session.Session, raw json.RawMessage) error {
	var d ProviderData
	if err := decode(raw, &d); err != nil {
		return err
	}
	sess.SetProvider(d.Provider)
	return nil
}

func (h *Handler) singleCounts(sess *session.Session, raw json.RawMessage) error {
	var d CountsData
	if err := decode(raw, &d); err != nil {
		return err
	}
	sess.SetSingleCounts(d.Total, d.Correct, d.Wrong, d.Rules)
	return nil
}

func (h *Handler) textSet(sess *session.Session, raw json.RawMessage) error {
	var d TextData
	if err := decode(raw, &d); err != nil {
		return err
	}
	sess.SetText(d.Text)
	return nil
}

func (h *Handler) scriptSet(sess *session.Session, raw json.RawMessage) error {
	var d ScriptData
	if err := decode(raw, &d); err != nil {
		return err
	}
	sess.SetScript(d.Script)
	return nil
}

func (h *Handler) scriptCounts(sess *session.Session, raw json.RawMessage) error {
	var d CountsData
	if err := decode(raw, &d); err != nil {
		return err
	}
	sess.SetScriptCounts(d.Total, d.Correct, d.Wrong, d.Rules)
	return nil
}

func (h *Handler) stagingCounts(sess *session.Session, raw json.RawMessage) error {
	var d CountsData
	if err := decode(raw, &d); err != nil {
		return err
	}
	return h.stagingEdit(sess, func() error {
		sess.Recon.SetCounts(d.Total, d.Correct, d.Wrong, d.Rules)
		return nil
	})
}

func (h *Handler) dbSet(sess *session.Session, raw json.RawMessage) error {
	var d DatabaseData
	if err := decode(raw, &d); err != nil {
		return err
	}
	sess.SetDatabase(d.Name, d.Automatic)
	return nil
}

func (h *Handler) fieldEdit(raw json.RawMessage, apply func(FieldEditData) error) error {
	var d FieldEditData
	if err := decode(raw, &d); err != nil {
		return err
	}
	return apply(d)
}

func (h *Handler) tableEdit(raw json.RawMessage, apply func(TableEditData) error) error {
	var d TableEditData
	if err := decode(raw, &d); err != nil {
		return err
	}
	return apply(d)
}

func (h *Handler) refEdit(raw json.RawMessage, apply func(ReferenceData) error) error {
	var d ReferenceData
	if err := decode(raw, &d); err != nil {
		return err
	}
	return apply(d)
}

// stagingEdit rejects staging mutations when no candidate is under
// review, instead of letting the machine panic on a client mistake.
func (h *Handler) stagingEdit(sess *session.Session, apply func() error) error {
	if sess.Recon.Staging() == nil {
		return schema.Validation("no parsed schema under review")
	}
	return apply()
}

func (h *Handler) entry(typeID string) (catalog.Entry, error) {
	entry, ok := h.catalog.Lookup(typeID)
	if !ok {
		return catalog.Entry{}, schema.Validation(fmt.Sprintf("unknown type %q", typeID))
	}
	return entry, nil
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return schema.Validation("invalid message data")
	}
	return nil
}

// ── network-bound flows ─────────────────────────────────────────────────

// parseScript dispatches a parse-only request and feeds the result into
// the reconciliation machine. A failed parse leaves any prior staging in
// place; a successful one overwrites it (last-writer-wins).
func (h *Handler) parseScript(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	if err := sess.Recon.Begin(sess.Script.Script); err != nil {
		h.sendErr(ctx, conn, msg.ID, err)
		return
	}

	sess.Busy = true
	h.sendState(ctx, conn, msg.ID, sess)

	_, req := compile.ParseOnly(sess.Script.Script, sess.Provider)
	res, err := h.client.ParseScript(ctx, req)
	sess.Busy = false

	if err != nil {
		sess.Recon.HandleTransportError(err)
		h.bus.Publish(ctx, event.NewScriptParseFailed(sess.ID, sess.Provider, err.Error()))
		h.sendState(ctx, conn, msg.ID, sess)
		return
	}

	sess.Recon.HandleResult(res.ParsedSchema, res.ParseError)
	if sess.Recon.State() == reconcile.Failed {
		h.bus.Publish(ctx, event.NewScriptParseFailed(sess.ID, sess.Provider, sess.Recon.LastError()))
	} else {
		h.bus.Publish(ctx, event.NewScriptParsed(sess.ID, sess.Provider, len(res.ParsedSchema)))
	}
	h.sendState(ctx, conn, msg.ID, sess)
}

// confirm promotes the reviewed candidate into a generation request.
// Staging clears as soon as a well-formed request is dispatched; a later
// generation failure does not bring it back.
func (h *Handler) confirm(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	st, err := sess.Recon.Confirm()
	if err != nil {
		h.sendErr(ctx, conn, msg.ID, err)
		return
	}
	h.bus.Publish(ctx, event.NewSchemaConfirmed(sess.ID, sess.Provider, len(st.Fields)))

	op, req := compile.Single(st.Fields, st.Total, st.Correct, st.Wrong, st.Rules, sess.Provider)
	h.runSingle(ctx, conn, sess, msg.ID, op, req, len(st.Fields))
}

// generate compiles the current mode's model and submits it.
func (h *Handler) generate(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	switch sess.Mode {
	case session.ModeSingle:
		named := schema.NamedFields(sess.Single.Fields)
		if len(named) == 0 {
			h.sendError(ctx, conn, msg.ID, "validation", "add at least one named field")
			return
		}
		op, req := compile.Single(sess.Single.Fields, sess.Single.Total, sess.Single.Correct, sess.Single.Wrong, sess.Single.Rules, sess.Provider)
		h.runSingle(ctx, conn, sess, msg.ID, op, req, len(named))

	case session.ModeText:
		if sess.Text == "" {
			h.sendError(ctx, conn, msg.ID, "validation", "describe the dataset first")
			return
		}
		op, req := compile.Text(sess.Text, sess.Provider)
		h.bus.Publish(ctx, event.NewGenerationRequested(sess.ID, string(sess.Mode), sess.Provider, string(op), 0, 0))
		start := time.Now()
		sess.Busy = true
		h.sendState(ctx, conn, msg.ID, sess)
		res, err := h.client.GenerateFromText(ctx, req)
		sess.Busy = false
		if err != nil {
			h.generationFailed(ctx, conn, sess, msg.ID, op, err)
			return
		}
		h.bus.Publish(ctx, event.NewGenerationCompleted(sess.ID, string(sess.Mode), sess.Provider, string(op), res.TotalRecords, time.Since(start)))
		h.send(ctx, conn, ServerMessage{Type: "database", RequestID: msg.ID, Data: res})
		h.sendState(ctx, conn, msg.ID, sess)

	case session.ModeScript:
		if sess.Script.Script == "" {
			h.sendError(ctx, conn, msg.ID, "validation", "paste a script first")
			return
		}
		op, req := compile.Script(sess.Script.Script, sess.Script.Total, sess.Script.Correct, sess.Script.Wrong, sess.Script.Rules, sess.Provider)
		h.bus.Publish(ctx, event.NewGenerationRequested(sess.ID, string(sess.Mode), sess.Provider, string(op), 0, 0))
		start := time.Now()
		sess.Busy = true
		h.sendState(ctx, conn, msg.ID, sess)
		res, err := h.client.GenerateFromScript(ctx, req)
		sess.Busy = false
		if err != nil {
			h.generationFailed(ctx, conn, sess, msg.ID, op, err)
			return
		}
		h.bus.Publish(ctx, event.NewGenerationCompleted(sess.ID, string(sess.Mode), sess.Provider, string(op), res.Count, time.Since(start)))
		h.send(ctx, conn, ServerMessage{Type: "script_result", RequestID: msg.ID, Data: ScriptResultData{
			Count:        res.Count,
			Data:         res.Data,
			ParsedSchema: res.ParsedSchema,
			ParseError:   res.ParseError,
		}})
		h.sendState(ctx, conn, msg.ID, sess)

	case session.ModeDatabase:
		op, req := compile.Database(sess.DB, sess.Provider)
		if err := validateDatabaseRequest(req); err != nil {
			h.sendErr(ctx, conn, msg.ID, err)
			return
		}
		h.bus.Publish(ctx, event.NewGenerationRequested(sess.ID, string(sess.Mode), sess.Provider, string(op), 0, len(req.DBSchema.Tables)))
		start := time.Now()
		sess.Busy = true
		h.sendState(ctx, conn, msg.ID, sess)
		res, err := h.client.GenerateDatabase(ctx, req)
		sess.Busy = false
		if err != nil {
			h.generationFailed(ctx, conn, sess, msg.ID, op, err)
			return
		}
		h.bus.Publish(ctx, event.NewGenerationCompleted(sess.ID, string(sess.Mode), sess.Provider, string(op), res.TotalRecords, time.Since(start)))
		h.send(ctx, conn, ServerMessage{Type: "database", RequestID: msg.ID, Data: res})
		h.sendState(ctx, conn, msg.ID, sess)

	default:
		h.sendError(ctx, conn, msg.ID, "internal", fmt.Sprintf("unhandled mode %q", sess.Mode))
	}
}

func (h *Handler) runSingle(ctx context.Context, conn *websocket.Conn, sess *session.Session, requestID string, op compile.Operation, req compile.SingleRequest, fields int) {
	h.bus.Publish(ctx, event.NewGenerationRequested(sess.ID, string(sess.Mode), sess.Provider, string(op), fields, 0))
	start := time.Now()
	sess.Busy = true
	h.sendState(ctx, conn, requestID, sess)

	res, err := h.client.GenerateSingle(ctx, req)
	sess.Busy = false
	if err != nil {
		h.generationFailed(ctx, conn, sess, requestID, op, err)
		return
	}

	h.bus.Publish(ctx, event.NewGenerationCompleted(sess.ID, string(sess.Mode), sess.Provider, string(op), res.Count, time.Since(start)))
	h.send(ctx, conn, ServerMessage{Type: "records", RequestID: requestID, Data: RecordsData{Count: res.Count, Data: res.Data}})
	h.sendState(ctx, conn, requestID, sess)
}

func (h *Handler) generationFailed(ctx context.Context, conn *websocket.Conn, sess *session.Session, requestID string, op compile.Operation, err error) {
	h.bus.Publish(ctx, event.NewGenerationFailed(sess.ID, string(sess.Mode), sess.Provider, string(op), err.Error()))
	h.sendErr(ctx, conn, requestID, err)
	h.sendState(ctx, conn, requestID, sess)
}

// validateDatabaseRequest is the caller-side rejection the compiler
// deliberately does not do: empty table list or a table without fields
// never reaches the network.
func validateDatabaseRequest(req compile.DatabaseRequest) error {
	if len(req.DBSchema.Tables) == 0 {
		return schema.Validation("add at least one named table")
	}
	for _, t := range req.DBSchema.Tables {
		if len(t.Fields) == 0 {
			return schema.Validation(fmt.Sprintf("table %q has no named fields", t.TableName))
		}
	}
	return nil
}

// ── send helpers ────────────────────────────────────────────────────────

func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn, requestID string, sess *session.Session) {
	h.send(ctx, conn, ServerMessage{
		Type:      "state",
		RequestID: requestID,
		Data: StateData{
			Mode:     sess.Mode,
			Provider: sess.Provider,
			Single:   sess.Single,
			Text:     sess.Text,
			Script:   sess.Script,
			Database: sess.DB,
			Recon: StagingView{
				State:     sess.Recon.State(),
				Staging:   sess.Recon.Staging(),
				LastError: sess.Recon.LastError(),
			},
			Busy: sess.Busy,
		},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("studio: write error: %v", err)
	}
}

// sendErr maps an error onto the taxonomy before sending it.
func (h *Handler) sendErr(ctx context.Context, conn *websocket.Conn, requestID string, err error) {
	var (
		vErr schema.ValidationError
		rErr *backend.RemoteError
		tErr *backend.TransportError
	)
	switch {
	case errors.As(err, &vErr):
		h.sendError(ctx, conn, requestID, "validation", vErr.Reason)
	case errors.As(err, &rErr):
		h.sendError(ctx, conn, requestID, "remote", rErr.Error())
	case errors.As(err, &tErr):
		h.sendError(ctx, conn, requestID, "transport", tErr.Error())
	default:
		h.sendError(ctx, conn, requestID, "internal", err.Error())
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
