package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/datasmith/datasmith/internal/backend"
	"github.com/datasmith/datasmith/internal/catalog"
	"github.com/datasmith/datasmith/internal/compile"
	"github.com/datasmith/datasmith/internal/event"
	"github.com/datasmith/datasmith/internal/eventbus"
	"github.com/datasmith/datasmith/internal/schema"
	"github.com/datasmith/datasmith/internal/session"
)

// GenerateHandler serves the one-shot generation endpoints. Unlike the
// studio these are stateless: the whole model arrives in the request
// body, is compiled, and goes straight to the backend.
type GenerateHandler struct {
	client  *backend.Client
	catalog *catalog.Catalog
	bus     *eventbus.Bus
}

// NewGenerateHandler creates the handler with its dependencies.
func NewGenerateHandler(client *backend.Client, cat *catalog.Catalog, bus *eventbus.Bus) *GenerateHandler {
	return &GenerateHandler{client: client, catalog: cat, bus: bus}
}

// SingleRequest is the body of POST /v1/generate/single.
type SingleRequest struct {
	Fields   []schema.Field `json:"fields"`
	Total    int            `json:"num_records"`
	Correct  int            `json:"correct_num_records"`
	Wrong    int            `json:"wrong_num_records"`
	Rules    string         `json:"rules"`
	Provider string         `json:"provider"`
}

// GenerateSingle compiles and runs a single-table request.
func (h *GenerateHandler) GenerateSingle(w http.ResponseWriter, r *http.Request) {
	var body SingleRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	named := schema.NamedFields(body.Fields)
	if len(named) == 0 {
		errorToHTTP(w, schema.Validation("at least one named field is required"))
		return
	}

	op, req := compile.Single(body.Fields, defaultTotal(body.Total), body.Correct, body.Wrong, body.Rules, provider(body.Provider))
	start := time.Now()
	h.bus.Publish(r.Context(), event.NewGenerationRequested("rest", string(session.ModeSingle), req.ModelProvider, string(op), len(named), 0))

	res, err := h.client.GenerateSingle(r.Context(), req)
	if err != nil {
		h.bus.Publish(r.Context(), event.NewGenerationFailed("rest", string(session.ModeSingle), req.ModelProvider, string(op), err.Error()))
		errorToHTTP(w, err)
		return
	}
	h.bus.Publish(r.Context(), event.NewGenerationCompleted("rest", string(session.ModeSingle), req.ModelProvider, string(op), res.Count, time.Since(start)))
	writeJSON(w, http.StatusOK, res)
}

// TextRequest is the body of POST /v1/generate/text.
type TextRequest struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// GenerateText runs a natural-language request.
func (h *GenerateHandler) GenerateText(w http.ResponseWriter, r *http.Request) {
	var body TextRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		errorToHTTP(w, schema.Validation("text is required"))
		return
	}

	op, req := compile.Text(body.Text, provider(body.Provider))
	start := time.Now()
	h.bus.Publish(r.Context(), event.NewGenerationRequested("rest", string(session.ModeText), req.ModelProvider, string(op), 0, 0))

	res, err := h.client.GenerateFromText(r.Context(), req)
	if err != nil {
		h.bus.Publish(r.Context(), event.NewGenerationFailed("rest", string(session.ModeText), req.ModelProvider, string(op), err.Error()))
		errorToHTTP(w, err)
		return
	}
	h.bus.Publish(r.Context(), event.NewGenerationCompleted("rest", string(session.ModeText), req.ModelProvider, string(op), res.TotalRecords, time.Since(start)))
	writeJSON(w, http.StatusOK, res)
}

// ScriptRequest is the body of POST /v1/generate/script and
// POST /v1/parse.
type ScriptRequest struct {
	Script   string `json:"script"`
	Total    int    `json:"num_records"`
	Correct  int    `json:"correct_num_records"`
	Wrong    int    `json:"wrong_num_records"`
	Rules    string `json:"rules"`
	Provider string `json:"provider"`
}

// GenerateScript runs the direct script path: parse and generate in one
// backend call, no review step.
func (h *GenerateHandler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	var body ScriptRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if body.Script == "" {
		errorToHTTP(w, schema.Validation("script is required"))
		return
	}

	op, req := compile.Script(body.Script, defaultTotal(body.Total), body.Correct, body.Wrong, body.Rules, provider(body.Provider))
	start := time.Now()
	h.bus.Publish(r.Context(), event.NewGenerationRequested("rest", string(session.ModeScript), req.ModelProvider, string(op), 0, 0))

	res, err := h.client.GenerateFromScript(r.Context(), req)
	if err != nil {
		h.bus.Publish(r.Context(), event.NewGenerationFailed("rest", string(session.ModeScript), req.ModelProvider, string(op), err.Error()))
		errorToHTTP(w, err)
		return
	}
	h.bus.Publish(r.Context(), event.NewGenerationCompleted("rest", string(session.ModeScript), req.ModelProvider, string(op), res.Count, time.Since(start)))
	writeJSON(w, http.StatusOK, res)
}

// ParseResponse is the body returned by POST /v1/parse: the backend's
// raw records plus their normalized canonical form.
type ParseResponse struct {
	ParsedSchema []map[string]any `json:"parsed_schema"`
	Fields       []schema.Field   `json:"fields"`
	ParseError   string           `json:"parse_error,omitempty"`
}

// ParseScript runs a parse-only request and normalizes the result.
func (h *GenerateHandler) ParseScript(w http.ResponseWriter, r *http.Request) {
	var body ScriptRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if body.Script == "" {
		errorToHTTP(w, schema.Validation("script is required"))
		return
	}

	_, req := compile.ParseOnly(body.Script, provider(body.Provider))
	res, err := h.client.ParseScript(r.Context(), req)
	if err != nil {
		h.bus.Publish(r.Context(), event.NewScriptParseFailed("rest", req.ModelProvider, err.Error()))
		errorToHTTP(w, err)
		return
	}

	if len(res.ParsedSchema) == 0 {
		h.bus.Publish(r.Context(), event.NewScriptParseFailed("rest", req.ModelProvider, res.ParseError))
	} else {
		h.bus.Publish(r.Context(), event.NewScriptParsed("rest", req.ModelProvider, len(res.ParsedSchema)))
	}
	writeJSON(w, http.StatusOK, ParseResponse{
		ParsedSchema: res.ParsedSchema,
		Fields:       schema.Normalize(res.ParsedSchema),
		ParseError:   res.ParseError,
	})
}

// DatabaseRequest is the body of POST /v1/generate/database.
type DatabaseRequest struct {
	Database schema.Database `json:"database"`
	Provider string          `json:"provider"`
}

// GenerateDatabase compiles and runs a multi-table request.
func (h *GenerateHandler) GenerateDatabase(w http.ResponseWriter, r *http.Request) {
	var body DatabaseRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	op, req := compile.Database(body.Database, provider(body.Provider))
	if len(req.DBSchema.Tables) == 0 {
		errorToHTTP(w, schema.Validation("at least one named table is required"))
		return
	}
	for _, t := range req.DBSchema.Tables {
		if len(t.Fields) == 0 {
			errorToHTTP(w, schema.Validation("table "+t.TableName+" has no named fields"))
			return
		}
	}

	start := time.Now()
	h.bus.Publish(r.Context(), event.NewGenerationRequested("rest", string(session.ModeDatabase), req.DBSchema.ModelProvider, string(op), 0, len(req.DBSchema.Tables)))

	res, err := h.client.GenerateDatabase(r.Context(), req)
	if err != nil {
		h.bus.Publish(r.Context(), event.NewGenerationFailed("rest", string(session.ModeDatabase), req.DBSchema.ModelProvider, string(op), err.Error()))
		errorToHTTP(w, err)
		return
	}
	h.bus.Publish(r.Context(), event.NewGenerationCompleted("rest", string(session.ModeDatabase), req.DBSchema.ModelProvider, string(op), res.TotalRecords, time.Since(start)))
	writeJSON(w, http.StatusOK, res)
}

// ListCatalog returns all rich types.
func (h *GenerateHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"types": h.catalog.Entries()})
}

// GetCatalogEntry returns one rich type by id.
func (h *GenerateHandler) GetCatalogEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := h.catalog.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown type "+id)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// BackendHealth probes the generation backend.
func (h *GenerateHandler) BackendHealth(w http.ResponseWriter, r *http.Request) {
	res, err := h.client.CheckHealth(r.Context())
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func provider(p string) string {
	if p == "" {
		return session.DefaultProvider
	}
	return p
}

func defaultTotal(n int) int {
	if n < 1 {
		return schema.DefaultTotal
	}
	return n
}
