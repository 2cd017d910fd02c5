// Package backend is the HTTP client for the generation service. The
// service is opaque: this package only knows the four operation payloads,
// the response shapes, and the error contract (non-2xx with a detail
// message, or a transport failure).
package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/datasmith/datasmith/internal/compile"
)

// Record is one generated data row. Keys are field names plus the
// backend's is_valid marker.
type Record = map[string]any

// GenerateResult is the response of /generate.
type GenerateResult struct {
	Count int      `json:"count"`
	Data  []Record `json:"data"`
}

// ParseResult is the parse-only response of /generate-from-selenium.
// ParsedSchema may be empty with ParseError explaining why.
type ParseResult struct {
	ParsedSchema []map[string]any `json:"parsed_schema"`
	ParseError   string           `json:"parse_error,omitempty"`
}

// ScriptResult is the direct-generation response of
// /generate-from-selenium: generated data plus the schema the backend
// parsed on the way.
type ScriptResult struct {
	Count        int              `json:"count"`
	Data         []Record         `json:"data"`
	ParsedSchema []map[string]any `json:"parsed_schema"`
	ParseError   string           `json:"parse_error,omitempty"`
}

// DatabaseResult is the response of /generate-db and /generate-from-text.
type DatabaseResult struct {
	Tables          map[string][]Record `json:"tables"`
	DBName          string              `json:"db_name"`
	TotalRecords    int                 `json:"total_records"`
	TotalTables     int                 `json:"total_tables"`
	GenerationOrder []string            `json:"generation_order"`
	Counts          map[string]int      `json:"counts"`
}

// Health is the upstream /health probe response.
type Health struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

var opPaths = map[compile.Operation]string{
	compile.OpGenerateSingle:   "/generate",
	compile.OpGenerateFromText: "/generate-from-text",
	compile.OpGenerateScript:   "/generate-from-selenium",
	compile.OpParseScript:      "/generate-from-selenium",
	compile.OpGenerateDatabase: "/generate-db",
}

const (
	defaultTimeout = 5 * time.Minute
	parseCacheSize = 128
	parseCacheTTL  = 10 * time.Minute
)

// Client talks to one generation backend. Parse-only results are memoized
// per script+provider for a short window, since re-parsing an unchanged
// script is the single most repeated call in a review cycle.
type Client struct {
	baseURL    string
	httpClient *http.Client
	parseCache *expirable.LRU[string, ParseResult]
}

// New creates a client for the backend at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		parseCache: expirable.NewLRU[string, ParseResult](parseCacheSize, nil, parseCacheTTL),
	}
}

// GenerateSingle runs a compiled single-table request.
func (c *Client) GenerateSingle(ctx context.Context, req compile.SingleRequest) (*GenerateResult, error) {
	var out GenerateResult
	if err := c.post(ctx, compile.OpGenerateSingle, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateFromText runs a compiled natural-language request.
func (c *Client) GenerateFromText(ctx context.Context, req compile.TextRequest) (*DatabaseResult, error) {
	var out DatabaseResult
	if err := c.post(ctx, compile.OpGenerateFromText, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateFromScript runs the direct script path.
func (c *Client) GenerateFromScript(ctx context.Context, req compile.ScriptRequest) (*ScriptResult, error) {
	var out ScriptResult
	if err := c.post(ctx, compile.OpGenerateScript, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseScript runs the parse-only script path, consulting the cache
// first. A cached result is returned as-is, including its parse_error.
func (c *Client) ParseScript(ctx context.Context, req compile.ScriptRequest) (*ParseResult, error) {
	key := parseKey(req.SeleniumScript, req.ModelProvider)
	if cached, ok := c.parseCache.Get(key); ok {
		return &cached, nil
	}
	var out ParseResult
	if err := c.post(ctx, compile.OpParseScript, req, &out); err != nil {
		return nil, err
	}
	c.parseCache.Add(key, out)
	return &out, nil
}

// GenerateDatabase runs a compiled multi-table request.
func (c *Client) GenerateDatabase(ctx context.Context, req compile.DatabaseRequest) (*DatabaseResult, error) {
	var out DatabaseResult
	if err := c.post(ctx, compile.OpGenerateDatabase, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckHealth probes the backend's /health endpoint.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "health check", Err: err}
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, &TransportError{Op: "health check", Err: err}
	}
	return &h, nil
}

func (c *Client) post(ctx context.Context, op compile.Operation, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+opPaths[op], bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: string(op), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: string(op), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Status: resp.StatusCode, Detail: errorDetail(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: string(op), Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// errorDetail pulls the backend's detail (or parse_error) message out of
// an error body, falling back to the raw body text.
func errorDetail(raw []byte) string {
	var e struct {
		Detail     string `json:"detail"`
		ParseError string `json:"parse_error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Detail != "" {
			return e.Detail
		}
		if e.ParseError != "" {
			return e.ParseError
		}
	}
	return string(raw)
}

func parseKey(script, provider string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + script))
	return hex.EncodeToString(sum[:])
}
