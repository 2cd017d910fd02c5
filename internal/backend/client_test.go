package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasmith/datasmith/internal/compile"
)

func TestClient_GenerateSingle(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(GenerateResult{
			Count: 2,
			Data:  []Record{{"email": "a@b.com", "is_valid": true}, {"email": "bad", "is_valid": false}},
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, req := compile.Single(nil, 5, 5, 0, "", "ollama")
	req.SchemaFields = []compile.PayloadField{{Name: "email", Type: "email"}}

	res, err := client.GenerateSingle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/generate", gotPath)
	assert.Equal(t, "ollama", gotBody["model_provider"])
	assert.Equal(t, 2, res.Count)
	require.Len(t, res.Data, 2)
	assert.Equal(t, false, res.Data[1]["is_valid"])
}

func TestClient_OperationPaths(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	client := New(srv.URL)
	ctx := context.Background()

	_, err := client.GenerateFromText(ctx, compile.TextRequest{UserText: "x", ModelProvider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "/generate-from-text", gotPath)

	_, err = client.GenerateFromScript(ctx, compile.ScriptRequest{SeleniumScript: "s", ModelProvider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "/generate-from-selenium", gotPath)

	_, err = client.GenerateDatabase(ctx, compile.DatabaseRequest{})
	require.NoError(t, err)
	assert.Equal(t, "/generate-db", gotPath)
}

func TestClient_ParseScriptCaching(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(ParseResult{
			ParsedSchema: []map[string]any{{"name": "email", "type": "email"}},
		})
	}))
	defer srv.Close()
	client := New(srv.URL)
	ctx := context.Background()

	_, req := compile.ParseOnly("driver.get(...)", "ollama")
	res, err := client.ParseScript(ctx, req)
	require.NoError(t, err)
	require.Len(t, res.ParsedSchema, 1)

	// Same script + provider hits the cache.
	_, err = client.ParseScript(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// Different provider misses.
	_, req2 := compile.ParseOnly("driver.get(...)", "groq")
	_, err = client.ParseScript(ctx, req2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	// Different script misses.
	_, req3 := compile.ParseOnly("driver.quit()", "ollama")
	_, err = client.ParseScript(ctx, req3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RemoteErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail field", 400, `{"detail": "schema_fields is required"}`, "schema_fields is required"},
		{"parse_error field", 422, `{"parse_error": "no form found"}`, "no form found"},
		{"raw body fallback", 500, `upstream exploded`, "upstream exploded"},
		{"empty body", 503, ``, "backend returned status 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := New(srv.URL)
			_, err := client.GenerateSingle(context.Background(), compile.SingleRequest{ModelProvider: "ollama"})
			require.Error(t, err)

			var rErr *RemoteError
			require.True(t, errors.As(err, &rErr))
			assert.Equal(t, tt.status, rErr.Status)
			assert.Equal(t, tt.want, rErr.Error())
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := New(srv.URL)
	_, err := client.GenerateSingle(context.Background(), compile.SingleRequest{ModelProvider: "ollama"})
	require.Error(t, err)

	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, string(compile.OpGenerateSingle), tErr.Op)
}

func TestClient_MalformedResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.GenerateSingle(context.Background(), compile.SingleRequest{ModelProvider: "ollama"})

	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
}

func TestClient_CheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(Health{Status: "healthy"})
	}))
	defer srv.Close()

	h, err := New(srv.URL).CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}
