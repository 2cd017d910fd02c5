package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// noCallBackend fails the test if any request reaches it.
func noCallBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call: %s %s", r.Method, r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func saveFlags(t *testing.T) {
	t.Helper()
	oldBackend, oldProvider := backendURL, provider
	oldSchema, oldText, oldFormat := schemaFile, textPrompt, format
	t.Cleanup(func() {
		backendURL, provider = oldBackend, oldProvider
		schemaFile, textPrompt, format = oldSchema, oldText, oldFormat
	})
}

func TestRunGenerateDB_RejectsFieldlessTable(t *testing.T) {
	saveFlags(t)
	backendURL = noCallBackend(t).URL
	format = "json"

	// The "users" table survives compilation with an empty field list
	// because its only field has a blank name.
	schemaFile = writeTempFile(t, "db.json",
		`{"db_name":"shop","tables":[{"name":"users","fields":[{"name":"","type":"string"}]}]}`)

	err := runGenerateDB(generateDBCmd, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), `table "users"`)
	require.Contains(t, err.Error(), "has no named fields")
}

func TestRunGenerateDB_RejectsEmptyTableList(t *testing.T) {
	saveFlags(t)
	backendURL = noCallBackend(t).URL
	format = "json"
	schemaFile = writeTempFile(t, "db.json", `{"db_name":"shop","tables":[{"name":"","fields":[{"name":"id"}]}]}`)

	err := runGenerateDB(generateDBCmd, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no named tables")
}

func TestRunGenerateText_RejectsBlankText(t *testing.T) {
	saveFlags(t)
	backendURL = noCallBackend(t).URL
	format = "json"
	textPrompt = "   "

	err := runGenerateText(generateTextCmd, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be blank")
}

func TestApplyEnv_OverridesFlagDefaults(t *testing.T) {
	saveFlags(t)
	t.Setenv("BACKEND_URL", "http://gen.internal:9000")
	t.Setenv("DEFAULT_PROVIDER", "groq")

	applyEnv()

	require.Equal(t, "http://gen.internal:9000", backendURL)
	require.Equal(t, "groq", provider)
}

func TestApplyEnv_LeavesDefaultsWhenUnset(t *testing.T) {
	saveFlags(t)
	t.Setenv("BACKEND_URL", "")
	t.Setenv("DEFAULT_PROVIDER", "")
	backendURL = "http://localhost:8000"
	provider = "ollama"

	applyEnv()

	require.Equal(t, "http://localhost:8000", backendURL)
	require.Equal(t, "ollama", provider)
}
