package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, server *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--server", server.URL, "--token", "tok"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestQueryPrintsAnswerAndSources(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/query", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is aethena", body["question"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"A document assistant.","sources":[{"file":"intro.pdf","page":2},{"file":"faq.csv","page":null}]}`))
	}))
	defer ts.Close()

	out, err := run(t, ts, "query", "what", "is", "aethena")
	require.NoError(t, err)
	assert.Contains(t, out, "A document assistant.")
	assert.Contains(t, out, "intro.pdf (page 2)")
	assert.Contains(t, out, "- faq.csv\n")
}

func TestAPIErrorsAreDecoded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"history h1 not found","code":"not_found"}`))
	}))
	defer ts.Close()

	_, err := run(t, ts, "history", "delete", "h1")
	require.Error(t, err)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)
}

func TestUploadSendsMultipartFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "team.csv")
	require.NoError(t, os.WriteFile(path, []byte("name\nada\n"), 0o600))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/documents", r.URL.Path)
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "team.csv", fh.Filename)
		assert.Equal(t, "name\nada\n", string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"fileId":"f-1","fileName":"team.csv","path":"t/1-team.csv"}`))
	}))
	defer ts.Close()

	out, err := run(t, ts, "upload", path)
	require.NoError(t, err)
	assert.Contains(t, out, "File ID: f-1")
}

func TestNewAPIClientRequiresToken(t *testing.T) {
	_, err := newAPIClient("http://localhost", "")
	assert.Error(t, err)
}

func TestFilenameFrom(t *testing.T) {
	assert.Equal(t, "chat-history-2024-05-01.csv", filenameFrom(`attachment; filename="chat-history-2024-05-01.csv"`))
	assert.Equal(t, "", filenameFrom(""))
}

func TestMintToken(t *testing.T) {
	now := time.Now()
	tok, err := mintToken("tenant-a", "s3cret", time.Hour, now)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "tenant-a", claims["sub"])
	assert.EqualValues(t, now.Add(time.Hour).Unix(), claims["exp"])

	_, err = mintToken("", "s3cret", 0, now)
	assert.Error(t, err)
}
