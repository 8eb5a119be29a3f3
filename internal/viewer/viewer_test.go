package viewer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "line_all_7d.html"), []byte("<html>line</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bar_all_7d.html"), []byte("<html>bar</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a chart"), 0o644))
	return New(dir), dir
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t)

	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestIndex_ListsHTMLOnly(t *testing.T) {
	s, _ := testServer(t)

	rec := get(t, s, "/artifacts")
	require.Equal(t, http.StatusOK, rec.Code)

	var artifacts []ArtifactInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifacts))

	require.Len(t, artifacts, 2, "txt file excluded")
	assert.Equal(t, "bar_all_7d.html", artifacts[0].Name)
	assert.Equal(t, "line_all_7d.html", artifacts[1].Name)
	assert.Equal(t, "/artifacts/bar_all_7d.html", artifacts[0].URL)
	assert.Greater(t, artifacts[0].Size, int64(0))
}

func TestIndex_MissingDirIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-rendered"))

	rec := get(t, s, "/artifacts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestArtifact_ServesFile(t *testing.T) {
	s, _ := testServer(t)

	rec := get(t, s, "/artifacts/line_all_7d.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "line")
}

func TestArtifact_UnknownName(t *testing.T) {
	s, _ := testServer(t)

	rec := get(t, s, "/artifacts/absent.html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArtifact_NonHTMLRejected(t *testing.T) {
	s, _ := testServer(t)

	// The txt file exists in the directory but is not an artifact
	rec := get(t, s, "/artifacts/notes.txt")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArtifact_TraversalRejected(t *testing.T) {
	s, dir := testServer(t)

	// A secret outside the artifact dir must stay unreachable
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.html"), []byte("secret"), 0o644))

	rec := get(t, s, "/artifacts/..%2Fsecret.html")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
