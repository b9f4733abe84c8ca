package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listRow struct {
	ID             string
	Name           string
	TotalItems     int
	CompletedItems int
	Progress       float64
}

func TestRenderer_Index(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.Render(&buf, "index.html", map[string]any{
		"TodoLists": []listRow{{ID: "abc", Name: "<Groceries>", TotalItems: 3, CompletedItems: 1, Progress: 33.33}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `href="/todolists/abc/view"`)
	assert.Contains(t, out, "&lt;Groceries&gt;")
	assert.Contains(t, out, "1/3 done")
	assert.Contains(t, out, "width: 33.33%")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.Error(t, r.Render(&buf, "missing.html", nil))
	assert.Empty(t, buf.String())
}

func TestStatic(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/style.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".progress")
}
