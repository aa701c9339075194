package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistermingming/ProcurementManagement/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	conf := &Config{
		DbPath:          filepath.Join(t.TempDir(), "data.db"),
		HttpPort:        0,
		MaxClients:      16,
		MaxWorkNum:      4,
		MaxTaskQueueLen: 64,
	}
	s, err := NewServer(conf)
	require.NoError(t, err)
	t.Cleanup(s.Quit)
	return s
}

func doRequest(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, *Response) {
	t.Helper()
	var req *http.Request
	if len(body) > 0 {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.httpServer.ServeHTTP(w, req)

	resp := new(Response)
	if strings.HasPrefix(w.Header().Get("content-type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp))
	}
	return w, resp
}

func TestHandleReplaceAndRows(t *testing.T) {
	s := newTestServer(t)

	w, resp := doRequest(t, s, http.MethodPost, "/api/rows/replace?table=base",
		`[{"name":"Steel","price":120.5},{"name":"Concrete","price":80}]`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	w, _ = doRequest(t, s, http.MethodGet, "/api/rows?table=base", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []engine.Row `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "Concrete", body.Data[0]["name"])
	assert.Equal(t, "Steel", body.Data[1]["name"])
}

func TestHandleReplaceErrors(t *testing.T) {
	s := newTestServer(t)

	w, resp := doRequest(t, s, http.MethodPost, "/api/rows/replace?table=base", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_rows", resp.Message)

	w, resp = doRequest(t, s, http.MethodPost, "/api/rows/replace?table=base",
		`[{"name":"","price":10}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_name", resp.Message)

	w, resp = doRequest(t, s, http.MethodPost, "/api/rows/replace?table=frequency",
		`[{"value":"50hz"}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "readonly", resp.Message)

	w, resp = doRequest(t, s, http.MethodPost, "/api/rows/replace?table=nosuchtable", `[]`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "table_not_found", resp.Message)

	w, _ = doRequest(t, s, http.MethodGet, "/api/rows/replace?table=base", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleRowsUnknownTable(t *testing.T) {
	s := newTestServer(t)

	w, resp := doRequest(t, s, http.MethodGet, "/api/rows?table=nosuchtable", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "table_not_found", resp.Message)
}

func TestHandleDeleteRow(t *testing.T) {
	s := newTestServer(t)

	_, _ = doRequest(t, s, http.MethodPost, "/api/rows/replace?table=color",
		`[{"name":"Red","price":1}]`)
	w, _ := doRequest(t, s, http.MethodGet, "/api/rows?table=color", "")
	var body struct {
		Data []engine.Row `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	id := int64(body.Data[0]["id"].(float64))

	w, resp := doRequest(t, s, http.MethodPost,
		"/api/rows/delete?table=color&id="+strconv.FormatInt(id, 10), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	w, resp = doRequest(t, s, http.MethodPost,
		"/api/rows/delete?table=color&id="+strconv.FormatInt(id, 10), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp.Message)

	w, resp = doRequest(t, s, http.MethodPost, "/api/rows/delete?table=color&id=abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp.Message)
}

func TestHandleOptions(t *testing.T) {
	s := newTestServer(t)

	w, _ := doRequest(t, s, http.MethodGet, "/api/options", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string][]engine.Row `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, len(s.store.Registry().All()))
	assert.Len(t, body.Data["frequency"], 2)
	assert.Empty(t, body.Data["base"])
}

func TestHandleTableInfo(t *testing.T) {
	s := newTestServer(t)

	w, _ := doRequest(t, s, http.MethodGet, "/api/tableinfo?table=frequency", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Name     string `json:"name"`
			ReadOnly bool   `json:"readonly"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "frequency", body.Data.Name)
	assert.True(t, body.Data.ReadOnly)

	w, resp := doRequest(t, s, http.MethodGet, "/api/tableinfo?table=nosuchtable", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "table_not_found", resp.Message)
}

func TestHandleQuote(t *testing.T) {
	s := newTestServer(t)

	w, resp := doRequest(t, s, http.MethodPost, "/api/quote",
		`{"customer":"ACME","items":[{"table":"base","label":"Steel","price":120.5}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, resp.Code)

	w, _ = doRequest(t, s, http.MethodGet, "/api/quotes", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []engine.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ACME", body.Data[0].Customer)
	require.Len(t, body.Data[0].Items, 1)

	w, resp = doRequest(t, s, http.MethodPost, "/api/quote", `{"customer":"","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_customer", resp.Message)
}

func TestHandleOptionsAfterQuit(t *testing.T) {
	s := newTestServer(t)
	s.Quit()

	// the handler must reply instead of hanging on abandoned tasks
	w := httptest.NewRecorder()
	s.handleOptions(w, httptest.NewRequest(http.MethodGet, "/api/options", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRootRedirect(t *testing.T) {
	s := newTestServer(t)

	w, _ := doRequest(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/quote.html", w.Header().Get("Location"))
}
