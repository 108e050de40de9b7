package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lintang-b-s/replanx/pkg/http/usecases"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sessionBody struct {
	Data struct {
		ID      string `json:"id"`
		Kind    string `json:"kind"`
		Status  string `json:"status"`
		Pending int    `json:"pending_edge_changes"`
		Start   *struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"start"`
	} `json:"data"`
}

type planBody struct {
	Data struct {
		Found bool     `json:"found"`
		Cost  *float64 `json:"cost"`
		Cells []struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"cells"`
		Status string `json:"status"`
	} `json:"data"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestHandler(t *testing.T, useRateLimit bool) http.Handler {
	t.Helper()
	ss, err := usecases.NewSessionService(zap.NewNop(), usecases.SessionServiceConfig{StrictHeuristic: true}, nil, nil, nil)
	require.NoError(t, err)
	return NewAPI(zap.NewNop()).Handler(useRateLimit, ss)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const roomRows = `{"rows": ["S.....", "......", ".....G"], "connectivity": "4"}`

func TestGridSessionOverHTTP(t *testing.T) {
	h := newTestHandler(t, false)

	rec := do(t, h, http.MethodPost, "/api/sessions/grid", roomRows)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[sessionBody](t, rec)
	id := created.Data.ID
	require.NotEmpty(t, id)
	assert.Equal(t, "grid", created.Data.Kind)
	assert.Equal(t, "INIT", created.Data.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/plan", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[planBody](t, rec)
	require.True(t, plan.Data.Found)
	require.NotNil(t, plan.Data.Cost)
	assert.Equal(t, 7.0, *plan.Data.Cost)
	assert.Len(t, plan.Data.Cells, 8)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/edges",
		`{"block_cells": [{"x": 3, "y": 0}, {"x": 3, "y": 1}, {"x": 3, "y": 2}]}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Positive(t, decode[sessionBody](t, rec).Data.Pending)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	plan = decode[planBody](t, rec)
	assert.False(t, plan.Data.Found)
	assert.Nil(t, plan.Data.Cost)
	assert.Equal(t, "NO_PATH", plan.Data.Status)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/replan",
		`{"changes": {"unblock_cells": [{"x": 3, "y": 1}]}, "move": {"cell": {"x": 1, "y": 1}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan = decode[planBody](t, rec)
	require.True(t, plan.Data.Found)
	assert.Equal(t, 5.0, *plan.Data.Cost)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/move", `{"advance": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[sessionBody](t, rec)
	require.NotNil(t, moved.Data.Start)
	assert.Equal(t, plan.Data.Cells[1].X, moved.Data.Start.X)
	assert.Equal(t, plan.Data.Cells[1].Y, moved.Data.Start.Y)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode[errorBody](t, rec).Error.Code)
}

func TestBlockedGridEdgeOverHTTP(t *testing.T) {
	h := newTestHandler(t, false)

	rec := do(t, h, http.MethodPost, "/api/sessions/grid", `{"rows": ["S.G"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[sessionBody](t, rec).Data.ID

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/replan",
		`{"changes": {"grid_edges": [{"from": {"x": 0, "y": 0}, "to": {"x": 1, "y": 0}, "blocked": true}]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[planBody](t, rec).Data.Found)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/replan",
		`{"changes": {"grid_edges": [{"from": {"x": 0, "y": 0}, "to": {"x": 1, "y": 0}, "cost": 2.5}]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[planBody](t, rec)
	require.True(t, plan.Data.Found)
	assert.Equal(t, 3.5, *plan.Data.Cost)
}

func TestRequestErrors(t *testing.T) {
	h := newTestHandler(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown connectivity", http.MethodPost, "/api/sessions/grid", `{"rows": ["S.G"], "connectivity": "6"}`, http.StatusBadRequest},
		{"no map", http.MethodPost, "/api/sessions/grid", `{"heuristic": "octile"}`, http.StatusBadRequest},
		{"unknown map", http.MethodPost, "/api/sessions/grid", `{"map_name": "nowhere"}`, http.StatusNotFound},
		{"unknown field", http.MethodPost, "/api/sessions/grid", `{"rows": ["S.G"], "walls": 3}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/sessions/grid", `{"rows": [`, http.StatusBadRequest},
		{"latitude out of range", http.MethodPost, "/api/sessions/road",
			`{"origin_lat": 91, "origin_lon": 110, "destination_lat": -7, "destination_lon": 110}`, http.StatusBadRequest},
		{"no road graph", http.MethodPost, "/api/sessions/road",
			`{"origin_lat": -7.7, "origin_lon": 110.3, "destination_lat": -7.8, "destination_lon": 110.4}`, http.StatusNotFound},
		{"unknown session", http.MethodPost, "/api/sessions/abc/plan", "", http.StatusNotFound},
		{"negative cost", http.MethodPost, "/api/sessions/abc/edges",
			`{"grid_edges": [{"from": {"x": 0, "y": 0}, "to": {"x": 1, "y": 0}, "cost": -1}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorBody](t, rec).Error.Message)
		})
	}
}

func TestMiddlewares(t *testing.T) {
	h := newTestHandler(t, false)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ".", rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/grid", strings.NewReader(roomRows))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "trace-1", rec.Header().Get("X-Request-ID"))
}

func TestRealIP(t *testing.T) {
	var got string
	h := RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.0.0.7", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "192.168.1.9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "192.168.1.9", got)
}

func TestRateLimit(t *testing.T) {
	viper.Set("RATE_LIMIT_RPS", 0.001)
	viper.Set("RATE_LIMIT_BURST", 1)
	t.Cleanup(func() {
		viper.Set("RATE_LIMIT_RPS", 100)
		viper.Set("RATE_LIMIT_BURST", 200)
	})

	h := newTestHandler(t, true)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/sessions/abc", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/api/sessions/abc", "").Code)
}

func TestRecoverPanic(t *testing.T) {
	api := NewAPI(zap.NewNop())
	h := api.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}
