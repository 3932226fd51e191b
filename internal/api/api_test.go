package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/rnshah9/root/pkg/pipeline"
)

func testServer(t *testing.T) http.Handler {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, nil, logger)
	return NewServer(runner, nil, logger).Router()
}

const gaussModel = `{
	"top": "gauss",
	"nodes": [
		{"id": "gauss", "kind": "density"},
		{"id": "x", "kind": "variable"},
		{"id": "mean", "kind": "variable"}
	],
	"edges": [
		{"from": "gauss", "to": "x"},
		{"from": "gauss", "to": "mean"}
	]
}`

// conflictModel requests the shared density s with (x) through p but with
// (x,y) through q.
const conflictModel = `{
	"top": "model",
	"nodes": [
		{"id": "model", "kind": "density", "norm_overrides": {"p": ["x"]}},
		{"id": "p", "kind": "density"},
		{"id": "q", "kind": "density"},
		{"id": "s", "kind": "density"},
		{"id": "x", "kind": "variable"},
		{"id": "y", "kind": "variable"}
	],
	"edges": [
		{"from": "model", "to": "p"},
		{"from": "model", "to": "q"},
		{"from": "p", "to": "s"},
		{"from": "q", "to": "s"},
		{"from": "s", "to": "x"},
		{"from": "s", "to": "y"}
	]
}`

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestUnfold(t *testing.T) {
	h := testServer(t)
	rec := postJSON(t, h, "/v1/unfold", `{"model": `+gaussModel+`, "normset": ["x"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp unfoldResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Report.Top != "gauss_normalized" {
		t.Errorf("report top = %q, want gauss_normalized", resp.Report.Top)
	}
	if len(resp.Report.Wrappers) != 1 || resp.Report.Wrappers[0].Wraps != "gauss" {
		t.Errorf("wrappers = %+v", resp.Report.Wrappers)
	}
	if resp.ModelHash == "" {
		t.Error("missing model hash")
	}
}

func TestUnfoldConflict(t *testing.T) {
	h := testServer(t)
	rec := postJSON(t, h, "/v1/unfold", `{"model": `+conflictModel+`, "normset": ["x", "y"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "CONFLICTING_NORMSETS" {
		t.Errorf("code = %s, want CONFLICTING_NORMSETS", resp.Code)
	}
	if resp.Details["node"] != "s" {
		t.Errorf("details node = %v, want s", resp.Details["node"])
	}
}

func TestUnfoldBadRequests(t *testing.T) {
	h := testServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"no model", `{"normset": ["x"]}`, http.StatusBadRequest},
		{"server path", `{"model_path": "/etc/passwd"}`, http.StatusBadRequest},
		{"bad normset", `{"model": ` + gaussModel + `, "normset": ["x", "x"]}`, http.StatusBadRequest},
		{"unknown kind", `{"model": {"top": "a", "nodes": [{"id": "a", "kind": "pdf"}]}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h, "/v1/unfold", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestRenderDOT(t *testing.T) {
	h := testServer(t)
	rec := postJSON(t, h, "/v1/render",
		`{"model": `+gaussModel+`, "normset": ["x"], "format": "dot"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "gauss_normalized") {
		t.Errorf("DOT body missing wrapper:\n%s", rec.Body)
	}
}

func TestModelRoutesRequireStore(t *testing.T) {
	h := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a store", rec.Code)
	}
}
