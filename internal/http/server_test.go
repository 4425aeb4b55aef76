package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famreport/internal/adapters"
	"famreport/internal/export"
	"famreport/internal/services"
	"famreport/internal/storage/memory"
)

type fakePublisher struct {
	mu       sync.Mutex
	versions []int64
}

func (p *fakePublisher) PublishReportSaved(_ context.Context, version int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions = append(p.versions, version)
	return nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	last  export.Statement
}

func (f *fakeRenderer) Render(w io.Writer, st export.Statement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = st
	_, err := io.WriteString(w, "%PDF-1.3 "+st.TitleEN+" "+st.Period)
	return err
}

type testServer struct {
	srv      *Server
	pub      *fakePublisher
	renderer *fakeRenderer
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	renderer := &fakeRenderer{}
	svc := services.NewReportService(adapters.NewStoreAdapter(store), pub, nil)
	srv := NewServer(":0", Options{
		Service:         svc,
		Store:           store,
		Renderer:        renderer,
		RateLimitPerMin: rateLimit,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, pub: pub, renderer: renderer}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), rr.Body.String())
	return m
}

func TestHealthReadyMetrics(t *testing.T) {
	ts := newTestServer(t, 100)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := ts.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	ready := decodeBody(t, ts.do(t, http.MethodGet, "/readyz", ""))
	assert.Equal(t, "ready", ready["status"])
	assert.Equal(t, "ok", ready["checks"].(map[string]any)["store"])

	rr := ts.do(t, http.MethodGet, "/metrics", "")
	assert.Contains(t, rr.Body.String(), "famreport_http_requests_total")
}

func TestGetReportEmpty(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodGet, "/report", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":{}}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestPutGetDeleteReport(t *testing.T) {
	ts := newTestServer(t, 100)

	legacy := `{"data":{"years":["2024"],"groups":[{"id":"g1","type":"EXPENSE","name":"Rent","items":[{"id":"r1","name":"Rent","values":{"2024":"1200"}}]}]}}`
	rr := ts.do(t, http.MethodPut, "/report", legacy)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"status":"ok","version":1}`, rr.Body.String())
	assert.Equal(t, []int64{1}, ts.pub.versions)

	got := decodeBody(t, ts.do(t, http.MethodGet, "/report", ""))
	assert.EqualValues(t, 1, got["version"])
	data := got["data"].(map[string]any)
	assert.Equal(t, []any{"2024"}, data["years"])
	assert.Len(t, data["flowGroups"], 1)

	sum := decodeBody(t, ts.do(t, http.MethodGet, "/report/summary?view=year&period=2024", ""))
	assert.EqualValues(t, 1200, sum["summary"].(map[string]any)["expense"])

	rr = ts.do(t, http.MethodDelete, "/report", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"deleted"}`, rr.Body.String())
	assert.JSONEq(t, `{"data":{}}`, ts.do(t, http.MethodGet, "/report", "").Body.String())
}

func TestPutReportRejectsBadBodies(t *testing.T) {
	ts := newTestServer(t, 100)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{"data":`, "bad_request"},
		{"missing data", `{}`, "bad_request"},
		{"null data", `{"data":null}`, "bad_request"},
		{"array payload", `{"data":[1,2,3]}`, "malformed_payload"},
		{"unknown field", `{"data":{},"extra":1}`, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPut, "/report", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.code, decodeBody(t, rr)["code"])
		})
	}
	assert.Empty(t, ts.pub.versions)
}

func TestSummaryAndGroups(t *testing.T) {
	ts := newTestServer(t, 100)

	sum := decodeBody(t, ts.do(t, http.MethodGet, "/report/summary?view=day", ""))
	assert.Equal(t, "2025-01-01", sum["period"])
	assert.EqualValues(t, 363000, sum["summary"].(map[string]any)["netWorth"])

	sum = decodeBody(t, ts.do(t, http.MethodGet, "/report/summary", ""))
	assert.Equal(t, "year", sum["view"])
	assert.EqualValues(t, 140400, sum["summary"].(map[string]any)["cashflow"])

	rr := ts.do(t, http.MethodGet, "/report/summary?view=day&period=2025", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_period", decodeBody(t, rr)["code"])

	rr = ts.do(t, http.MethodGet, "/report/summary?view=week", "")
	assert.Equal(t, "invalid_view", decodeBody(t, rr)["code"])

	groups := decodeBody(t, ts.do(t, http.MethodGet, "/report/groups?view=day", ""))
	ids := []string{}
	for _, g := range groups["groups"].([]any) {
		ids = append(ids, g.(map[string]any)["id"].(string))
	}
	assert.Equal(t, []string{"asset", "liability"}, ids)
}

func TestAddPeriod(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/report/periods", `{"view":"year","key":"2026"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	data := decodeBody(t, rr)["data"].(map[string]any)
	assert.Contains(t, data["years"], "2026")

	rr = ts.do(t, http.MethodPost, "/report/periods", `{"view":"year","key":"2026"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "duplicate_period", decodeBody(t, rr)["code"])

	rr = ts.do(t, http.MethodPost, "/report/periods", `{"view":"year","key":"26"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodPost, "/report/periods", `{"view":"quarter","key":"2026"}`)
	assert.Equal(t, "invalid_view", decodeBody(t, rr)["code"])
}

func TestItemEdits(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/report/groups/income/items", `{"name":"Bonus"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	item := decodeBody(t, rr)["item"].(map[string]any)
	id := item["id"].(string)
	assert.Equal(t, "Bonus", item["name"])

	rr = ts.do(t, http.MethodPut, "/report/groups/income/items/"+id+"/values", `{"period":"2025","amount":1000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sum := decodeBody(t, ts.do(t, http.MethodGet, "/report/summary?view=year&period=2025", ""))
	assert.EqualValues(t, 247000, sum["summary"].(map[string]any)["income"])

	rr = ts.do(t, http.MethodPatch, "/report/groups/income/items/"+id, `{"name":"Year-end bonus","note":"paid in March"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodPatch, "/report/groups/income/items/"+id, `{"name":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "empty_name", decodeBody(t, rr)["code"])

	rr = ts.do(t, http.MethodPut, "/report/groups/income/items/"+id+"/quantities", `{"period":"2025"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodPut, "/report/groups/income/items/"+id+"/quantities", `{"period":"2025","unitPrice":250,"quantity":2}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sum = decodeBody(t, ts.do(t, http.MethodGet, "/report/summary?view=year&period=2025", ""))
	assert.EqualValues(t, 246500, sum["summary"].(map[string]any)["income"])

	rr = ts.do(t, http.MethodPut, "/report/groups/income/items/"+id+"/values", `{"period":"2025-13","amount":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodDelete, "/report/groups/income/items/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	sum = decodeBody(t, ts.do(t, http.MethodGet, "/report/summary?view=year&period=2025", ""))
	assert.EqualValues(t, 246000, sum["summary"].(map[string]any)["income"])
}

func TestItemEditsLookupMissIsNoOp(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/report/groups/nope/items", `{"name":"Ghost"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Nil(t, body["item"])

	rr = ts.do(t, http.MethodPut, "/report/groups/income/items/missing/values", `{"period":"2025","amount":5}`)
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decodeBody(t, ts.do(t, http.MethodGet, "/report/summary?view=year&period=2025", ""))
	assert.EqualValues(t, 246000, sum["summary"].(map[string]any)["income"])
}

func TestAddItemRejectsEmptyName(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/report/groups/income/items", `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "empty_name", decodeBody(t, rr)["code"])
	assert.JSONEq(t, `{"data":{}}`, ts.do(t, http.MethodGet, "/report", "").Body.String())
}

func TestNotesAndSnapshots(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodPost, "/report/notes", `{"label":"Bank","value":"ICBC"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	note := decodeBody(t, rr)["note"].(map[string]any)
	noteID := note["id"].(string)

	rr = ts.do(t, http.MethodPatch, "/report/notes/"+noteID, `{"label":"Bank","value":"CMB"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "CMB")

	rr = ts.do(t, http.MethodDelete, "/report/notes/"+noteID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), noteID)

	rr = ts.do(t, http.MethodPost, "/report/snapshots", `{"day":"2025-01-01","note":"new year"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	snap := decodeBody(t, rr)["snapshot"].(map[string]any)
	assert.EqualValues(t, 363000, snap["netWorth"])

	rr = ts.do(t, http.MethodPost, "/report/snapshots", `{"day":"2025-02-30x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_day", decodeBody(t, rr)["code"])

	rr = ts.do(t, http.MethodDelete, "/report/snapshots/"+snap["id"].(string), "")
	require.Equal(t, http.StatusOK, rr.Code)
	data := decodeBody(t, rr)["data"].(map[string]any)
	assert.Empty(t, data["snapshots"])
}

func TestReset(t *testing.T) {
	ts := newTestServer(t, 100)

	ts.do(t, http.MethodPost, "/report/periods", `{"view":"year","key":"2030"}`)
	rr := ts.do(t, http.MethodPost, "/report/reset", "")
	require.Equal(t, http.StatusOK, rr.Code)
	data := decodeBody(t, rr)["data"].(map[string]any)
	assert.NotContains(t, data["years"], "2030")
}

func TestExportPDFIsCachedPerVersion(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodGet, "/report/export.pdf?view=day", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "famreport-day-2025-01-01.pdf")
	assert.Equal(t, "BALANCE SHEET", ts.renderer.last.TitleEN)

	ts.do(t, http.MethodGet, "/report/export.pdf?view=day", "")
	assert.Equal(t, 1, ts.renderer.calls)

	ts.do(t, http.MethodPost, "/report/notes", `{"label":"x","value":"y"}`)
	ts.do(t, http.MethodGet, "/report/export.pdf?view=day", "")
	assert.Equal(t, 2, ts.renderer.calls)

	rr = ts.do(t, http.MethodGet, "/report/export.pdf?view=month&period=2025", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	ts := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		rr := ts.do(t, http.MethodPost, "/report/notes", `{"label":"a","value":"b"}`)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := ts.do(t, http.MethodPost, "/report/notes", `{"label":"a","value":"b"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = ts.do(t, http.MethodGet, "/report", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, 100)
	const origin = "http://localhost:5173"

	req := httptest.NewRequest(http.MethodOptions, "/report", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, []string{"*", origin}, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)

	req = httptest.NewRequest(http.MethodGet, "/report", nil)
	req.Header.Set("Origin", origin)
	rr = httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, []string{"*", origin}, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictedOrigins(t *testing.T) {
	store := memory.New()
	srv := NewServer(":0", Options{
		Service:         services.NewReportService(adapters.NewStoreAdapter(store), nil, nil),
		Store:           store,
		RateLimitPerMin: 100,
		CORSOrigins:     []string{"https://family.example"},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	get := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/report", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr
	}
	assert.Equal(t, "https://family.example", get("https://family.example").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, get("https://other.example").Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, 100)

	rr := ts.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeBody(t, rr)["code"])

	rr = ts.do(t, http.MethodPost, "/report/summary", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
