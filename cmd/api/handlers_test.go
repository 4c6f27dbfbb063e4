package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/internal/config"
	"github.com/nemonet1337/zaiSupplySim/internal/metrics"
	"github.com/nemonet1337/zaiSupplySim/internal/pipeline"
	"github.com/nemonet1337/zaiSupplySim/internal/runstore"
)

type testServer struct {
	router http.Handler
	store  *runstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.NumProducts = 3
	cfg.Simulation.NumStores = 4
	cfg.Simulation.StartDate = "2024-01-01"
	cfg.Simulation.EndDate = "2024-01-31"
	cfg.Output.Formats = []string{}
	cfg.API.MaxProducts = 10
	cfg.API.MaxDays = 60

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	store := runstore.New(5)
	handlers := NewHandlers(pipeline.New(cfg, zap.NewNop(), recorder), store, cfg, zap.NewNop())

	return &testServer{
		router: setupRouter(handlers, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		store:  store,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	var resp APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// decodeData re-decodes the generic Data field into out
func decodeData(t *testing.T, resp APIResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

type runView struct {
	Run struct {
		ID   string `json:"run_id"`
		Seed int64  `json:"seed"`
	} `json:"run"`
	Summary struct {
		Days     int `json:"days"`
		Products int `json:"products"`
		Stores   int `json:"stores"`
	} `json:"summary"`
}

func (s *testServer) createRun(t *testing.T, body string) runView {
	t.Helper()
	rec, resp := s.do(t, http.MethodPost, "/api/v1/simulations", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.True(t, resp.Success)
	var view runView
	decodeData(t, resp, &view)
	return view
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestCreateSimulation(t *testing.T) {
	s := newTestServer(t)

	view := s.createRun(t, `{"num_products": 2, "seed": 7, "start_date": "2024-02-01", "end_date": "2024-02-10"}`)

	assert.Len(t, view.Run.ID, 36)
	assert.Equal(t, int64(7), view.Run.Seed)
	assert.Equal(t, 10, view.Summary.Days)
	assert.Equal(t, 2, view.Summary.Products)
	assert.Equal(t, 4, view.Summary.Stores)
	assert.Equal(t, 1, s.store.Len())
}

func TestCreateSimulation_EmptyBodyUsesConfig(t *testing.T) {
	s := newTestServer(t)

	view := s.createRun(t, "")

	assert.Equal(t, int64(42), view.Run.Seed)
	assert.Equal(t, 31, view.Summary.Days)
	assert.Equal(t, 3, view.Summary.Products)
}

func TestCreateSimulation_BadRequests(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"num_products":`},
		{"over product limit", `{"num_products": 11}`},
		{"negative stores", `{"num_stores": -1}`},
		{"inverted range", `{"start_date": "2024-03-01", "end_date": "2024-02-01"}`},
		{"bad date", `{"start_date": "March"}`},
		{"span over day limit", `{"start_date": "2024-01-01", "end_date": "2024-03-01"}`},
		{"far future end date", `{"end_date": "9999-12-31"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodPost, "/api/v1/simulations", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Equal(t, 0, s.store.Len())
}

func TestCreateSimulation_SpanAtDayLimit(t *testing.T) {
	s := newTestServer(t)

	// 2024-01-01〜2024-02-29 はちょうど60日
	view := s.createRun(t, `{"num_products": 1, "num_stores": 1, "end_date": "2024-02-29"}`)

	assert.Equal(t, 60, view.Summary.Days)
}

func TestGetSimulation_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/simulations/unknown", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestRunQueries(t *testing.T) {
	s := newTestServer(t)
	view := s.createRun(t, `{}`)
	base := "/api/v1/simulations/" + view.Run.ID

	rec, resp := s.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got runView
	decodeData(t, resp, &got)
	assert.Equal(t, view.Run.ID, got.Run.ID)

	var list []map[string]interface{}
	_, resp = s.do(t, http.MethodGet, "/api/v1/simulations", "")
	decodeData(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, view.Run.ID, list[0]["run_id"])

	var inventory struct {
		Total int                      `json:"total"`
		Items []map[string]interface{} `json:"items"`
	}
	_, resp = s.do(t, http.MethodGet, base+"/inventory", "")
	decodeData(t, resp, &inventory)
	assert.Equal(t, 31*3, inventory.Total)

	_, resp = s.do(t, http.MethodGet, base+"/inventory?product_id=SKU002", "")
	decodeData(t, resp, &inventory)
	assert.Equal(t, 31, inventory.Total)
	assert.Equal(t, "2024-01-01T00:00:00Z", inventory.Items[0]["date"])
	assert.Equal(t, "SKU002", inventory.Items[0]["product_id"])

	rec, _ = s.do(t, http.MethodGet, base+"/inventory?product_id=bad%20id", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var txs struct {
		Total int                      `json:"total"`
		Items []map[string]interface{} `json:"items"`
	}
	_, resp = s.do(t, http.MethodGet, base+"/transactions?store_id=FR001&limit=5", "")
	decodeData(t, resp, &txs)
	assert.LessOrEqual(t, len(txs.Items), 5)
	assert.GreaterOrEqual(t, txs.Total, len(txs.Items))
	for _, item := range txs.Items {
		assert.Equal(t, "FR001", item["store_id"])
	}

	var orders struct {
		Total int                      `json:"total"`
		Items []map[string]interface{} `json:"items"`
	}
	_, resp = s.do(t, http.MethodGet, base+"/orders?product_id=SKU001", "")
	decodeData(t, resp, &orders)
	assert.Equal(t, len(orders.Items), orders.Total)
	for _, item := range orders.Items {
		assert.Equal(t, "SKU001", item["product_id"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.createRun(t, `{}`)

	rec, _ := s.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "supplysim_runs_total 1")
	assert.Contains(t, rec.Body.String(), "supplysim_run_duration_seconds_count 1")
}
