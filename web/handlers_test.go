package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Tradecurve/perf"
	"Tradecurve/utilities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	cfg            utilities.AppConfig
	dashboard      DashboardData
	performance    map[string]EntityPerformance
	candles        map[string][]perf.TradingCandlestickPoint
	health         HealthStatus
	timeframeCalls []string
	logger         *utilities.Logger
}

func newFakeController() *fakeController {
	return &fakeController{
		cfg: utilities.AppConfig{
			AppName: "Tradecurve",
			Version: "test",
			Web:     utilities.WebConfig{AuthToken: "secret"},
		},
		dashboard: DashboardData{
			AppName: "Tradecurve",
			Version: "test",
			Entities: []EntitySummary{
				{ID: "ent-1", Name: "BTC Momentum", Timeframe: "1h", Metrics: perf.TradingMetrics{TotalROI: 12.5}},
			},
		},
		performance: map[string]EntityPerformance{
			"ent-1": {
				EntityID:  "ent-1",
				Name:      "BTC Momentum",
				Timeframe: "1h",
				Points:    []*perf.TradingDataPoint{{Timestamp: "2024-01-01T00:00:00Z", NetValue: 10000}},
				Metrics:   perf.TradingMetrics{TotalROI: 12.5},
			},
		},
		candles: map[string][]perf.TradingCandlestickPoint{
			"ent-1": {{Timestamp: "2024-01-01T00:00:00Z", Open: 42000, High: 42000, Low: 42000, Close: 42000}},
		},
		health: HealthStatus{Status: "ok", PlatformOK: true, TrackedEntities: 1, LastRefresh: time.Now()},
		logger: utilities.NewLogger(utilities.Error),
	}
}

func (f *fakeController) GetDashboardData() DashboardData { return f.dashboard }

func (f *fakeController) GetEntityPerformance(entityID string) (EntityPerformance, error) {
	data, ok := f.performance[entityID]
	if !ok {
		return EntityPerformance{}, ErrUnknownEntity
	}
	return data, nil
}

func (f *fakeController) GetEntityCandles(entityID string) ([]perf.TradingCandlestickPoint, error) {
	candles, ok := f.candles[entityID]
	if !ok {
		return nil, ErrUnknownEntity
	}
	return candles, nil
}

func (f *fakeController) SetEntityTimeframe(entityID, timeframe string) error {
	if _, ok := f.performance[entityID]; !ok {
		return ErrUnknownEntity
	}
	f.timeframeCalls = append(f.timeframeCalls, entityID+":"+timeframe)
	return nil
}

func (f *fakeController) Health() HealthStatus { return f.health }

func (f *fakeController) GetConfig() utilities.AppConfig { return f.cfg }

func (f *fakeController) Logger() *utilities.Logger { return f.logger }

func newTestServer(t *testing.T, controller AppController) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(newRouter(controller))
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, method, url, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDashboardEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeController())

	resp := doRequest(t, http.MethodGet, server.URL+"/api/dashboard", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var data DashboardData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	require.Len(t, data.Entities, 1)
	assert.Equal(t, "ent-1", data.Entities[0].ID)
	assert.Equal(t, 12.5, data.Entities[0].Metrics.TotalROI)
}

func TestBearerAuth(t *testing.T) {
	server := newTestServer(t, newFakeController())

	resp := doRequest(t, http.MethodGet, server.URL+"/api/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, server.URL+"/api/dashboard", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, server.URL+"/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays open for probes")
}

func TestBearerAuthDisabledWhenUnconfigured(t *testing.T) {
	controller := newFakeController()
	controller.cfg.Web.AuthToken = ""
	server := newTestServer(t, controller)

	resp := doRequest(t, http.MethodGet, server.URL+"/api/dashboard", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEntityPerformanceEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeController())

	resp := doRequest(t, http.MethodGet, server.URL+"/api/entities/ent-1/performance", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data EntityPerformance
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.Equal(t, "ent-1", data.EntityID)
	require.Len(t, data.Points, 1)
	assert.Equal(t, 10000.0, data.Points[0].NetValue)

	resp = doRequest(t, http.MethodGet, server.URL+"/api/entities/nope/performance", "secret", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEntityCandlesEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeController())

	resp := doRequest(t, http.MethodGet, server.URL+"/api/entities/ent-1/candles", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data CandleSeries
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.Equal(t, "ent-1", data.EntityID)
	require.Len(t, data.Candles, 1)
	assert.Equal(t, 42000.0, data.Candles[0].Close)
}

func TestSetTimeframeEndpoint(t *testing.T) {
	controller := newFakeController()
	server := newTestServer(t, controller)
	url := server.URL + "/api/entities/ent-1/timeframe"

	resp := doRequest(t, http.MethodPost, url, "secret", []byte(`{"timeframe": "4h"}`))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"ent-1:4h"}, controller.timeframeCalls)

	resp = doRequest(t, http.MethodPost, url, "secret", []byte(`{"timeframe": "7m"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, controller.timeframeCalls, 1, "invalid timeframes never reach the app")

	resp = doRequest(t, http.MethodPost, server.URL+"/api/entities/nope/timeframe", "secret", []byte(`{"timeframe": "4h"}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthReportsDegraded(t *testing.T) {
	controller := newFakeController()
	controller.health = HealthStatus{Status: "degraded", PlatformOK: false}
	server := newTestServer(t, controller)

	resp := doRequest(t, http.MethodGet, server.URL+"/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.False(t, health.PlatformOK)
}

func TestErrorBodyShape(t *testing.T) {
	server := newTestServer(t, newFakeController())

	resp := doRequest(t, http.MethodGet, server.URL+"/api/entities/nope/performance", "secret", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, fmt.Sprintf("unknown entity: %s", "nope"), body["error"])
}
