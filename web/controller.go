package web

import (
	"errors"
	"time"

	"Tradecurve/perf"
	"Tradecurve/utilities"
)

// ErrUnknownEntity is returned by controller lookups for entity IDs the app
// is not tracking. Handlers map it to a 404.
var ErrUnknownEntity = errors.New("unknown entity")

// EntitySummary is one dashboard row: identity plus the headline metrics of
// the entity's current dataset.
type EntitySummary struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Timeframe   string              `json:"timeframe"`
	LastRefresh time.Time           `json:"lastRefresh"`
	Metrics     perf.TradingMetrics `json:"metrics"`
}

// DashboardData is the payload behind GET /api/dashboard.
type DashboardData struct {
	AppName       string          `json:"appName"`
	Version       string          `json:"version"`
	QuoteCurrency string          `json:"quoteCurrency"`
	Entities      []EntitySummary `json:"entities"`
}

// EntityPerformance is the full chart payload for one entity. Changed reports
// whether the most recent refresh cycle altered the dataset, so a polling
// client can skip redraws.
type EntityPerformance struct {
	EntityID    string                   `json:"entityId"`
	Name        string                   `json:"name"`
	Timeframe   string                   `json:"timeframe"`
	LastRefresh time.Time                `json:"lastRefresh"`
	Changed     bool                     `json:"changed"`
	Points      []*perf.TradingDataPoint `json:"points"`
	Metrics     perf.TradingMetrics      `json:"metrics"`
}

// CandleSeries is the payload behind GET /api/entities/{id}/candles.
type CandleSeries struct {
	EntityID string                         `json:"entityId"`
	Candles  []perf.TradingCandlestickPoint `json:"candles"`
}

// HealthStatus reports app liveness for probes and the status widget.
type HealthStatus struct {
	Status          string    `json:"status"`
	PlatformOK      bool      `json:"platformOk"`
	TrackedEntities int       `json:"trackedEntities"`
	LastRefresh     time.Time `json:"lastRefresh"`
}

// AppController defines the interface the web package needs to interact with
// the main application's state.
type AppController interface {
	GetDashboardData() DashboardData
	GetEntityPerformance(entityID string) (EntityPerformance, error)
	GetEntityCandles(entityID string) ([]perf.TradingCandlestickPoint, error)
	SetEntityTimeframe(entityID, timeframe string) error
	Health() HealthStatus
	GetConfig() utilities.AppConfig
	Logger() *utilities.Logger
}
