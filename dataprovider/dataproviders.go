package dataprovider

import (
	"context"
	"time"

	"Tradecurve/perf"
)

// EntityInfo holds the platform-reported identity and ROI baseline for one
// trading entity (a bot or exchange account binding).
type EntityInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Exchange      string    `json:"exchange"`
	QuoteCurrency string    `json:"quote_currency"`
	InitialEquity float64   `json:"initial_equity"`
	BaselinePrice *float64  `json:"baseline_price,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Baseline converts the entity info into the engine's ROI anchor.
func (e EntityInfo) Baseline() perf.Baseline {
	return perf.Baseline{InitialEquity: e.InitialEquity, BaselinePrice: e.BaselinePrice}
}

// SeriesQuery bounds one raw-series fetch.
type SeriesQuery struct {
	EntityID  string
	Timeframe string
	Start     time.Time
	End       time.Time
}

// PerformanceProvider defines the interface for fetching the raw
// trading-performance series the reconciliation engine consumes. The wire
// schema behind it is the platform's business; implementations deliver
// already-parsed raw shapes.
type PerformanceProvider interface {
	GetEntityInfo(ctx context.Context, entityID string) (EntityInfo, error)
	GetEquitySeries(ctx context.Context, q SeriesQuery) ([]perf.RawEquitySample, error)
	GetTradingLog(ctx context.Context, q SeriesQuery) ([]perf.RawLogEvent, error)
	Ping(ctx context.Context) error
}
