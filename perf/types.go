// File: perf/types.go
package perf

// Trading-log event kinds delivered by the platform.
const (
	EventOpenLong  = "open-long"
	EventOpenShort = "open-short"
	EventStopLoss  = "stop-loss"
	EventDeposit   = "deposit"
	EventWithdraw  = "withdraw"
)

// Baseline anchors ROI computation for one entity: the equity the entity
// started with and, when known, the asset price at series start.
type Baseline struct {
	InitialEquity float64  `json:"initialEquity"`
	BaselinePrice *float64 `json:"baselinePrice,omitempty"`
}

// Dataset is the display-ready output for one entity and timeframe.
type Dataset struct {
	Points  []*TradingDataPoint       `json:"points"`
	Candles []TradingCandlestickPoint `json:"candles"`
	Metrics TradingMetrics            `json:"metrics"`
}

// EventInfo carries optional structured details attached to a log entry.
type EventInfo struct {
	Price *float64 `json:"price,omitempty"`
}

// MatchedEvent is the normalized annotation attached to a canonical point.
type MatchedEvent struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// RawEquitySample is one timestamped observation from the upstream source.
// Any field besides the timestamp may be absent, signaling a reporting gap.
type RawEquitySample struct {
	Timestamp       string    `json:"timestamp"`
	Equity          *float64  `json:"equity,omitempty"`
	BenchmarkReturn *float64  `json:"benchmarkReturn,omitempty"`
	StockPrice      *float64  `json:"stockPrice,omitempty"`
	StockBalance    *float64  `json:"stockBalance,omitempty"`
	OHLCV           *RawOHLCV `json:"ohlcv,omitempty"`
}

// RawLogEvent is one trading-log entry. Produced upstream, consumed read-only.
type RawLogEvent struct {
	EventTime string     `json:"eventTime"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	Info      *EventInfo `json:"info,omitempty"`
}

// RawOHLCV is a price candle embedded in an equity sample.
type RawOHLCV struct {
	Open     float64  `json:"open"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
	Close    float64  `json:"close"`
	Volume   *float64 `json:"volume,omitempty"`
	Final    *bool    `json:"final,omitempty"`
	Coverage *float64 `json:"coverage,omitempty"`
}

// TradingCandlestickPoint is one price candle of the display series. It is
// index-aligned with the canonical points that carry a price.
type TradingCandlestickPoint struct {
	Timestamp        string   `json:"timestamp"`
	TimestampNumeric int64    `json:"timestampNumeric"`
	Open             float64  `json:"open"`
	High             float64  `json:"high"`
	Low              float64  `json:"low"`
	Close            float64  `json:"close"`
	Volume           *float64 `json:"volume,omitempty"`
	Final            *bool    `json:"final,omitempty"`
	Coverage         *float64 `json:"coverage,omitempty"`
}

// TradingDataPoint is the unit of the canonical equity series. Built fresh on
// every normalization pass; only MatchEvents mutates it afterwards.
type TradingDataPoint struct {
	Date             string        `json:"date"`
	Timestamp        string        `json:"timestamp"`
	TimestampNumeric int64         `json:"timestampNumeric"`
	NetValue         float64       `json:"netValue"`
	ROI              float64       `json:"roi"`
	BenchmarkReturn  *float64      `json:"benchmarkReturn,omitempty"`
	BenchmarkPrice   *float64      `json:"benchmarkPrice,omitempty"`
	Position         *float64      `json:"position,omitempty"`
	MatchedEvent     *MatchedEvent `json:"matchedEvent,omitempty"`
	IsPartial        bool          `json:"isPartial"`
}

// TradingMetrics is the derived performance summary. Stateless, fully
// recomputed from a canonical series each time.
type TradingMetrics struct {
	TotalROI     float64 `json:"totalROI"`
	WinRate      float64 `json:"winRate"`
	SharpeRatio  float64 `json:"sharpeRatio"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
	TotalTrades  int     `json:"totalTrades"`
	InitialPrice float64 `json:"initialPrice"`
}
