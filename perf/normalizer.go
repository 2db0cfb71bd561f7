// File: perf/normalizer.go
package perf

import (
	"errors"
	"math"
	"sort"
	"time"

	"Tradecurve/utilities"
)

// ErrInvalidBaseline is returned when the baseline equity is missing,
// non-finite, or not positive. ROI against an undefined baseline would be
// meaningless, so the whole transformation fails rather than degrade.
var ErrInvalidBaseline = errors.New("initial equity must be a positive, finite number")

// fillState carries the last known value of each forward-filled field across
// the normalization fold.
type fillState struct {
	equity    float64
	benchmark float64
	price     float64
	hasPrice  bool
	position  float64
}

// stampedSample pairs a raw sample with its parsed timestamp.
type stampedSample struct {
	sample RawEquitySample
	ts     time.Time
}

// NormalizeEquitySeries converts raw equity samples into the canonical chart
// series. Fields missing from a sample are forward-filled from the last known
// value, ROI is computed against the fixed initial equity, and samples with an
// unparsable timestamp are dropped. The result is ordered by timestamp with
// exact duplicates collapsed to the later sample.
func NormalizeEquitySeries(samples []RawEquitySample, baseline Baseline) ([]*TradingDataPoint, error) {
	if !isFinite(baseline.InitialEquity) || baseline.InitialEquity <= 0 {
		return nil, ErrInvalidBaseline
	}

	ordered := make([]stampedSample, 0, len(samples))
	for _, s := range samples {
		ts, err := parseTimestamp(s.Timestamp)
		if err != nil {
			continue
		}
		ordered = append(ordered, stampedSample{sample: s, ts: ts})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ts.Before(ordered[j].ts)
	})

	state := fillState{equity: baseline.InitialEquity}
	if baseline.BaselinePrice != nil && isFinite(*baseline.BaselinePrice) {
		state.price = *baseline.BaselinePrice
		state.hasPrice = true
	}

	points := make([]*TradingDataPoint, 0, len(ordered))
	for _, entry := range ordered {
		s := entry.sample

		hasEquity := finitePtr(s.Equity)
		hasBenchmark := finitePtr(s.BenchmarkReturn)
		hasPrice := finitePtr(s.StockPrice)
		if hasEquity {
			state.equity = *s.Equity
		}
		if hasBenchmark {
			state.benchmark = *s.BenchmarkReturn
		}
		if hasPrice {
			state.price = *s.StockPrice
			state.hasPrice = true
		}
		if finitePtr(s.StockBalance) {
			state.position = *s.StockBalance
		}

		netValue := utilities.RoundFloat(state.equity, 2)
		p := &TradingDataPoint{
			Date:             entry.ts.UTC().Format("2006-01-02"),
			Timestamp:        s.Timestamp,
			TimestampNumeric: entry.ts.UnixMilli(),
			NetValue:         netValue,
			ROI:              utilities.RoundFloat((netValue-baseline.InitialEquity)/baseline.InitialEquity*100, 2),
			IsPartial:        !hasEquity || !hasPrice || !hasBenchmark,
		}
		benchmark := utilities.RoundFloat(state.benchmark*100, 2)
		p.BenchmarkReturn = &benchmark
		if state.hasPrice {
			price := utilities.RoundFloat(state.price, 2)
			p.BenchmarkPrice = &price
		}
		position := utilities.RoundFloat(state.position, 4)
		p.Position = &position

		// Duplicate timestamps are corrections: the later sample wins the slot.
		if n := len(points); n > 0 && points[n-1].TimestampNumeric == p.TimestampNumeric {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}

	return points, nil
}

func parseTimestamp(ts string) (time.Time, error) {
	return time.Parse(time.RFC3339, ts)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finitePtr(f *float64) bool {
	return f != nil && isFinite(*f)
}
